package engine

import (
	"maps-scraper/internal/types"
)

// RunState is the mutable state of one run. It is touched only from the
// engine's single control path.
type RunState struct {
	records   []types.PlaceRecord
	seenKeys  map[string]bool
	seenLinks map[string]bool

	seeded          int
	acceptedThisRun int
}

// NewRunState returns an empty state.
func NewRunState() *RunState {
	return &RunState{
		seenKeys:  make(map[string]bool),
		seenLinks: make(map[string]bool),
	}
}

func (s *RunState) seed(r types.PlaceRecord) {
	s.records = append(s.records, r)
	s.seenKeys[r.IdentityKey()] = true
	s.seeded++
}

// accept appends r unless its identity key was seen before. On success the
// harvested link is marked seen, whatever the record's own Link says.
func (s *RunState) accept(r types.PlaceRecord, link string) bool {
	key := r.IdentityKey()
	if s.seenKeys[key] {
		return false
	}
	s.seenKeys[key] = true
	s.seenLinks[link] = true
	s.records = append(s.records, r)
	s.acceptedThisRun++
	return true
}

// unseenLinks returns links not yet in the seen-link set, in order.
func (s *RunState) unseenLinks(links []string) []string {
	var fresh []string
	for _, link := range links {
		if !s.seenLinks[link] {
			fresh = append(fresh, link)
		}
	}
	return fresh
}

func (s *RunState) resetLinks() {
	s.seenLinks = make(map[string]bool)
}

func (s *RunState) snapshot() []types.PlaceRecord {
	out := make([]types.PlaceRecord, len(s.records))
	copy(out, s.records)
	return out
}

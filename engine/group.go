package engine

import (
	"sort"
	"strings"

	"maps-scraper/internal/types"
)

// GroupByPhone orders records so that records sharing a phone number sit
// together, groups in order of first appearance. Inside a group records are
// ordered by their source's position in providers (unknown sources last),
// keeping insertion order among equals. Records without a phone follow all
// groups in insertion order.
func GroupByPhone(records []types.PlaceRecord, providers []string) []types.PlaceRecord {
	rank := make(map[string]int, len(providers))
	for i, p := range providers {
		rank[p] = i
	}
	rankOf := func(source string) int {
		if r, ok := rank[source]; ok {
			return r
		}
		return len(providers)
	}

	groups := make(map[string][]types.PlaceRecord)
	var order []string
	var noPhone []types.PlaceRecord

	for _, r := range records {
		key := phoneKey(r.Phone)
		if key == "" {
			noPhone = append(noPhone, r)
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([]types.PlaceRecord, 0, len(records))
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return rankOf(group[i].Source) < rankOf(group[j].Source)
		})
		out = append(out, group...)
	}
	return append(out, noPhone...)
}

// phoneKey reduces a provider-formatted phone number to its digits.
func phoneKey(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

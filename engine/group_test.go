package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"maps-scraper/internal/types"
)

func TestGroupByPhone(t *testing.T) {
	records := []types.PlaceRecord{
		{Title: "y-a", Phone: "+90 212 555 00 11", Source: "yandex"},
		{Title: "none-1", Source: "yandex"},
		{Title: "g-b", Phone: "0212 555 00 22", Source: "google"},
		{Title: "g-a", Phone: "+902125550011", Source: "google"},
		{Title: "x-a", Phone: "+90 (212) 555-00-11", Source: "manual"},
		{Title: "y-a2", Phone: "+90 212 555 0011", Source: "yandex"},
		{Title: "none-2", Phone: "Show phone", Source: "google"},
		{Title: "y-b", Phone: "0212 555 00 22", Source: "yandex"},
	}

	got := GroupByPhone(records, []string{"google", "yandex"})

	assert.Equal(t, []string{
		// first group: google first, then yandex in insertion order, unknown source last
		"g-a", "y-a", "y-a2", "x-a",
		"g-b", "y-b",
		"none-1", "none-2",
	}, titles(got))
}

func TestGroupByPhone_Empty(t *testing.T) {
	assert.Empty(t, GroupByPhone(nil, []string{"google"}))
}

func TestRunState_SingleProviderKeepsInsertionOrder(t *testing.T) {
	state := NewRunState()
	assert.True(t, state.accept(types.PlaceRecord{Title: "b", Phone: "2", Link: "l2"}, "l2"))
	assert.True(t, state.accept(types.PlaceRecord{Title: "a", Phone: "1", Link: "l1"}, "l1"))
	assert.False(t, state.accept(types.PlaceRecord{Title: "b", Phone: "2", Link: "l3"}, "l3"))

	assert.Equal(t, []string{"b", "a"}, titles(state.snapshot()))
	assert.Equal(t, []string{"l3"}, state.unseenLinks([]string{"l1", "l2", "l3"}))
	assert.Equal(t, 2, state.acceptedThisRun)
}

package telemetry

import (
	"sort"
	"time"
)

// ActionStats is the running aggregate for one action bucket.
type ActionStats struct {
	KeyPath     string    `json:"keyPath"`
	ActionType  string    `json:"actionType"`
	ActionValue string    `json:"actionValue"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	Count       int       `json:"count"`
	LastUsed    time.Time `json:"lastUsed"`
}

// GroupStats is the running aggregate for one group bucket.
type GroupStats struct {
	KeyPath  string    `json:"keyPath"`
	Label    string    `json:"label,omitempty"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"lastUsed"`
}

// DayCount is one calendar day's action execution count.
type DayCount struct {
	Day   string `json:"day"` // "2006-01-02"
	Count int    `json:"count"`
}

// topActions returns up to limit aggregates sorted by count descending,
// ties broken by stats key ascending so the order is deterministic.
func topActions(byKey map[string]*ActionStats, limit int) []ActionStats {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := byKey[keys[i]], byKey[keys[j]]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return keys[i] < keys[j]
	})
	if limit >= 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]ActionStats, len(keys))
	for i, k := range keys {
		out[i] = *byKey[k]
	}
	return out
}

func topGroups(byKey map[string]*GroupStats, limit int) []GroupStats {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := byKey[keys[i]], byKey[keys[j]]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return keys[i] < keys[j]
	})
	if limit >= 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]GroupStats, len(keys))
	for i, k := range keys {
		out[i] = *byKey[k]
	}
	return out
}

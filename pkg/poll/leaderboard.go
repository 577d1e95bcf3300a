package poll

import (
	"sort"
	"strings"
	"time"
)

type Badge string

const (
	BadgeGold   Badge = "gold"
	BadgeSilver Badge = "silver"
	BadgeBronze Badge = "bronze"
	BadgeNone   Badge = ""
)

// Badge thresholds are fixed, not configurable.
const (
	goldThreshold   = 200
	silverThreshold = 150
	bronzeThreshold = 50
)

func BadgeFor(count int) Badge {
	switch {
	case count >= goldThreshold:
		return BadgeGold
	case count >= silverThreshold:
		return BadgeSilver
	case count >= bronzeThreshold:
		return BadgeBronze
	}

	return BadgeNone
}

// Entry is one ranked leaderboard row.
type Entry struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
	Badge   Badge  `json:"badge,omitempty"`
}

// Window is a closed time interval. A zero Start or End leaves that side
// unbounded, the zero Window matches everything.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}

	if !w.End.IsZero() && t.After(w.End) {
		return false
	}

	return true
}

// AllTime is the unbounded window.
func AllTime() Window {
	return Window{}
}

// MonthOf is the calendar month containing t, evaluated in loc.
func MonthOf(t time.Time, loc *time.Location) Window {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)

	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// WeekOf is the Sunday-to-Saturday calendar week containing t, evaluated
// in loc.
func WeekOf(t time.Time, loc *time.Location) Window {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	start = start.AddDate(0, 0, -int(start.Weekday()))

	return Window{
		Start: start,
		End:   start.AddDate(0, 0, 7).Add(-time.Nanosecond),
	}
}

// Rank counts every response record across all polls whose timestamp falls in
// the window, grouped by responder, and returns the entries sorted by count
// descending. Equal counts are ordered by ascending lower-cased address, so
// ranking identical input always yields identical output.
func Rank(polls []Poll, w Window) []Entry {
	counts := map[string]int{}

	for _, p := range polls {
		for _, r := range p.ResponsesWithAddress {
			if !w.contains(r.Timestamp) {
				continue
			}

			counts[strings.ToLower(r.Address)]++
		}
	}

	entries := make([]Entry, 0, len(counts))
	for addr, count := range counts {
		entries = append(entries, Entry{
			Address: addr,
			Count:   count,
			Badge:   BadgeFor(count),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}

		return entries[i].Address < entries[j].Address
	})

	return entries
}

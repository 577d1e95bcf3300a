package poll

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBadgeFor(t *testing.T) {
	testCases := []struct {
		count    int
		expected Badge
	}{
		{0, BadgeNone},
		{49, BadgeNone},
		{50, BadgeBronze},
		{149, BadgeBronze},
		{150, BadgeSilver},
		{199, BadgeSilver},
		{200, BadgeGold},
		{1000, BadgeGold},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d", tc.count), func(t *testing.T) {
			if got := BadgeFor(tc.count); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func pollWithResponses(records ...ResponseRecord) Poll {
	return Poll{ResponsesWithAddress: records}
}

func TestRank(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	alice := "0x66aB6D9362d4F35596279692F0251Db635165871"
	bob := "0x5409ED021D9299bf6814279A6A1411A7e866A631"

	polls := []Poll{
		pollWithResponses(
			ResponseRecord{Address: alice, Timestamp: now},
			ResponseRecord{Address: bob, Timestamp: now},
		),
		pollWithResponses(
			// same responder, different casing, must count as one
			ResponseRecord{Address: "0x66ab6d9362d4f35596279692f0251db635165871", Timestamp: now},
		),
	}

	got := Rank(polls, AllTime())

	expected := []Entry{
		{Address: "0x66ab6d9362d4f35596279692f0251db635165871", Count: 2},
		{Address: "0x5409ed021d9299bf6814279a6a1411a7e866a631", Count: 1},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("unexpected ranking (-want +got):\n%s", diff)
	}
}

func TestRankTieBreak(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	// equal counts order by ascending lower-cased address
	polls := []Poll{
		pollWithResponses(
			ResponseRecord{Address: "0xBBBB000000000000000000000000000000000000", Timestamp: now},
			ResponseRecord{Address: "0xAAAA000000000000000000000000000000000000", Timestamp: now},
			ResponseRecord{Address: "0xCCCC000000000000000000000000000000000000", Timestamp: now},
		),
	}

	got := Rank(polls, AllTime())

	expected := []Entry{
		{Address: "0xaaaa000000000000000000000000000000000000", Count: 1},
		{Address: "0xbbbb000000000000000000000000000000000000", Count: 1},
		{Address: "0xcccc000000000000000000000000000000000000", Count: 1},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("unexpected ranking (-want +got):\n%s", diff)
	}
}

func TestRankDeterministic(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	polls := []Poll{}
	for i := 0; i < 20; i++ {
		polls = append(polls, pollWithResponses(
			ResponseRecord{Address: fmt.Sprintf("0x%040d", i%7), Timestamp: now},
		))
	}

	first := Rank(polls, AllTime())
	for i := 0; i < 50; i++ {
		if diff := cmp.Diff(first, Rank(polls, AllTime())); diff != "" {
			t.Fatalf("ranking changed between runs (-first +now):\n%s", diff)
		}
	}
}

func TestRankBadges(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	addr := "0xaaaa000000000000000000000000000000000000"

	records := make([]ResponseRecord, 0, 200)
	for i := 0; i < 200; i++ {
		records = append(records, ResponseRecord{Address: addr, Timestamp: now})
	}

	got := Rank([]Poll{pollWithResponses(records...)}, AllTime())

	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}

	if got[0].Badge != BadgeGold {
		t.Fatalf("expected %q, got %q", BadgeGold, got[0].Badge)
	}
}

func TestRankWindow(t *testing.T) {
	loc := time.UTC

	inMarch := time.Date(2024, 3, 15, 12, 0, 0, 0, loc)
	inFebruary := time.Date(2024, 2, 15, 12, 0, 0, 0, loc)

	alice := "0xaaaa000000000000000000000000000000000000"

	polls := []Poll{
		pollWithResponses(
			ResponseRecord{Address: alice, Timestamp: inMarch},
			ResponseRecord{Address: alice, Timestamp: inFebruary},
		),
	}

	month := Rank(polls, MonthOf(inMarch, loc))
	if len(month) != 1 || month[0].Count != 1 {
		t.Fatalf("expected 1 response in march, got %v", month)
	}

	all := Rank(polls, AllTime())
	if len(all) != 1 || all[0].Count != 2 {
		t.Fatalf("expected 2 responses all-time, got %v", all)
	}
}

func TestWeekOf(t *testing.T) {
	loc := time.UTC

	// 2024-03-15 is a Friday, the containing week runs Sunday 2024-03-10
	// through Saturday 2024-03-16
	friday := time.Date(2024, 3, 15, 12, 0, 0, 0, loc)

	w := WeekOf(friday, loc)

	expectedStart := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	if !w.Start.Equal(expectedStart) {
		t.Fatalf("expected week start %s, got %s", expectedStart, w.Start)
	}

	if !w.contains(time.Date(2024, 3, 10, 0, 0, 0, 0, loc)) {
		t.Fatal("expected sunday to be inside the week")
	}

	if !w.contains(time.Date(2024, 3, 16, 23, 59, 59, 0, loc)) {
		t.Fatal("expected saturday night to be inside the week")
	}

	if w.contains(time.Date(2024, 3, 17, 0, 0, 0, 0, loc)) {
		t.Fatal("expected next sunday to be outside the week")
	}

	if w.contains(time.Date(2024, 3, 9, 23, 59, 59, 0, loc)) {
		t.Fatal("expected previous saturday to be outside the week")
	}

	// a sunday maps to the week it starts
	sunday := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)
	if !WeekOf(sunday, loc).Start.Equal(expectedStart) {
		t.Fatal("expected sunday to start its own week")
	}
}

func TestMonthOf(t *testing.T) {
	loc := time.UTC

	w := MonthOf(time.Date(2024, 2, 29, 12, 0, 0, 0, loc), loc)

	if !w.contains(time.Date(2024, 2, 1, 0, 0, 0, 0, loc)) {
		t.Fatal("expected the first of the month to be inside")
	}

	if !w.contains(time.Date(2024, 2, 29, 23, 59, 59, 0, loc)) {
		t.Fatal("expected the last day of the month to be inside")
	}

	if w.contains(time.Date(2024, 3, 1, 0, 0, 0, 0, loc)) {
		t.Fatal("expected the next month to be outside")
	}
}

func TestWindowPartition(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, loc)

	// every hour of the surrounding year lands in exactly one month window
	months := []Window{}
	for m := time.January; m <= time.December; m++ {
		months = append(months, MonthOf(time.Date(2024, m, 5, 0, 0, 0, 0, loc), loc))
	}

	for d := 0; d < 366; d++ {
		ts := now.AddDate(0, 0, -d)
		if ts.Year() != 2024 {
			continue
		}

		matches := 0
		for _, w := range months {
			if w.contains(ts) {
				matches++
			}
		}

		if matches != 1 {
			t.Fatalf("%s matched %d month windows", ts, matches)
		}
	}
}

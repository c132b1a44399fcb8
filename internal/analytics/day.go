package analytics

import "time"

// DayKey identifies one calendar day in a fixed location, e.g. "2026-08-31".
// All day-boundary arithmetic in this package goes through NormalizeDay so the
// boundary convention lives in exactly one place.
type DayKey string

const dayKeyLayout = "2006-01-02"

func NormalizeDay(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.UTC
	}
	return DayKey(t.In(loc).Format(dayKeyLayout))
}

// DayStart returns midnight of the day containing t, in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// AddDays walks a DayKey by calendar days, which is safe across DST changes
// because the key carries no clock time.
func (k DayKey) AddDays(n int, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dayKeyLayout, string(k), loc)
	if err != nil {
		return k
	}
	return DayKey(t.AddDate(0, 0, n).Format(dayKeyLayout))
}

// daySet indexes daily records by normalized day for streak and window math.
func daySet(dates []time.Time, loc *time.Location) map[DayKey]bool {
	set := make(map[DayKey]bool, len(dates))
	for _, d := range dates {
		set[NormalizeDay(d, loc)] = true
	}
	return set
}

// longestRun returns the longest run of consecutive days present in the set.
func longestRun(set map[DayKey]bool, loc *time.Location) int {
	longest := 0
	for day := range set {
		// Only count from the start of a run.
		if set[day.AddDays(-1, loc)] {
			continue
		}
		length := 1
		next := day.AddDays(1, loc)
		for set[next] {
			length++
			next = next.AddDays(1, loc)
		}
		if length > longest {
			longest = length
		}
	}
	return longest
}

// runEndingAt counts consecutive days present in the set walking backwards
// from end inclusive. A missing end day yields zero.
func runEndingAt(set map[DayKey]bool, end DayKey, loc *time.Location) int {
	count := 0
	day := end
	for set[day] {
		count++
		day = day.AddDays(-1, loc)
	}
	return count
}

// Package months provides UTC calendar-month interval arithmetic for revenue
// bucketing. All functions operate on the UTC calendar only; there is no
// timezone or DST handling anywhere in a bucket boundary.
package months

import "time"

// Key is the label format of a month bucket ("YYYY-MM").
const keyLayout = "2006-01"

// Bucket is a half-open UTC interval [Start, End) aligned to calendar-month
// boundaries, with End exactly one calendar month after Start.
type Bucket struct {
	Key   string
	Start time.Time
	End   time.Time
}

// StartOfMonth truncates t to the first instant of its UTC calendar month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves t forward n calendar months (n may be negative), snapping to
// the first instant of the resulting month.
func AddMonths(t time.Time, n int) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// Key renders the "YYYY-MM" label of t's UTC calendar month.
func Key(t time.Time) string {
	return t.UTC().Format(keyLayout)
}

// DefaultRange returns [end - lookbackMonths, end) where end is the first
// instant of the month after now, so the current partial month is included.
func DefaultRange(now time.Time, lookbackMonths int) (start, end time.Time) {
	end = AddMonths(StartOfMonth(now), 1)
	start = AddMonths(end, -lookbackMonths)
	return start, end
}

// Iterate produces the ascending sequence of month buckets covering
// [start, end), aligned to start's month. An empty interval yields no buckets.
func Iterate(start, end time.Time) []Bucket {
	var buckets []Bucket
	for d := StartOfMonth(start); d.Before(end); d = AddMonths(d, 1) {
		buckets = append(buckets, Bucket{
			Key:   Key(d),
			Start: d,
			End:   AddMonths(d, 1),
		})
	}
	return buckets
}

// Overlap returns the duration shared by the half-open intervals [aStart, aEnd)
// and [bStart, bEnd), clamped at zero.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

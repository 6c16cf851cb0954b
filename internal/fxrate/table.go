package fxrate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// maxLookbackDays bounds the backward scan for the closest business-day
// snapshot before the table falls back to its newest date.
const maxLookbackDays = 10

const dateLayout = "2006-01-02"

// Table is an immutable snapshot of the historical daily reference-rate data:
// for each published date, the units of each currency per 1 EUR. EUR itself is
// present in every snapshot with rate 1.
type Table struct {
	fetchedAt   time.Time
	ratesByDate map[string]map[string]decimal.Decimal
	datesDesc   []string
	currencies  map[string]struct{}
}

func newTable(fetchedAt time.Time, ratesByDate map[string]map[string]decimal.Decimal) *Table {
	dates := make([]string, 0, len(ratesByDate))
	currencies := make(map[string]struct{})
	for date, rates := range ratesByDate {
		dates = append(dates, date)
		for code := range rates {
			currencies[code] = struct{}{}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return &Table{
		fetchedAt:   fetchedAt,
		ratesByDate: ratesByDate,
		datesDesc:   dates,
		currencies:  currencies,
	}
}

// FetchedAt reports when the table was loaded, for freshness decisions.
func (t *Table) FetchedAt() time.Time {
	return t.fetchedAt
}

// Currencies returns the sorted set of every currency the table has observed.
func (t *Table) Currencies() []string {
	out := make([]string, 0, len(t.currencies))
	for code := range t.currencies {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// resolve finds the rate snapshot for the most recent published date at or
// before the requested date, scanning back up to maxLookbackDays calendar
// days. Beyond that it falls back to the newest date in the table, which may
// lie after the requested date; callers treat that as a degraded-accuracy
// approximation, not an error.
func (t *Table) resolve(at time.Time) (date string, rates map[string]decimal.Decimal, exact bool) {
	at = at.UTC()
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)

	for i := 0; i < maxLookbackDays; i++ {
		key := day.Format(dateLayout)
		if r, ok := t.ratesByDate[key]; ok {
			return key, r, true
		}
		day = day.AddDate(0, 0, -1)
	}

	newest := t.datesDesc[0]
	return newest, t.ratesByDate[newest], false
}

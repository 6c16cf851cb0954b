// Package domain defines the MRR report results. Every numeric field stays an
// exact decimal until the HTTP boundary renders display numbers.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Converter translates a major-unit amount between currencies as of a
// historical date. It is a pure function of (amount, from, to, date) against
// an immutable-for-that-date rate table.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, at time.Time) (decimal.Decimal, error)
}

// CurrencyRow is the per-currency snapshot subtotal.
type CurrencyRow struct {
	Currency      string
	MRR           decimal.Decimal
	MRRBase       decimal.Decimal
	Subscriptions int
}

// SnapshotResult is the point-in-time run-rate across active and trialing
// subscriptions. ByCurrency is ordered by descending MRRBase; TotalBase is the
// sum of the rows, never recomputed independently. SubscriptionsCount counts
// every fetched subscription, including ones skipped from the rows.
type SnapshotResult struct {
	TotalBase          decimal.Decimal
	SubscriptionsCount int
	ByCurrency         []CurrencyRow
	Warnings           []string
}

// MonthValue is the recognized revenue for one calendar month.
type MonthValue struct {
	Month   string
	MRRBase decimal.Decimal
}

// RecognizedResult is revenue from paid invoices allocated across the
// calendar months their service periods cover, in chronological order.
type RecognizedResult struct {
	Months   []MonthValue
	Warnings []string
}

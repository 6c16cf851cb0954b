// Package domain defines the source-agnostic billing records the aggregators
// consume. The Stripe adapter maps provider payloads into these types at the
// data-source edge; amounts are exact decimals from there on.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus enumerates the subscription states that contribute to
// point-in-time run-rate.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
)

// Interval is the closed set of recurring billing intervals. Anything outside
// this set reaching the aggregators is a programming defect, not bad input.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// UsageType distinguishes licensed (quantity-priced) from metered pricing.
type UsageType string

const (
	UsageTypeLicensed UsageType = "licensed"
	UsageTypeMetered  UsageType = "metered"
)

// BillingScheme distinguishes strictly per-unit pricing from tiered schemes.
type BillingScheme string

const (
	BillingSchemePerUnit BillingScheme = "per_unit"
	BillingSchemeTiered  BillingScheme = "tiered"
)

// Recurring describes a price's billing cadence.
type Recurring struct {
	Interval      Interval
	IntervalCount int64
	UsageType     UsageType
}

// Price is the recurring price attached to a subscription item. Recurring is
// nil for one-off prices; UnitAmountMinor is nil when the source exposes no
// resolvable per-unit amount.
type Price struct {
	Currency        string
	UnitAmountMinor *decimal.Decimal
	BillingScheme   BillingScheme
	Recurring       *Recurring
}

// SubscriptionItem is one line of a subscription.
type SubscriptionItem struct {
	ID       string
	Quantity int64
	Price    *Price
}

// Subscription is an active or trialing billing agreement. Currency may be
// empty; consumers fall back to the first item's price currency.
type Subscription struct {
	ID       string
	Currency string
	Items    []SubscriptionItem
}

// Period is a half-open service period [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// InvoiceLine is one line of a paid invoice. AmountMinor carries the
// tax-excluded amount when the source provides one, the raw line amount
// otherwise, in the invoice currency's minor unit. Period is nil when the
// source omits either timestamp, which is expected for some line types.
type InvoiceLine struct {
	ID                string
	Proration         bool
	SubscriptionLine  bool
	HasRecurringPrice bool
	Period            *Period
	AmountMinor       decimal.Decimal
}

// Invoice is a paid invoice with its creation time and line items. Currency
// is inherited by every line.
type Invoice struct {
	ID       string
	Currency string
	Created  time.Time
	Lines    []InvoiceLine
}

// Source lists billing records from the upstream provider. Implementations
// drain the provider's cursor pagination and return complete record sets; a
// returned error means the source is unreachable or malformed and the whole
// report request must fail.
type Source interface {
	ListSubscriptions(ctx context.Context, status SubscriptionStatus) ([]Subscription, error)
	ListPaidInvoices(ctx context.Context, createdGTE, createdLT time.Time) ([]Invoice, error)
}

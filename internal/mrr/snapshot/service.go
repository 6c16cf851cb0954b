// Package snapshot computes the point-in-time monthly run-rate from active and
// trialing subscriptions' list prices, ignoring invoicing history.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/revport/internal/billing/domain"
	"github.com/smallbiznis/revport/internal/metrics"
	"github.com/smallbiznis/revport/internal/money"
	mrrdomain "github.com/smallbiznis/revport/internal/mrr/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Monthly-equivalent factors for sub-month intervals, on the Gregorian mean:
// 365.2425 days per year, a twelfth of that per month.
var (
	daysPerMonth  = decimal.RequireFromString("365.2425").Div(decimal.NewFromInt(12))
	weeksPerMonth = daysPerMonth.Div(decimal.NewFromInt(7))
)

type Service struct {
	source billingdomain.Source
	fx     mrrdomain.Converter
	log    *zap.Logger
	mtr    *metrics.Metrics
}

type Params struct {
	fx.In

	Source    billingdomain.Source
	Converter mrrdomain.Converter
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

func NewService(p Params) *Service {
	return &Service{
		source: p.Source,
		fx:     p.Converter,
		log:    p.Log.Named("mrr.snapshot"),
		mtr:    p.Metrics,
	}
}

// Compute aggregates the current run-rate normalized into baseCurrency, with
// FX rates resolved as of at. A source fetch failure fails the whole request;
// defective records are skipped with a warning instead.
func (s *Service) Compute(ctx context.Context, baseCurrency string, at time.Time) (mrrdomain.SnapshotResult, error) {
	baseCurrency = money.Normalize(baseCurrency)

	var active, trialing []billingdomain.Subscription
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = s.source.ListSubscriptions(gctx, billingdomain.SubscriptionStatusActive)
		return err
	})
	g.Go(func() error {
		var err error
		trialing, err = s.source.ListSubscriptions(gctx, billingdomain.SubscriptionStatusTrialing)
		return err
	})
	if err := g.Wait(); err != nil {
		return mrrdomain.SnapshotResult{}, err
	}

	subscriptions := append(active, trialing...)

	warnings := []string{}
	byCurrency := make(map[string]*mrrdomain.CurrencyRow)

	for _, sub := range subscriptions {
		if len(sub.Items) == 0 {
			continue
		}

		currency := sub.Currency
		if currency == "" && sub.Items[0].Price != nil {
			currency = money.Normalize(sub.Items[0].Price.Currency)
		}
		if currency == "" {
			warnings = s.warn(warnings, fmt.Sprintf("Subscription %s has no currency; skipped.", sub.ID))
			continue
		}

		total := decimal.Zero
		for _, item := range sub.Items {
			monthly, warning := s.itemMonthly(item)
			if warning != "" {
				warnings = s.warn(warnings, warning)
				continue
			}
			total = total.Add(monthly)
		}

		// Zero or negative run-rate subscriptions are not reported.
		if total.Sign() <= 0 {
			continue
		}

		totalBase, err := s.fx.Convert(ctx, total, currency, baseCurrency, at)
		if err != nil {
			warnings = s.warn(warnings, fmt.Sprintf(
				"FX conversion failed for %s -> %s (subscription %s): %v", currency, baseCurrency, sub.ID, err))
			continue
		}

		row, ok := byCurrency[currency]
		if !ok {
			row = &mrrdomain.CurrencyRow{Currency: currency}
			byCurrency[currency] = row
		}
		row.MRR = row.MRR.Add(total)
		row.MRRBase = row.MRRBase.Add(totalBase)
		row.Subscriptions++
	}

	rows := make([]mrrdomain.CurrencyRow, 0, len(byCurrency))
	for _, row := range byCurrency {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].MRRBase.Cmp(rows[j].MRRBase); c != 0 {
			return c > 0
		}
		return rows[i].Currency < rows[j].Currency
	})

	// The grand total is the sum of the rows so the two can never disagree.
	totalBase := decimal.Zero
	for _, row := range rows {
		totalBase = totalBase.Add(row.MRRBase)
	}

	return mrrdomain.SnapshotResult{
		TotalBase:          totalBase,
		SubscriptionsCount: len(subscriptions),
		ByCurrency:         rows,
		Warnings:           warnings,
	}, nil
}

// itemMonthly resolves one subscription item to its monthly-equivalent amount
// in the item's own currency. A non-empty warning means the item is skipped.
func (s *Service) itemMonthly(item billingdomain.SubscriptionItem) (decimal.Decimal, string) {
	price := item.Price
	if price == nil || price.Recurring == nil {
		// Non-recurring lines carry no run-rate; expected, no warning.
		return decimal.Zero, ""
	}

	recurring := price.Recurring
	if recurring.UsageType != "" && recurring.UsageType != billingdomain.UsageTypeLicensed {
		return decimal.Decimal{}, fmt.Sprintf("Subscription item %s is metered usage; skipped for snapshot MRR.", item.ID)
	}
	if price.BillingScheme != "" && price.BillingScheme != billingdomain.BillingSchemePerUnit {
		return decimal.Decimal{}, fmt.Sprintf("Subscription item %s uses %s billing; skipped for snapshot MRR.", item.ID, price.BillingScheme)
	}
	if price.UnitAmountMinor == nil {
		return decimal.Decimal{}, fmt.Sprintf("Subscription item %s has no unit amount; skipped for snapshot MRR.", item.ID)
	}

	amountMinor := price.UnitAmountMinor.Mul(decimal.NewFromInt(item.Quantity))
	amountMajor, err := money.MinorToMajor(amountMinor, price.Currency)
	if err != nil {
		return decimal.Decimal{}, fmt.Sprintf("Subscription item %s has unrecognized currency %q; skipped for snapshot MRR.", item.ID, price.Currency)
	}

	return normalizeMonthly(amountMajor, recurring.Interval, recurring.IntervalCount), ""
}

// normalizeMonthly converts an amount billed once per interval into its
// monthly equivalent. The interval set is closed; an unknown value is a defect
// in the source adapter, not bad input.
func normalizeMonthly(amount decimal.Decimal, interval billingdomain.Interval, intervalCount int64) decimal.Decimal {
	if intervalCount < 1 {
		intervalCount = 1
	}
	count := decimal.NewFromInt(intervalCount)

	switch interval {
	case billingdomain.IntervalMonth:
		return amount.Div(count)
	case billingdomain.IntervalYear:
		return amount.Div(decimal.NewFromInt(12).Mul(count))
	case billingdomain.IntervalWeek:
		return amount.Mul(weeksPerMonth).Div(count)
	case billingdomain.IntervalDay:
		return amount.Mul(daysPerMonth).Div(count)
	default:
		panic(fmt.Sprintf("unhandled billing interval %q", interval))
	}
}

func (s *Service) warn(warnings []string, message string) []string {
	s.log.Warn(message)
	s.mtr.RecordSkippedRecord("snapshot")
	return append(warnings, message)
}

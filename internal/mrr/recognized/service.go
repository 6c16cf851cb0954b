// Package recognized computes revenue recognized per calendar month from paid
// invoices, pro-rated across each line's service period.
package recognized

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/revport/internal/billing/domain"
	"github.com/smallbiznis/revport/internal/metrics"
	"github.com/smallbiznis/revport/internal/money"
	"github.com/smallbiznis/revport/internal/months"
	mrrdomain "github.com/smallbiznis/revport/internal/mrr/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// createdLookback widens the invoice query window: an annual invoice created
// long before the report window can still have a service period inside it.
const createdLookback = 400 * 24 * time.Hour

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
		log:    p.Log.Named("mrr.recognized"),
		mtr:    p.Metrics,
	}
}

// Compute allocates paid-invoice revenue into the month buckets covering
// [start, end), normalized into baseCurrency at each invoice's creation time.
// Source fetch failure fails the request; defective invoices and lines are
// skipped with a warning.
func (s *Service) Compute(ctx context.Context, baseCurrency string, start, end time.Time) (mrrdomain.RecognizedResult, error) {
	baseCurrency = money.Normalize(baseCurrency)

	buckets := months.Iterate(start, end)
	values := make(map[string]decimal.Decimal, len(buckets))
	for _, b := range buckets {
		values[b.Key] = decimal.Zero
	}

	invoices, err := s.source.ListPaidInvoices(ctx, start.Add(-createdLookback), end)
	if err != nil {
		return mrrdomain.RecognizedResult{}, err
	}

	warnings := []string{}

	for _, invoice := range invoices {
		if invoice.Currency == "" {
			warnings = s.warn(warnings, fmt.Sprintf("Invoice %s has no currency; skipped.", invoice.ID))
			continue
		}
		if len(invoice.Lines) == 0 {
			continue
		}
		if _, err := money.FractionDigits(invoice.Currency); err != nil {
			warnings = s.warn(warnings, fmt.Sprintf("Invoice %s has unrecognized currency %q; skipped.", invoice.ID, invoice.Currency))
			continue
		}

		for _, line := range invoice.Lines {
			if !includeLine(line) {
				continue
			}
			// Lines without a full service period are expected (e.g. one-off
			// invoice items); excluded silently.
			if line.Period == nil {
				continue
			}
			if line.AmountMinor.IsZero() {
				continue
			}

			amountMajor, err := money.MinorToMajor(line.AmountMinor, invoice.Currency)
			if err != nil {
				warnings = s.warn(warnings, fmt.Sprintf("Invoice line %s: %v; skipped.", line.ID, err))
				continue
			}

			amountBase, err := s.fx.Convert(ctx, amountMajor, invoice.Currency, baseCurrency, invoice.Created)
			if err != nil {
				warnings = s.warn(warnings, fmt.Sprintf(
					"FX conversion failed for invoice %s (%s -> %s): %v", invoice.ID, invoice.Currency, baseCurrency, err))
				continue
			}

			allocate(buckets, *line.Period, amountBase, values)
		}
	}

	out := make([]mrrdomain.MonthValue, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, mrrdomain.MonthValue{Month: b.Key, MRRBase: values[b.Key]})
	}

	return mrrdomain.RecognizedResult{Months: out, Warnings: warnings}, nil
}

// includeLine keeps full-period recurring charges: not a proration adjustment,
// and either priced by a recurring price or typed as a subscription line.
// Proration noise is expected on real invoices and excluded silently.
func includeLine(line billingdomain.InvoiceLine) bool {
	if line.Proration {
		return false
	}
	return line.HasRecurringPrice || line.SubscriptionLine
}

// allocate distributes a base-currency amount across the buckets overlapping
// the line's service period, proportional to time overlap. A degenerate
// (zero or negative) period contributes nothing; so does a period entirely
// outside the buckets.
func allocate(buckets []months.Bucket, period billingdomain.Period, amountBase decimal.Decimal, values map[string]decimal.Decimal) {
	totalDur := period.End.Sub(period.Start)
	if totalDur <= 0 {
		return
	}
	total := decimal.NewFromInt(int64(totalDur))

	for _, bucket := range buckets {
		overlap := months.Overlap(period.Start, period.End, bucket.Start, bucket.End)
		if overlap <= 0 {
			continue
		}
		ratio := decimal.NewFromInt(int64(overlap)).Div(total)
		values[bucket.Key] = values[bucket.Key].Add(amountBase.Mul(ratio))
	}
}

func (s *Service) warn(warnings []string, message string) []string {
	s.log.Warn(message)
	s.mtr.RecordSkippedRecord("recognized")
	return append(warnings, message)
}

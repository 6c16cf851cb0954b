// Package stripe adapts the Stripe API to the billing source interface.
package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revport/internal/billing/domain"
	"github.com/smallbiznis/revport/internal/config"
	"github.com/smallbiznis/revport/internal/money"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// pageLimit is Stripe's maximum page size; the iterators follow has_more with
// the last record's id as the starting_after cursor.
const pageLimit = 100

// Client lists subscriptions and paid invoices from Stripe.
type Client struct {
	api *client.API
	log *zap.Logger
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func New(p Params) *Client {
	api := &client.API{}
	api.Init(p.Cfg.StripeSecretKey, nil)
	return &Client{
		api: api,
		log: p.Log.Named("billing.stripe"),
	}
}

// ListSubscriptions drains the paginated subscription listing for one status,
// with each item's price expanded inline.
func (c *Client) ListSubscriptions(ctx context.Context, status domain.SubscriptionStatus) ([]domain.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Status: stripe.String(string(status)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(pageLimit)
	params.AddExpand("data.items.data.price")

	var out []domain.Subscription
	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		out = append(out, mapSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list %s subscriptions: %w", status, err)
	}

	c.log.Debug("listed subscriptions", zap.String("status", string(status)), zap.Int("count", len(out)))
	return out, nil
}

// ListPaidInvoices drains the paginated paid-invoice listing for invoices
// created within [createdGTE, createdLT), with line prices expanded.
func (c *Client) ListPaidInvoices(ctx context.Context, createdGTE, createdLT time.Time) ([]domain.Invoice, error) {
	params := &stripe.InvoiceListParams{
		Status: stripe.String(string(stripe.InvoiceStatusPaid)),
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: createdGTE.Unix(),
			LesserThan:         createdLT.Unix(),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(pageLimit)
	params.AddExpand("data.lines.data.price")

	var out []domain.Invoice
	iter := c.api.Invoices.List(params)
	for iter.Next() {
		out = append(out, mapInvoice(iter.Invoice()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list paid invoices: %w", err)
	}

	c.log.Debug("listed paid invoices", zap.Int("count", len(out)))
	return out, nil
}

func mapSubscription(s *stripe.Subscription) domain.Subscription {
	sub := domain.Subscription{
		ID:       s.ID,
		Currency: money.Normalize(string(s.Currency)),
	}
	if s.Items == nil {
		return sub
	}
	for _, item := range s.Items.Data {
		if item == nil {
			continue
		}
		sub.Items = append(sub.Items, domain.SubscriptionItem{
			ID:       item.ID,
			Quantity: item.Quantity,
			Price:    mapPrice(item.Price),
		})
	}
	return sub
}

func mapPrice(p *stripe.Price) *domain.Price {
	if p == nil {
		return nil
	}

	price := &domain.Price{
		Currency:      money.Normalize(string(p.Currency)),
		BillingScheme: domain.BillingScheme(p.BillingScheme),
	}

	// Integer minor units preferred; the decimal string form covers
	// sub-minor-unit prices. Both absent means no resolvable unit amount.
	if p.UnitAmount != 0 {
		amount := decimal.NewFromInt(p.UnitAmount)
		price.UnitAmountMinor = &amount
	} else if p.UnitAmountDecimal != 0 {
		amount := decimal.NewFromFloat(p.UnitAmountDecimal)
		price.UnitAmountMinor = &amount
	} else if p.BillingScheme == stripe.PriceBillingSchemePerUnit {
		// A per-unit price quotes an amount even when it is zero.
		amount := decimal.Zero
		price.UnitAmountMinor = &amount
	}

	if p.Recurring != nil {
		price.Recurring = &domain.Recurring{
			Interval:      domain.Interval(p.Recurring.Interval),
			IntervalCount: p.Recurring.IntervalCount,
			UsageType:     domain.UsageType(p.Recurring.UsageType),
		}
	}
	return price
}

func mapInvoice(inv *stripe.Invoice) domain.Invoice {
	out := domain.Invoice{
		ID:       inv.ID,
		Currency: money.Normalize(string(inv.Currency)),
		Created:  time.Unix(inv.Created, 0).UTC(),
	}
	if inv.Lines == nil {
		return out
	}
	for _, line := range inv.Lines.Data {
		if line == nil {
			continue
		}
		out.Lines = append(out.Lines, mapInvoiceLine(line))
	}
	return out
}

func mapInvoiceLine(line *stripe.InvoiceLineItem) domain.InvoiceLine {
	amount := line.Amount
	if line.AmountExcludingTax != 0 {
		amount = line.AmountExcludingTax
	}

	mapped := domain.InvoiceLine{
		ID:                line.ID,
		Proration:         line.Proration,
		SubscriptionLine:  line.Type == stripe.InvoiceLineItemTypeSubscription,
		HasRecurringPrice: line.Price != nil && line.Price.Recurring != nil,
		AmountMinor:       decimal.NewFromInt(amount),
	}

	if line.Period != nil && line.Period.Start > 0 && line.Period.End > 0 {
		mapped.Period = &domain.Period{
			Start: time.Unix(line.Period.Start, 0).UTC(),
			End:   time.Unix(line.Period.End, 0).UTC(),
		}
	}
	return mapped
}

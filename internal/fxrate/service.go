// Package fxrate answers historical cross-rate queries against a cached table
// of daily EUR reference rates.
package fxrate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revport/internal/clock"
	"github.com/smallbiznis/revport/internal/config"
	"github.com/smallbiznis/revport/internal/metrics"
	"github.com/smallbiznis/revport/internal/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// anchorCurrency is the currency all cross-rates are quoted against.
const anchorCurrency = "EUR"

// ErrUnsupportedCurrency marks a currency absent from the resolved rate
// snapshot. Callers treat it as a per-record failure, not a request abort.
var ErrUnsupportedCurrency = errors.New("currency not in FX rate table")

// Provider is the display name of the rate source, surfaced in report metadata.
const Provider = "ECB euro reference rates"

// Service loads, caches and queries the historical rate table. The table is
// the only shared mutable state across concurrent report requests: it is
// replaced atomically under the mutex, refreshed at most once per staleness
// window, with concurrent callers awaiting the same in-flight load.
type Service struct {
	url    string
	ttl    time.Duration
	client *http.Client
	clock  clock.Clock
	log    *zap.Logger
	mtr    *metrics.Metrics

	mu    sync.RWMutex
	table *Table

	group singleflight.Group
}

type Params struct {
	fx.In

	Cfg     config.Config
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewService(p Params) *Service {
	return newService(
		p.Cfg.ECBRatesURL,
		p.Cfg.FXRefreshInterval,
		&http.Client{Timeout: 30 * time.Second},
		p.Clock,
		p.Log.Named("fxrate"),
		p.Metrics,
	)
}

func newService(url string, ttl time.Duration, client *http.Client, clk clock.Clock, log *zap.Logger, mtr *metrics.Metrics) *Service {
	return &Service{
		url:    url,
		ttl:    ttl,
		client: client,
		clock:  clk,
		log:    log,
		mtr:    mtr,
	}
}

// Rate returns the cross-rate from one currency to another as of the given
// date: how many units of "to" one unit of "from" bought on the closest
// published date at or before it. Identical currencies short-circuit to 1
// without touching the table.
func (s *Service) Rate(ctx context.Context, from, to string, at time.Time) (decimal.Decimal, error) {
	from = money.Normalize(from)
	to = money.Normalize(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	table, err := s.load(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	date, rates, exact := table.resolve(at)
	if !exact {
		s.log.Debug("no rate snapshot within lookback, using newest available date",
			zap.Time("requested", at),
			zap.String("resolved", date),
		)
	}

	fromRate, ok := rates[from]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
	}
	toRate, ok := rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, to)
	}

	// Rates are quoted as units per 1 EUR; cross via the anchor:
	// amount_to = amount_from * (toPerEur / fromPerEur).
	return toRate.Div(fromRate), nil
}

// Convert translates a major-unit amount between currencies as of a date.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string, at time.Time) (decimal.Decimal, error) {
	rate, err := s.Rate(ctx, from, to, at)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}

// Currencies lists every currency the rate table has observed, sorted.
func (s *Service) Currencies(ctx context.Context) ([]string, error) {
	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return table.Currencies(), nil
}

// load returns the cached table while fresh and otherwise refreshes it. A
// failed refresh propagates to every waiter; the previous table, if any, is
// left in place so the next request retries instead of serving stale data
// forever.
func (s *Service) load(ctx context.Context) (*Table, error) {
	if table := s.fresh(); table != nil {
		return table, nil
	}

	result, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		// A waiter queued behind a finished refresh reuses its table.
		if table := s.fresh(); table != nil {
			return table, nil
		}

		ratesByDate, err := fetchECBRates(ctx, s.client, s.url)
		if err != nil {
			s.mtr.RecordFXRefresh("error")
			return nil, fmt.Errorf("refresh FX rate table: %w", err)
		}

		table := newTable(s.clock.Now(), ratesByDate)
		s.mu.Lock()
		s.table = table
		s.mu.Unlock()

		s.mtr.RecordFXRefresh("success")
		s.log.Info("FX rate table refreshed",
			zap.Int("dates", len(table.datesDesc)),
			zap.Int("currencies", len(table.currencies)),
		)
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Table), nil
}

func (s *Service) fresh() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table != nil && s.clock.Now().Sub(s.table.fetchedAt) < s.ttl {
		return s.table
	}
	return nil
}

// Module provides the FX rate service.
var Module = fx.Module("fxrate",
	fx.Provide(NewService),
)

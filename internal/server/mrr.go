package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/revport/internal/config"
	"github.com/smallbiznis/revport/internal/fxrate"
	"github.com/smallbiznis/revport/internal/money"
	"github.com/smallbiznis/revport/internal/months"
	mrrdomain "github.com/smallbiznis/revport/internal/mrr/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type currencyRowResponse struct {
	Currency      string  `json:"currency"`
	MRR           float64 `json:"mrr"`
	MRRBase       float64 `json:"mrrBase"`
	Subscriptions int     `json:"subscriptions"`
}

type snapshotResponse struct {
	TotalBase          float64               `json:"totalBase"`
	SubscriptionsCount int                   `json:"subscriptionsCount"`
	ByCurrency         []currencyRowResponse `json:"byCurrency"`
}

type monthValueResponse struct {
	Month   string  `json:"month"`
	MRRBase float64 `json:"mrrBase"`
}

type recognizedResponse struct {
	Months []monthValueResponse `json:"months"`
}

type reportMeta struct {
	FXProvider string   `json:"fxProvider"`
	Warnings   []string `json:"warnings"`
}

type mrrReportResponse struct {
	BaseCurrency string             `json:"baseCurrency"`
	GeneratedAt  string             `json:"generatedAt"`
	Snapshot     snapshotResponse   `json:"snapshot"`
	Recognized   recognizedResponse `json:"recognized"`
	Meta         reportMeta         `json:"meta"`
}

// GetMRRReport builds both report views in one pass: the point-in-time
// snapshot from active subscriptions and the recognized series from paid
// invoices. Reports are always computed from live data.
func (s *Server) GetMRRReport(c *gin.Context) {
	base, lookback, err := s.parseReportParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now().UTC()
	start, end := months.DefaultRange(now, lookback)

	var (
		snap mrrdomain.SnapshotResult
		rec  mrrdomain.RecognizedResult
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		snap, err = s.snapshot.Compute(ctx, base, now)
		return err
	})
	g.Go(func() error {
		var err error
		rec, err = s.recognized.Compute(ctx, base, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		s.mtr.RecordReportBuild("error")
		s.log.Error("report build failed", zap.String("base_currency", base), zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	s.mtr.RecordReportBuild("ok")

	byCurrency := make([]currencyRowResponse, 0, len(snap.ByCurrency))
	for _, row := range snap.ByCurrency {
		byCurrency = append(byCurrency, currencyRowResponse{
			Currency:      row.Currency,
			MRR:           money.Display(row.MRR),
			MRRBase:       money.Display(row.MRRBase),
			Subscriptions: row.Subscriptions,
		})
	}

	monthValues := make([]monthValueResponse, 0, len(rec.Months))
	for _, m := range rec.Months {
		monthValues = append(monthValues, monthValueResponse{
			Month:   m.Month,
			MRRBase: money.Display(m.MRRBase),
		})
	}

	warnings := append([]string{}, snap.Warnings...)
	warnings = append(warnings, rec.Warnings...)

	// Reports reflect live billing data; never cache them.
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, mrrReportResponse{
		BaseCurrency: base,
		GeneratedAt:  now.Format(time.RFC3339),
		Snapshot: snapshotResponse{
			TotalBase:          money.Display(snap.TotalBase),
			SubscriptionsCount: snap.SubscriptionsCount,
			ByCurrency:         byCurrency,
		},
		Recognized: recognizedResponse{Months: monthValues},
		Meta: reportMeta{
			FXProvider: fxrate.Provider,
			Warnings:   warnings,
		},
	})
}

// parseReportParams resolves the report base currency and lookback window:
// query overrides first, then the hot-reloadable reporting config.
func (s *Server) parseReportParams(c *gin.Context) (string, int, error) {
	reporting := s.reporting.Get()
	base := reporting.BaseCurrency
	lookback := reporting.LookbackMonths

	if raw := strings.TrimSpace(c.Query("base")); raw != "" {
		candidate := money.Normalize(raw)
		if err := config.ValidateBaseCurrency(candidate); err != nil {
			return "", 0, newValidationError("base", "invalid_base_currency", err.Error())
		}
		base = candidate
	}

	if raw := strings.TrimSpace(c.Query("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", 0, newValidationError("months", "invalid_months", "months must be an integer")
		}
		if err := config.ValidateLookbackMonths(n); err != nil {
			return "", 0, newValidationError("months", "invalid_months", err.Error())
		}
		lookback = n
	}

	return base, lookback, nil
}

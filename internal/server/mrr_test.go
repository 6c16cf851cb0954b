package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revport/internal/clock"
	"github.com/smallbiznis/revport/internal/config"
	mrrdomain "github.com/smallbiznis/revport/internal/mrr/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.March, 15, 12, 30, 0, 0, time.UTC)

type snapshotStub struct {
	result mrrdomain.SnapshotResult
	err    error

	gotBase string
	gotAt   time.Time
}

func (s *snapshotStub) Compute(_ context.Context, baseCurrency string, at time.Time) (mrrdomain.SnapshotResult, error) {
	s.gotBase = baseCurrency
	s.gotAt = at
	return s.result, s.err
}

type recognizedStub struct {
	result mrrdomain.RecognizedResult
	err    error

	gotBase  string
	gotStart time.Time
	gotEnd   time.Time
}

func (s *recognizedStub) Compute(_ context.Context, baseCurrency string, start, end time.Time) (mrrdomain.RecognizedResult, error) {
	s.gotBase = baseCurrency
	s.gotStart = start
	s.gotEnd = end
	return s.result, s.err
}

type catalogStub struct {
	currencies []string
	err        error
}

func (s *catalogStub) Currencies(context.Context) ([]string, error) {
	return s.currencies, s.err
}

func newTestServer(t *testing.T, snap snapshotService, rec recognizedService, catalog currencyCatalog) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	holder, err := config.NewReportingHolder(config.Config{
		BaseCurrency:   "USD",
		LookbackMonths: 12,
	})
	require.NoError(t, err)

	s := &Server{
		engine:     NewEngine(zap.NewNop(), nil),
		reporting:  holder,
		snapshot:   snap,
		recognized: rec,
		catalog:    catalog,
		clock:      clock.NewFakeClock(testNow),
		log:        zap.NewNop(),
	}
	s.registerAPIRoutes()
	return s
}

func doRequest(s *Server, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Engine().ServeHTTP(rr, req)
	return rr
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGetMRRReportResponseShape(t *testing.T) {
	snap := &snapshotStub{result: mrrdomain.SnapshotResult{
		TotalBase:          dec("19.9"),
		SubscriptionsCount: 2,
		ByCurrency: []mrrdomain.CurrencyRow{
			{Currency: "USD", MRR: dec("10"), MRRBase: dec("10"), Subscriptions: 1},
			{Currency: "EUR", MRR: dec("9"), MRRBase: dec("9.9"), Subscriptions: 1},
		},
		Warnings: []string{"snapshot warning"},
	}}
	rec := &recognizedStub{result: mrrdomain.RecognizedResult{
		Months: []mrrdomain.MonthValue{
			{Month: "2026-02", MRRBase: dec("18.123456789")},
			{Month: "2026-03", MRRBase: dec("19.9")},
		},
		Warnings: []string{"recognized warning"},
	}}

	rr := doRequest(newTestServer(t, snap, rec, &catalogStub{}), "/api/mrr")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var resp mrrReportResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, "USD", resp.BaseCurrency)
	assert.Equal(t, testNow.Format(time.RFC3339), resp.GeneratedAt)

	assert.Equal(t, 19.9, resp.Snapshot.TotalBase)
	assert.Equal(t, 2, resp.Snapshot.SubscriptionsCount)
	require.Len(t, resp.Snapshot.ByCurrency, 2)
	assert.Equal(t, "USD", resp.Snapshot.ByCurrency[0].Currency)
	assert.Equal(t, 10.0, resp.Snapshot.ByCurrency[0].MRR)
	assert.Equal(t, "EUR", resp.Snapshot.ByCurrency[1].Currency)
	assert.Equal(t, 9.9, resp.Snapshot.ByCurrency[1].MRRBase)

	require.Len(t, resp.Recognized.Months, 2)
	assert.Equal(t, "2026-02", resp.Recognized.Months[0].Month)
	// Display values are rounded to 6 decimal places.
	assert.Equal(t, 18.123457, resp.Recognized.Months[0].MRRBase)

	assert.Equal(t, "ECB euro reference rates", resp.Meta.FXProvider)
	assert.Equal(t, []string{"snapshot warning", "recognized warning"}, resp.Meta.Warnings)
}

func TestGetMRRReportUsesReportingDefaults(t *testing.T) {
	snap := &snapshotStub{}
	rec := &recognizedStub{}

	rr := doRequest(newTestServer(t, snap, rec, &catalogStub{}), "/api/mrr")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "USD", snap.gotBase)
	assert.Equal(t, testNow, snap.gotAt)

	assert.Equal(t, "USD", rec.gotBase)
	// 12 months ending after the current partial month.
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), rec.gotEnd)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), rec.gotStart)
}

func TestGetMRRReportQueryOverrides(t *testing.T) {
	snap := &snapshotStub{}
	rec := &recognizedStub{}

	rr := doRequest(newTestServer(t, snap, rec, &catalogStub{}), "/api/mrr?base=eur&months=3")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "EUR", snap.gotBase)
	assert.Equal(t, "EUR", rec.gotBase)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), rec.gotStart)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), rec.gotEnd)
}

func TestGetMRRReportRejectsInvalidBase(t *testing.T) {
	rr := doRequest(newTestServer(t, &snapshotStub{}, &recognizedStub{}, &catalogStub{}), "/api/mrr?base=us")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "base", resp.Error.Errors[0].Field)
}

func TestGetMRRReportRejectsInvalidMonths(t *testing.T) {
	for _, target := range []string{"/api/mrr?months=abc", "/api/mrr?months=0", "/api/mrr?months=61"} {
		rr := doRequest(newTestServer(t, &snapshotStub{}, &recognizedStub{}, &catalogStub{}), target)
		require.Equal(t, http.StatusBadRequest, rr.Code, target)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "validation_error", resp.Error.Type, target)
	}
}

func TestGetMRRReportUpstreamFailure(t *testing.T) {
	snap := &snapshotStub{err: errors.New("stripe unreachable")}

	rr := doRequest(newTestServer(t, snap, &recognizedStub{}, &catalogStub{}), "/api/mrr")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "service_unavailable", resp.Error.Type)
}

func TestListCurrencies(t *testing.T) {
	catalog := &catalogStub{currencies: []string{"EUR", "GBP", "JPY", "USD"}}

	rr := doRequest(newTestServer(t, &snapshotStub{}, &recognizedStub{}, catalog), "/api/currencies")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp currenciesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ECB euro reference rates", resp.Provider)
	assert.Equal(t, []string{"EUR", "GBP", "JPY", "USD"}, resp.Currencies)
}

func TestListCurrenciesUnavailable(t *testing.T) {
	catalog := &catalogStub{err: errors.New("ecb unreachable")}

	rr := doRequest(newTestServer(t, &snapshotStub{}, &recognizedStub{}, catalog), "/api/currencies")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth(t *testing.T) {
	rr := doRequest(newTestServer(t, &snapshotStub{}, &recognizedStub{}, &catalogStub{}), "/health")
	require.Equal(t, http.StatusOK, rr.Code)
}

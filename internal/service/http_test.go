package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-pattern-lab/internal/domain"
)

func tradeBody(t *testing.T, tr domain.TradeOutcome) io.Reader {
	t.Helper()
	gross := tr.GrossPnL
	data, err := json.Marshal(TradeRequest{
		Pair:         tr.Instrument,
		Leverage:     tr.Leverage,
		HoldSeconds:  tr.HoldSeconds,
		PositionSize: tr.PositionSize,
		PnL:          tr.NetPnL,
		GrossPnL:     &gross,
		Fees:         tr.FeesPaid,
		Timestamp:    tr.Timestamp,
		Reason:       tr.ExitReason,
		Volatility:   tr.VolatilityAtEntry,
	})
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHTTP_RecordTradeLifecycle(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	var last RecordResponse
	for i, tr := range winningSeries("XBTUSD", 2, 40, 25) {
		rec := do(t, h, http.MethodPost, "/trades", tradeBody(t, tr))
		require.Equal(t, http.StatusCreated, rec.Code, "trade %d: %s", i, rec.Body.String())
		last = decode[RecordResponse](t, rec)
	}

	require.True(t, last.Analyzed)
	require.NotNil(t, last.Report)
	assert.Equal(t, domain.AnalysisStatusComplete, last.Report.Status)
	require.Len(t, last.Report.Winners, 1)
	assert.Equal(t, "XBTUSD_2x_1", last.Report.Winners[0].Pattern)

	// strategy selection
	rec := do(t, h, http.MethodGet, "/strategy?instrument=XBTUSD&volatility=1.0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	best := decode[StrategyView](t, rec)
	assert.Equal(t, "XBTUSD_2x_1", best.Name)
	assert.True(t, best.IsValidated)
	assert.Equal(t, 45, best.HoldSeconds)

	rec = do(t, h, http.MethodGet, "/strategy?instrument=XBTUSD&volatility=0.1", nil)
	fallback := decode[StrategyView](t, rec)
	assert.Equal(t, domain.SafeDefaultName, fallback.Name)
	assert.False(t, fallback.IsValidated)
	assert.Zero(t, fallback.EstimatedEdge)

	// summary
	rec = do(t, h, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[map[string]any](t, rec)
	assert.EqualValues(t, 25, sum["total_trades"])
	assert.EqualValues(t, 1, sum["patterns_found"])
	assert.Contains(t, sum, "drawdown_risk")
	assert.Contains(t, sum, "win_rate_lower_95")

	// pattern lookups
	rec = do(t, h, http.MethodGet, "/patterns", nil)
	assert.Len(t, decode[[]PatternView](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/patterns/XBTUSD_2x_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, decode[PatternView](t, rec).TotalTrades)

	rec = do(t, h, http.MethodGet, "/patterns/XBTUSD_2x_1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]SnapshotView](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/strategies", nil)
	assert.Len(t, decode[[]StrategyView](t, rec), 1)
}

func TestHTTP_RecordTradeErrors(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)
	tr := winningSeries("XBTUSD", 2, 40, 1)[0]

	rec := do(t, h, http.MethodPost, "/trades", tradeBody(t, tr))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/trades", tradeBody(t, tr))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/trades", strings.NewReader(`{"pair":"XBTUSD","leverage":0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/trades", strings.NewReader(`{"pair":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/trades", strings.NewReader(`{"pair":"XBTUSD","leverage":2,"bogus":1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	assert.Equal(t, 1, f.svc.Engine().Len())
}

func TestHTTP_QueryErrors(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/strategy", http.StatusBadRequest},
		{"/strategy?instrument=XBTUSD&volatility=abc", http.StatusBadRequest},
		{"/strategy?instrument=XBTUSD&volatility=NaN", http.StatusBadRequest},
		{"/strategy?instrument=XBTUSD&volatility=-Inf", http.StatusBadRequest},
		{"/patterns/garbage", http.StatusBadRequest},
		{"/patterns/XBTUSD_2x_1", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodGet, tt.target, nil)
		assert.Equal(t, tt.want, rec.Code, tt.target)
		assert.Contains(t, decode[map[string]string](t, rec), "error")
	}
}

func TestHTTP_AnalyzeAndReport(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	rec := do(t, h, http.MethodPost, "/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AnalysisStatusInsufficientData, decode[ReportView](t, rec).Status)

	_, err := f.svc.ImportTrades(context.Background(), winningSeries("XBTUSD", 2, 40, 30))
	require.NoError(t, err)
	_, err = f.svc.Bootstrap(context.Background())
	require.NoError(t, err)

	rec = do(t, h, http.MethodPost, "/analyze", nil)
	report := decode[ReportView](t, rec)
	assert.Equal(t, domain.AnalysisStatusComplete, report.Status)
	assert.Equal(t, 30, report.TradeCount)

	rec = do(t, h, http.MethodGet, "/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "XBTUSD_2x_1")

	rec = do(t, h, http.MethodGet, "/correlations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]CorrelationView](t, rec))
}

func TestHTTP_HealthStatusMetrics(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusResponse](t, rec)
	assert.Equal(t, "running", status.Status)
	assert.Zero(t, status.StoredTrades)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/trades", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTP_WebsocketMounted(t *testing.T) {
	f := newFixture(t)
	called := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	h := NewHandler(f.svc, ws)

	do(t, h, http.MethodGet, "/ws", nil)
	assert.True(t, called)
}

func TestHTTP_Verify(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	for _, tr := range winningSeries("XBTUSD", 2, 40, 27) {
		rec := do(t, h, http.MethodPost, "/trades", tradeBody(t, tr))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string]any](t, rec)
	assert.EqualValues(t, 27, report["total_trades"])
	assert.EqualValues(t, 27, report["matched_trades"])
	assert.EqualValues(t, 25, report["replayed_trades"])
	assert.NotContains(t, report, "patterns")
}

func TestHTTP_TradesByInstrument(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	_, err := f.svc.ImportTrades(context.Background(),
		append(winningSeries("XBTUSD", 2, 40, 3), winningSeries("ETHUSD", 2, 40, 2)...))
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/trades?instrument=ETHUSD", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trades := decode[[]TradeView](t, rec)
	require.Len(t, trades, 2)
	assert.Equal(t, "ETHUSD", trades[0].Pair)
	assert.NotEmpty(t, trades[0].TradeID)
	assert.Less(t, trades[0].Timestamp, trades[1].Timestamp)

	rec = do(t, h, http.MethodGet, "/trades", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/status", nil)
	assert.Equal(t, 5, decode[StatusResponse](t, rec).StoredTrades)
}

func TestHTTP_Runs(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	rec := do(t, h, http.MethodGet, "/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var last RecordResponse
	for _, tr := range winningSeries("XBTUSD", 2, 40, 25) {
		rec := do(t, h, http.MethodPost, "/trades", tradeBody(t, tr))
		require.Equal(t, http.StatusCreated, rec.Code)
		last = decode[RecordResponse](t, rec)
	}
	require.True(t, last.Analyzed)

	rec = do(t, h, http.MethodGet, "/runs/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[RunView](t, rec)
	assert.Equal(t, last.Report.RunID, run.RunID)
	require.Len(t, run.Patterns, 1)
	assert.Equal(t, "XBTUSD_2x_1", run.Patterns[0].Pattern)

	rec = do(t, h, http.MethodGet, "/runs/"+run.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, run.RunID, decode[RunView](t, rec).RunID)

	rec = do(t, h, http.MethodGet, "/runs/01UNKNOWNRUN", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_VerifyTrade(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	rec := do(t, h, http.MethodPost, "/trades", tradeBody(t, winningSeries("XBTUSD", 2, 40, 1)[0]))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[RecordResponse](t, rec).TradeID

	rec = do(t, h, http.MethodGet, "/verify/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]any](t, rec)
	assert.Equal(t, id, res["trade_id"])
	assert.Equal(t, true, res["match"])

	rec = do(t, h, http.MethodGet, "/verify/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package service

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/observability"
	"trade-pattern-lab/internal/reporting"
	"trade-pattern-lab/internal/storage"
)

const maxBodyBytes = 1 << 20

// NewHandler returns the HTTP API. ws, if not nil, is mounted at /ws.
func NewHandler(s *Service, ws http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /trades", s.handleRecordTrade)
	mux.HandleFunc("GET /trades", s.handleTrades)
	mux.HandleFunc("GET /strategy", s.handleSelectStrategy)
	mux.HandleFunc("GET /strategies", s.handleStrategies)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /patterns", s.handlePatterns)
	mux.HandleFunc("GET /patterns/{key}", s.handlePattern)
	mux.HandleFunc("GET /patterns/{key}/history", s.handlePatternHistory)
	mux.HandleFunc("GET /correlations", s.handleCorrelations)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("GET /runs/latest", s.handleRun)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	mux.HandleFunc("GET /verify", s.handleVerify)
	mux.HandleFunc("GET /verify/{id}", s.handleVerifyTrade)

	if ws != nil {
		mux.Handle("/ws", ws)
	}
	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Trades       int    `json:"trades"`
	StoredTrades int    `json:"stored_trades"`
	Patterns     int    `json:"patterns"`
	Strategies   int    `json:"strategies"`
	LastRunID    string `json:"last_run_id,omitempty"`
	LastStatus   string `json:"last_status,omitempty"`
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	eng := s.Engine()
	sum := eng.Summary()
	last := eng.LastReport()
	stored, err := s.StoredCount(r.Context())
	if err != nil {
		s.logger.Warn("count stored trades failed", "error", err)
		stored = -1
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Trades:       sum.TotalTrades,
		StoredTrades: stored,
		Patterns:     sum.PatternCount,
		Strategies:   sum.StrategyCount,
		LastRunID:    last.RunID,
		LastStatus:   last.Status,
	})
}

func (s *Service) handleRecordTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode trade: "+err.Error())
		return
	}

	res, err := s.RecordTrade(r.Context(), req.Outcome())
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("record trade failed", "error", err)
		writeError(w, http.StatusInternalServerError, "record trade failed")
		return
	}

	resp := RecordResponse{TradeID: res.Trade.TradeID, Analyzed: res.Analyzed}
	if res.Analyzed {
		view := NewReportView(res.Report)
		resp.Report = &view
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) handleTrades(w http.ResponseWriter, r *http.Request) {
	instrument := r.URL.Query().Get("instrument")
	if instrument == "" {
		writeError(w, http.StatusBadRequest, "instrument is required")
		return
	}
	trades, err := s.TradesByInstrument(r.Context(), instrument)
	if err != nil {
		s.logger.Error("list trades failed", "instrument", instrument, "error", err)
		writeError(w, http.StatusInternalServerError, "list trades failed")
		return
	}
	out := make([]TradeView, len(trades))
	for i, t := range trades {
		out[i] = NewTradeView(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleSelectStrategy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	instrument := q.Get("instrument")
	if instrument == "" {
		writeError(w, http.StatusBadRequest, "instrument is required")
		return
	}
	var vol float64
	if v := q.Get("volatility"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			writeError(w, http.StatusBadRequest, "invalid volatility")
			return
		}
		vol = f
	}
	writeJSON(w, http.StatusOK, NewStrategyView(s.SelectStrategy(instrument, vol)))
}

func (s *Service) handleStrategies(w http.ResponseWriter, r *http.Request) {
	configs := s.Engine().Strategies()
	out := make([]StrategyView, len(configs))
	for i, c := range configs {
		out[i] = NewStrategyView(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	eng := s.Engine()
	writeJSON(w, http.StatusOK, SummaryView{
		Summary:        eng.Summary(),
		DrawdownRisk:   eng.EstimateDrawdownRisk(),
		WinRateLower95: eng.EstimateWinRateAtConfidence(0.95),
		LastRunID:      eng.LastReport().RunID,
	})
}

func (s *Service) handlePatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, patternViews(s.Engine().Patterns()))
}

func (s *Service) handlePattern(w http.ResponseWriter, r *http.Request) {
	key, err := domain.ParsePatternKey(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := s.Engine().PatternMetrics(key)
	if !ok {
		writeError(w, http.StatusNotFound, "pattern not found")
		return
	}
	writeJSON(w, http.StatusOK, NewPatternView(p))
}

func (s *Service) handlePatternHistory(w http.ResponseWriter, r *http.Request) {
	key, err := domain.ParsePatternKey(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.PatternHistory(r.Context(), key)
	if err != nil {
		s.logger.Error("pattern history failed", "pattern", key.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "pattern history failed")
		return
	}
	out := make([]SnapshotView, len(rows))
	for i, row := range rows {
		out[i] = SnapshotView{RunID: row.RunID, TakenAt: row.TakenAt, Pattern: NewPatternView(row.Metrics)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	pairs := s.Engine().Correlations()
	out := make([]CorrelationView, len(pairs))
	for i, c := range pairs {
		out[i] = CorrelationView{A: c.A.String(), B: c.B.String(), Correlation: c.Correlation}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRun serves /runs/latest and /runs/{id}.
func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	runID, rows, err := s.RunSnapshots(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
		return
	case err != nil:
		s.logger.Error("load run failed", "run_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "load run failed")
		return
	}
	view := RunView{RunID: runID, TakenAt: rows[0].TakenAt, Patterns: make([]PatternView, len(rows))}
	for i, row := range rows {
		view.Patterns[i] = NewPatternView(row.Metrics)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewReportView(s.Analyze(r.Context())))
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	report := reporting.NewGenerator(s.Engine()).WithClock(s.now).Generate()
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

func (s *Service) handleVerify(w http.ResponseWriter, r *http.Request) {
	report, err := s.Verify(r.Context())
	if err != nil {
		s.logger.Error("verify failed", "error", err)
		writeError(w, http.StatusInternalServerError, "verify failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleVerifyTrade(w http.ResponseWriter, r *http.Request) {
	res, err := s.VerifyTrade(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "trade not found")
		return
	case err != nil:
		s.logger.Error("verify trade failed", "trade_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "verify trade failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

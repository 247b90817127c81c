package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordTrade(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordTrade(5, 1)
	m.RecordTrade(-2, 2)

	if got := testutil.ToFloat64(m.TradesRecorded); got != 2 {
		t.Errorf("expected 2 trades recorded, got %f", got)
	}
	if got := testutil.ToFloat64(m.LedgerSize); got != 2 {
		t.Errorf("expected ledger size 2, got %f", got)
	}
}

func TestMetrics_RecordAnalysis(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordAnalysis("insufficient_data", 0.001, 0, 0, false, 100)
	if got := testutil.ToFloat64(m.LastSuccessfulAnalysis); got != 0 {
		t.Errorf("insufficient pass must not set last success, got %f", got)
	}

	m.RecordAnalysis("complete", 0.002, 7, 3, true, 200)
	if got := testutil.ToFloat64(m.AnalysisRunsTotal.WithLabelValues("complete")); got != 1 {
		t.Errorf("expected 1 complete run, got %f", got)
	}
	if got := testutil.ToFloat64(m.PatternsFound); got != 7 {
		t.Errorf("expected 7 patterns, got %f", got)
	}
	if got := testutil.ToFloat64(m.StrategiesActive); got != 3 {
		t.Errorf("expected 3 strategies, got %f", got)
	}
	if got := testutil.ToFloat64(m.RegimeShifts); got != 1 {
		t.Errorf("expected 1 regime shift, got %f", got)
	}
	if got := testutil.ToFloat64(m.LastSuccessfulAnalysis); got != 200 {
		t.Errorf("expected last success 200, got %f", got)
	}
}

func TestMetrics_RecordPublishAndSelection(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordPublish("redis", nil)
	m.RecordPublish("redis", errors.New("down"))
	m.RecordSelection(true)
	m.RecordSelection(false)
	m.RecordSelection(false)

	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("redis")); got != 1 {
		t.Errorf("expected 1 published, got %f", got)
	}
	if got := testutil.ToFloat64(m.PublishErrors.WithLabelValues("redis")); got != 1 {
		t.Errorf("expected 1 publish error, got %f", got)
	}
	if got := testutil.ToFloat64(m.StrategySelections.WithLabelValues("validated")); got != 2 {
		t.Errorf("expected 2 validated selections, got %f", got)
	}
}

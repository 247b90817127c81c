// Package ledger provides the append-only history of trade outcomes.
package ledger

import "trade-pattern-lab/internal/domain"

// DefaultBatchSize is the number of trades between analysis cycles.
const DefaultBatchSize = 25

// Ledger keeps trade outcomes in arrival order with a secondary index by
// instrument. It is not safe for concurrent use; the owning engine
// serializes access.
type Ledger struct {
	batchSize    int
	trades       []domain.TradeOutcome
	byInstrument map[string][]int // positions into trades, ascending
}

// New creates an empty ledger. A non-positive batch size uses DefaultBatchSize.
func New(batchSize int) *Ledger {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Ledger{
		batchSize:    batchSize,
		byInstrument: make(map[string][]int),
	}
}

// Append records a trade and reports whether the new length is a positive
// multiple of the batch size.
func (l *Ledger) Append(t domain.TradeOutcome) (batchDue bool) {
	l.trades = append(l.trades, t)
	pos := len(l.trades) - 1
	l.byInstrument[t.Instrument] = append(l.byInstrument[t.Instrument], pos)
	return len(l.trades)%l.batchSize == 0
}

// Len returns the number of recorded trades.
func (l *Ledger) Len() int {
	return len(l.trades)
}

// BatchSize returns the analysis batch size.
func (l *Ledger) BatchSize() int {
	return l.batchSize
}

// All returns a copy of every trade in arrival order.
func (l *Ledger) All() []domain.TradeOutcome {
	out := make([]domain.TradeOutcome, len(l.trades))
	copy(out, l.trades)
	return out
}

// ByInstrument returns a copy of the instrument's trades in arrival order.
func (l *Ledger) ByInstrument(instrument string) []domain.TradeOutcome {
	idx := l.byInstrument[instrument]
	out := make([]domain.TradeOutcome, len(idx))
	for i, pos := range idx {
		out[i] = l.trades[pos]
	}
	return out
}

// Instruments returns the number of distinct instruments recorded.
func (l *Ledger) Instruments() int {
	return len(l.byInstrument)
}

// Last returns a copy of the most recent n trades (fewer if the ledger is smaller).
func (l *Ledger) Last(n int) []domain.TradeOutcome {
	if n <= 0 {
		return nil
	}
	if n > len(l.trades) {
		n = len(l.trades)
	}
	out := make([]domain.TradeOutcome, n)
	copy(out, l.trades[len(l.trades)-n:])
	return out
}

// ROIs returns the ROI series of every trade in arrival order.
func (l *Ledger) ROIs() []float64 {
	out := make([]float64, len(l.trades))
	for i, t := range l.trades {
		out[i] = t.ROI()
	}
	return out
}

// Totals returns win count and summed net P&L across the ledger.
func (l *Ledger) Totals() (wins int, totalPnL float64) {
	for _, t := range l.trades {
		if t.IsWin() {
			wins++
		}
		totalPnL += t.NetPnL
	}
	return wins, totalPnL
}

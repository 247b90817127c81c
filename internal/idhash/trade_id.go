// Package idhash derives deterministic and time-sortable identifiers.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"

	"trade-pattern-lab/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(instrument|timestamp|entry|exit|leverage|hold|size|net_pnl|exit_reason)
// Returns the base58-encoded hash.
func ComputeTradeID(t domain.TradeOutcome) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%d|%s|%s|%s",
		t.Instrument,
		t.Timestamp,
		formatFloat(t.EntryPrice),
		formatFloat(t.ExitPrice),
		formatFloat(t.Leverage),
		t.HoldSeconds,
		formatFloat(t.PositionSize),
		formatFloat(t.NetPnL),
		t.ExitReason,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// formatFloat renders the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

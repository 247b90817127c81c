// Package document reads and writes the portable trade ledger document.
//
// The document is JSON unless the path ends in .yaml or .yml:
//
//	{"version": "1.0", "total_trades": 2, "trades": [
//	  {"pair": "XBTUSD", "entry": 64000, "exit": 64100, "leverage": 2, "pnl": 1.5, "reason": "take_profit"},
//	  ...
//	]}
//
// The remaining outcome fields are optional so that minimal documents load.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"trade-pattern-lab/internal/domain"
)

// Version is the only document version this package reads and writes.
const Version = "1.0"

// ErrUnsupportedVersion is returned for documents with another version.
var ErrUnsupportedVersion = errors.New("unsupported ledger document version")

// Format selects the document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the serialized ledger.
type Document struct {
	Version     string  `json:"version" yaml:"version"`
	TotalTrades int     `json:"total_trades" yaml:"total_trades"`
	Trades      []Trade `json:"trades" yaml:"trades"`
}

// Trade is one serialized outcome.
type Trade struct {
	Pair     string  `json:"pair" yaml:"pair"`
	Entry    float64 `json:"entry" yaml:"entry"`
	Exit     float64 `json:"exit" yaml:"exit"`
	Leverage float64 `json:"leverage" yaml:"leverage"`
	PnL      float64 `json:"pnl" yaml:"pnl"`
	Reason   string  `json:"reason" yaml:"reason"`

	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	HoldSeconds  int      `json:"hold_seconds,omitempty" yaml:"hold_seconds,omitempty"`
	PositionSize float64  `json:"position_size,omitempty" yaml:"position_size,omitempty"`
	GrossPnL     *float64 `json:"gross_pnl,omitempty" yaml:"gross_pnl,omitempty"`
	Fees         float64  `json:"fees,omitempty" yaml:"fees,omitempty"`
	Timestamp    int64    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Volatility   float64  `json:"volatility,omitempty" yaml:"volatility,omitempty"`
	Spread       float64  `json:"spread,omitempty" yaml:"spread,omitempty"`
}

// FromTrades builds a document for the given outcomes in order.
func FromTrades(trades []domain.TradeOutcome) Document {
	doc := Document{
		Version:     Version,
		TotalTrades: len(trades),
		Trades:      make([]Trade, len(trades)),
	}
	for i, t := range trades {
		gross := t.GrossPnL
		doc.Trades[i] = Trade{
			Pair:         t.Instrument,
			Entry:        t.EntryPrice,
			Exit:         t.ExitPrice,
			Leverage:     t.Leverage,
			PnL:          t.NetPnL,
			Reason:       t.ExitReason,
			ID:           t.TradeID,
			HoldSeconds:  t.HoldSeconds,
			PositionSize: t.PositionSize,
			GrossPnL:     &gross,
			Fees:         t.FeesPaid,
			Timestamp:    t.Timestamp,
			Volatility:   t.VolatilityAtEntry,
			Spread:       t.SpreadAtEntry,
		}
	}
	return doc
}

// Outcomes converts the document back into trade outcomes in order.
// A missing gross P&L is reconstructed as net P&L plus fees.
func (d Document) Outcomes() []domain.TradeOutcome {
	out := make([]domain.TradeOutcome, len(d.Trades))
	for i, t := range d.Trades {
		gross := t.PnL + t.Fees
		if t.GrossPnL != nil {
			gross = *t.GrossPnL
		}
		out[i] = domain.TradeOutcome{
			TradeID:           t.ID,
			Instrument:        t.Pair,
			EntryPrice:        t.Entry,
			ExitPrice:         t.Exit,
			Leverage:          t.Leverage,
			HoldSeconds:       t.HoldSeconds,
			PositionSize:      t.PositionSize,
			NetPnL:            t.PnL,
			GrossPnL:          gross,
			FeesPaid:          t.Fees,
			Timestamp:         t.Timestamp,
			ExitReason:        t.Reason,
			VolatilityAtEntry: t.Volatility,
			SpreadAtEntry:     t.Spread,
		}
	}
	return out
}

// Encode writes trades as a document.
func Encode(w io.Writer, format Format, trades []domain.TradeOutcome) error {
	doc := FromTrades(trades)
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml document: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json document: %w", err)
		}
		return nil
	}
}

// Decode reads a document and returns its outcomes.
func Decode(r io.Reader, format Format) ([]domain.TradeOutcome, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json document: %w", err)
		}
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("version %q: %w", doc.Version, ErrUnsupportedVersion)
	}
	return doc.Outcomes(), nil
}

// Save writes trades to path, replacing any existing file only once the new
// content is fully written.
func Save(path string, trades []domain.TradeOutcome) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, FormatFor(path), trades); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Load reads the document at path.
func Load(path string) ([]domain.TradeOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger document: %w", err)
	}
	defer f.Close()

	trades, err := Decode(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return trades, nil
}

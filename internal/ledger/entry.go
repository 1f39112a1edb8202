// Package ledger holds the authoritative in-memory order book for the
// operator desk: per-symbol active orders, active positions and closed
// trades, plus the pure filter used to project display views.
package ledger

import (
	"math"
	"strings"
	"time"
)

// Side of an entry.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Kind determines which active collection an open entry lives in:
// market entries are positions, limit entries are orders.
type Kind string

const (
	KindMarket Kind = "market"
	KindLimit  Kind = "limit"
)

// TimeLayout is the wire format for entry timestamps.
const TimeLayout = "2006-01-02 15:04:05"

const (
	DefaultOpenType = "isolated"
	DefaultFee      = 0.001
)

// Entry is one trading record: an order, a position or a closed trade.
// Identifiers are assigned by the book, never by the caller.
type Entry struct {
	ID       int    `json:"id"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Side     Side   `json:"side"`
	Kind     Kind   `json:"type"`
	OpenType string `json:"open_type"`

	Leverage    float64 `json:"leverage"`
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`
	AmountQuote float64 `json:"amount_quote"`
	StopLoss    float64 `json:"stop_loss"`
	TakeProfit  float64 `json:"take_profit"`
	Fee         float64 `json:"fee"`

	// Derived fields. Always present on the wire; 0 until computed.
	PNL              float64 `json:"pnl"`
	PNLPercent       float64 `json:"pnl_percent"`
	LiquidationPrice float64 `json:"liquidation_price"`
	PLSAmount        float64 `json:"pls_amount"`

	CreatedAt string `json:"created_at,omitempty"`
	ClosedAt  string `json:"closed_at,omitempty"`
}

// Normalize trims identity fields, lower-cases enumerations and applies the
// documented defaults (open type "isolated", leverage 1, fee 0.001).
// Non-finite derived values are clamped to 0.
func (e *Entry) Normalize() {
	e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
	e.Exchange = strings.ToLower(strings.TrimSpace(e.Exchange))
	e.Side = Side(strings.ToLower(strings.TrimSpace(string(e.Side))))
	e.Kind = Kind(strings.ToLower(strings.TrimSpace(string(e.Kind))))
	e.OpenType = strings.TrimSpace(e.OpenType)
	if e.OpenType == "" {
		e.OpenType = DefaultOpenType
	}
	if e.Leverage <= 0 {
		e.Leverage = 1
	}
	if e.Fee == 0 {
		e.Fee = DefaultFee
	}
	e.PNL = finiteOrZero(e.PNL)
	e.PNLPercent = finiteOrZero(e.PNLPercent)
	e.LiquidationPrice = finiteOrZero(e.LiquidationPrice)
	e.PLSAmount = finiteOrZero(e.PLSAmount)
}

// IsClosed reports whether the entry carries a close timestamp.
func (e Entry) IsClosed() bool {
	return strings.TrimSpace(e.ClosedAt) != ""
}

// CreatedDate returns the calendar date of the creation timestamp.
func (e Entry) CreatedDate() (time.Time, bool) {
	return parseWireDate(e.CreatedAt)
}

// ClosedDate returns the calendar date of the close timestamp.
func (e Entry) ClosedDate() (time.Time, bool) {
	return parseWireDate(e.ClosedAt)
}

// parseWireDate extracts the calendar date from a wire timestamp.
// Time of day is deliberately discarded: filtering works on whole days.
func parseWireDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ActiveSet holds the two open collections of a symbol ledger.
type ActiveSet struct {
	Orders    []Entry `json:"orders"`
	Positions []Entry `json:"positions"`
}

// SymbolLedger is the active/closed collections for one trading symbol.
// An entry lives in exactly one of the three collections.
type SymbolLedger struct {
	Symbol string    `json:"symbol"`
	Active ActiveSet `json:"active"`
	Closed []Entry   `json:"closed"`
}

// Clone returns a structurally independent copy.
func (sl SymbolLedger) Clone() SymbolLedger {
	out := SymbolLedger{Symbol: sl.Symbol}
	out.Active.Orders = append([]Entry(nil), sl.Active.Orders...)
	out.Active.Positions = append([]Entry(nil), sl.Active.Positions...)
	out.Closed = append([]Entry(nil), sl.Closed...)
	return out
}

// CloneLedgers deep-copies a full ledger snapshot.
func CloneLedgers(src []SymbolLedger) []SymbolLedger {
	if src == nil {
		return nil
	}
	out := make([]SymbolLedger, len(src))
	for i := range src {
		out[i] = src[i].Clone()
	}
	return out
}

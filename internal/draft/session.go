// Package draft manages the transient editable state of a single ledger
// entry: field inputs live here as raw text until the operator submits,
// and the ledger is never touched before the candidate validates.
package draft

import (
	"strconv"
	"strings"

	"tradedesk/internal/ledger"
	"tradedesk/internal/pkg/convert"
)

// State of an edit session.
type State string

const (
	StateViewing   State = "viewing"
	StateEditing   State = "editing"
	StateStaged    State = "staged"
	StateCancelled State = "cancelled"
)

// Field names accepted by SetField. Numeric fields coerce leniently with 0
// (or 1 for leverage) as the fallback for unparsable input.
const (
	FieldSymbol      = "symbol"
	FieldExchange    = "exchange"
	FieldSide        = "side"
	FieldKind        = "type"
	FieldOpenType    = "open_type"
	FieldLeverage    = "leverage"
	FieldPrice       = "price"
	FieldAmount      = "amount"
	FieldAmountQuote = "amount_quote"
	FieldStopLoss    = "stop_loss"
	FieldTakeProfit  = "take_profit"
	FieldFee         = "fee"
	FieldPNL         = "pnl"
	FieldPNLPercent  = "pnl_percent"
	FieldLiqPrice    = "liquidation_price"
	FieldPLSAmount   = "pls_amount"

	// FieldMarkPrice is a transient input, not an entry field: when set,
	// the derived fields are recomputed from it on submit.
	FieldMarkPrice = "mark_price"
)

// Session drives one entry through Viewing → Editing → Staged/Cancelled.
// Not safe for concurrent use; the desk service serializes access.
type Session struct {
	state    State
	original ledger.Entry
	fields   map[string]string
	catalog  ledger.CatalogView
}

// NewSession starts in Viewing.
func NewSession(catalog ledger.CatalogView) *Session {
	return &Session{state: StateViewing, catalog: catalog}
}

func (s *Session) State() State { return s.state }

// Original returns the entry the session was opened on.
func (s *Session) Original() ledger.Entry { return s.original }

// Begin snapshots the entry's current values into per-field draft inputs
// and moves to Editing. Restarting an edit from any state is allowed.
func (s *Session) Begin(entry ledger.Entry) {
	s.original = entry
	s.fields = map[string]string{
		FieldSymbol:      entry.Symbol,
		FieldExchange:    entry.Exchange,
		FieldSide:        string(entry.Side),
		FieldKind:        string(entry.Kind),
		FieldOpenType:    entry.OpenType,
		FieldLeverage:    formatFloat(entry.Leverage),
		FieldPrice:       formatFloat(entry.Price),
		FieldAmount:      formatFloat(entry.Amount),
		FieldAmountQuote: formatFloat(entry.AmountQuote),
		FieldStopLoss:    formatFloat(entry.StopLoss),
		FieldTakeProfit:  formatFloat(entry.TakeProfit),
		FieldFee:         formatFloat(entry.Fee),
		FieldPNL:         formatFloat(entry.PNL),
		FieldPNLPercent:  formatFloat(entry.PNLPercent),
		FieldLiqPrice:    formatFloat(entry.LiquidationPrice),
		FieldPLSAmount:   formatFloat(entry.PLSAmount),
		FieldMarkPrice:   "",
	}
	s.state = StateEditing
}

// SetField records a draft input. Ignored outside Editing.
func (s *Session) SetField(name, value string) {
	if s.state != StateEditing || s.fields == nil {
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := s.fields[name]; !ok {
		return
	}
	s.fields[name] = value
}

// SetFields applies a batch of draft inputs.
func (s *Session) SetFields(values map[string]string) {
	for k, v := range values {
		s.SetField(k, v)
	}
}

// Fields returns a copy of the current draft inputs.
func (s *Session) Fields() map[string]string {
	out := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Cancel discards the draft and returns to Viewing; the ledger is never
// touched by a cancelled session.
func (s *Session) Cancel() {
	s.fields = nil
	s.state = StateCancelled
}

// Submit computes the candidate entry by merging the draft values over the
// original, defaults the derived fields (recomputing them when a mark
// price input was supplied), and validates exchange/symbol
// membership plus the side/kind enumerations. On success the session moves
// to Staged and the candidate is returned for the stage/confirm protocol.
// On a validation failure the session stays in Editing with the draft
// intact and the error names the offending fields.
func (s *Session) Submit() (ledger.Entry, error) {
	if s.state != StateEditing {
		return ledger.Entry{}, &ledger.ValidationError{Fields: []string{"state"}}
	}
	candidate := s.buildCandidate()
	if err := s.validate(candidate); err != nil {
		return ledger.Entry{}, err
	}
	s.state = StateStaged
	return candidate, nil
}

func (s *Session) buildCandidate() ledger.Entry {
	e := s.original
	e.Symbol = strings.ToUpper(strings.TrimSpace(s.fields[FieldSymbol]))
	e.Exchange = strings.ToLower(strings.TrimSpace(s.fields[FieldExchange]))
	e.Side = ledger.Side(strings.ToLower(strings.TrimSpace(s.fields[FieldSide])))
	e.Kind = ledger.Kind(strings.ToLower(strings.TrimSpace(s.fields[FieldKind])))
	e.OpenType = strings.TrimSpace(s.fields[FieldOpenType])
	e.Leverage = convert.ToFloat64Default(s.fields[FieldLeverage], 1)
	e.Price = convert.ToFloat64(s.fields[FieldPrice])
	e.Amount = convert.ToFloat64(s.fields[FieldAmount])
	e.AmountQuote = convert.ToFloat64(s.fields[FieldAmountQuote])
	e.StopLoss = convert.ToFloat64(s.fields[FieldStopLoss])
	e.TakeProfit = convert.ToFloat64(s.fields[FieldTakeProfit])
	e.Fee = convert.ToFloat64(s.fields[FieldFee])
	e.PNL = convert.ToFloat64(s.fields[FieldPNL])
	e.PNLPercent = convert.ToFloat64(s.fields[FieldPNLPercent])
	e.LiquidationPrice = convert.ToFloat64(s.fields[FieldLiqPrice])
	e.PLSAmount = convert.ToFloat64(s.fields[FieldPLSAmount])
	e.Normalize()
	if mark := convert.ToFloat64(s.fields[FieldMarkPrice]); mark > 0 {
		ledger.ApplyDerived(&e, mark)
	}
	return e
}

func (s *Session) validate(e ledger.Entry) error {
	var bad []string
	if e.Symbol == "" {
		bad = append(bad, FieldSymbol)
	}
	if e.Exchange == "" {
		bad = append(bad, FieldExchange)
	}
	switch e.Side {
	case ledger.SideLong, ledger.SideShort:
	default:
		bad = append(bad, FieldSide)
	}
	switch e.Kind {
	case ledger.KindMarket, ledger.KindLimit:
	default:
		bad = append(bad, FieldKind)
	}
	if len(bad) > 0 {
		return &ledger.ValidationError{Fields: bad}
	}
	if s.catalog != nil {
		if !s.catalog.IsValidExchange(e.Exchange) {
			bad = append(bad, FieldExchange)
		}
		if !s.catalog.IsValidSymbol(e.Symbol) {
			bad = append(bad, FieldSymbol)
		}
	}
	if len(bad) > 0 {
		return &ledger.ValidationError{Fields: bad}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

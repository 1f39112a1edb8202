package ledger

import (
	"strings"
	"time"
)

// Criteria narrows a ledger view. Zero values mean "no constraint".
// Dates are calendar days ("2006-01-02"; longer timestamps are truncated):
// DateTo includes every entry dated anywhere on that day.
type Criteria struct {
	Pair       string `json:"pair,omitempty"`
	Exchange   string `json:"exchange,omitempty"`
	DateFrom   string `json:"date_from,omitempty"`
	DateTo     string `json:"date_to,omitempty"`
	ActiveOnly bool   `json:"active_only,omitempty"`
}

// Filter projects a display view of the ledger. The input is never
// mutated and the result shares no slices with it. A pair substring
// mismatch drops the whole symbol ledger; every other criterion filters
// per entry, leaving empty collections in place so the symbol row still
// renders.
func Filter(ledgers []SymbolLedger, c Criteria) []SymbolLedger {
	pair := strings.ToLower(strings.TrimSpace(c.Pair))
	exch := strings.ToLower(strings.TrimSpace(c.Exchange))
	from, hasFrom := parseWireDate(c.DateFrom)
	to, hasTo := parseWireDate(c.DateTo)

	out := make([]SymbolLedger, 0, len(ledgers))
	for i := range ledgers {
		src := &ledgers[i]
		if pair != "" && !strings.Contains(strings.ToLower(src.Symbol), pair) {
			continue
		}
		dst := SymbolLedger{Symbol: src.Symbol}
		dst.Active.Orders = filterEntries(src.Active.Orders, exch, from, hasFrom, to, hasTo)
		dst.Active.Positions = filterEntries(src.Active.Positions, exch, from, hasFrom, to, hasTo)
		if !c.ActiveOnly {
			dst.Closed = filterEntries(src.Closed, exch, from, hasFrom, to, hasTo)
		} else {
			dst.Closed = []Entry{}
		}
		out = append(out, dst)
	}
	return out
}

func filterEntries(entries []Entry, exch string, from time.Time, hasFrom bool, to time.Time, hasTo bool) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if exch != "" && strings.ToLower(e.Exchange) != exch {
			continue
		}
		if !entryInDateRange(e, from, hasFrom, to, hasTo) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// entryInDateRange compares on calendar dates only. Active entries are
// judged by their creation date. Closed entries are judged by their
// created/closed pair as an interval: out of range only when the interval
// lies entirely before DateFrom or entirely after DateTo.
func entryInDateRange(e Entry, from time.Time, hasFrom bool, to time.Time, hasTo bool) bool {
	if !hasFrom && !hasTo {
		return true
	}
	created, hasCreated := e.CreatedDate()
	closed, hasClosed := e.ClosedDate()

	if hasFrom {
		ref := created
		ok := hasCreated
		if hasClosed {
			ref = closed
			ok = true
		}
		if ok && ref.Before(from) {
			return false
		}
	}
	if hasTo && hasCreated && created.After(to) {
		return false
	}
	return true
}

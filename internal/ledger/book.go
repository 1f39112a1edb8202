package ledger

import (
	"time"

	"tradedesk/internal/logger"
)

// CatalogView is the validation surface the book consults on every
// mutation. Implemented by catalog.Catalog; injected so tests can stub it.
type CatalogView interface {
	IsValidExchange(name string) bool
	IsValidSymbol(name string) bool
}

// Book owns entry storage. It is not safe for concurrent use; the desk
// service serializes access.
type Book struct {
	catalog CatalogView
	ledgers []SymbolLedger
	now     func() time.Time
}

// NewBook builds an empty book validating against the given catalog.
func NewBook(catalog CatalogView) *Book {
	return &Book{catalog: catalog, now: time.Now}
}

// SetClock overrides the close-timestamp clock. Test hook.
func (b *Book) SetClock(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// Snapshot returns a deep copy of every symbol ledger, in order.
func (b *Book) Snapshot() []SymbolLedger {
	return CloneLedgers(b.ledgers)
}

// ReplaceAll swaps in a freshly loaded snapshot wholesale. Entries are
// normalized so defaults survive round-trips through external stores.
func (b *Book) ReplaceAll(ledgers []SymbolLedger) {
	cloned := CloneLedgers(ledgers)
	for i := range cloned {
		normalizeCollection(cloned[i].Active.Orders)
		normalizeCollection(cloned[i].Active.Positions)
		normalizeCollection(cloned[i].Closed)
	}
	b.ledgers = cloned
}

func normalizeCollection(entries []Entry) {
	for i := range entries {
		entries[i].Normalize()
	}
}

// SymbolLedger returns a copy of the ledger for symbol, if present.
func (b *Book) SymbolLedger(symbol string) (SymbolLedger, bool) {
	sl := b.find(symbol)
	if sl == nil {
		return SymbolLedger{}, false
	}
	return sl.Clone(), true
}

func (b *Book) find(symbol string) *SymbolLedger {
	for i := range b.ledgers {
		if b.ledgers[i].Symbol == symbol {
			return &b.ledgers[i]
		}
	}
	return nil
}

// SymbolCount reports the number of symbol ledgers without copying them.
func (b *Book) SymbolCount() int {
	return len(b.ledgers)
}

// TotalEntries counts entries across every collection of every symbol.
func (b *Book) TotalEntries() int {
	total := 0
	for i := range b.ledgers {
		sl := &b.ledgers[i]
		total += len(sl.Active.Orders) + len(sl.Active.Positions) + len(sl.Closed)
	}
	return total
}

// NextIdentifier returns one plus the maximum identifier observed across
// the entire book, or 1 when the book is empty. The full scan is O(total
// entries), which is fine at desk scale.
func (b *Book) NextIdentifier() int {
	max := 0
	scan := func(entries []Entry) {
		for i := range entries {
			if entries[i].ID > max {
				max = entries[i].ID
			}
		}
	}
	for i := range b.ledgers {
		sl := &b.ledgers[i]
		scan(sl.Active.Orders)
		scan(sl.Active.Positions)
		scan(sl.Closed)
	}
	return max + 1
}

// Insert validates and stores a new entry, assigning its identifier when
// unset. Market entries land in active positions, limit entries in active
// orders. The symbol ledger is created on first use.
func (b *Book) Insert(e Entry) (Entry, error) {
	e.Normalize()
	if err := b.validate(e); err != nil {
		return Entry{}, err
	}
	if e.ID <= 0 {
		e.ID = b.NextIdentifier()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = b.now().Format(TimeLayout)
	}
	sl := b.find(e.Symbol)
	if sl == nil {
		b.ledgers = append(b.ledgers, SymbolLedger{Symbol: e.Symbol})
		sl = &b.ledgers[len(b.ledgers)-1]
	}
	switch e.Kind {
	case KindMarket:
		sl.Active.Positions = append(sl.Active.Positions, e)
	default:
		sl.Active.Orders = append(sl.Active.Orders, e)
	}
	return e, nil
}

func (b *Book) validate(e Entry) error {
	var bad []string
	if e.Symbol == "" {
		bad = append(bad, "symbol")
	}
	if e.Exchange == "" {
		bad = append(bad, "exchange")
	}
	switch e.Side {
	case SideLong, SideShort:
	default:
		bad = append(bad, "side")
	}
	switch e.Kind {
	case KindMarket, KindLimit:
	default:
		bad = append(bad, "type")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	if b.catalog != nil {
		if !b.catalog.IsValidExchange(e.Exchange) {
			bad = append(bad, "exchange")
		}
		if !b.catalog.IsValidSymbol(e.Symbol) {
			bad = append(bad, "symbol")
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// Update replaces the entry identified by (symbol, kind, id) with the
// patch merged over the stored values. The lookup checks the collection
// implied by kind first and then the other active collection, so an edit
// that changes an entry's kind relocates it instead of duplicating the
// identifier. When no such entry exists the patch is inserted instead
// (upsert), which covers entries that originate purely from a staged
// payload. The bool reports whether an existing entry was replaced.
func (b *Book) Update(symbol string, kind Kind, id int, patch Entry) (Entry, bool, error) {
	patch.Normalize()
	sl := b.find(normalizeSymbolKey(symbol))
	if sl != nil && id > 0 {
		for _, k := range []Kind{kind, otherKind(kind)} {
			col := sl.activeFor(k)
			for i := range *col {
				if (*col)[i].ID != id {
					continue
				}
				merged := mergeEntry((*col)[i], patch)
				if err := b.validate(merged); err != nil {
					return Entry{}, false, err
				}
				if dst := sl.activeFor(merged.Kind); dst != col {
					*col = append((*col)[:i], (*col)[i+1:]...)
					*dst = append(*dst, merged)
				} else {
					(*col)[i] = merged
				}
				return merged, true, nil
			}
		}
	}
	logger.Warnf("ledger: update for missing entry symbol=%s type=%s id=%d, inserting", symbol, kind, id)
	patch.ID = id
	inserted, err := b.Insert(patch)
	if err != nil {
		return Entry{}, false, err
	}
	return inserted, false, nil
}

// Close moves an active entry to the closed collection and stamps the
// close timestamp. A missing entry is a no-op: the bool is false and the
// book is untouched.
func (b *Book) Close(symbol string, kind Kind, id int) (Entry, bool) {
	sl := b.find(normalizeSymbolKey(symbol))
	if sl == nil {
		logger.Warnf("ledger: close for unknown symbol %s (id=%d)", symbol, id)
		return Entry{}, false
	}
	col := sl.activeFor(kind)
	for i := range *col {
		if (*col)[i].ID != id {
			continue
		}
		e := (*col)[i]
		*col = append((*col)[:i], (*col)[i+1:]...)
		e.ClosedAt = b.now().Format(TimeLayout)
		sl.Closed = append(sl.Closed, e)
		return e, true
	}
	logger.Warnf("ledger: close for missing entry symbol=%s type=%s id=%d", symbol, kind, id)
	return Entry{}, false
}

func (sl *SymbolLedger) activeFor(kind Kind) *[]Entry {
	if kind == KindMarket {
		return &sl.Active.Positions
	}
	return &sl.Active.Orders
}

func otherKind(kind Kind) Kind {
	if kind == KindMarket {
		return KindLimit
	}
	return KindMarket
}

func normalizeSymbolKey(symbol string) string {
	e := Entry{Symbol: symbol}
	e.Normalize()
	return e.Symbol
}

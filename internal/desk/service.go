// Package desk is the operator-facing core: it owns the in-memory order
// book, the permitted catalog, the single edit session and the staged
// command, and serializes every mutation behind one mutex.
package desk

import (
	"context"
	"fmt"
	"time"

	"tradedesk/internal/catalog"
	"tradedesk/internal/commit"
	"tradedesk/internal/draft"
	"tradedesk/internal/ledger"
	"tradedesk/internal/logger"
)

// Gateway is the slice of the backend client the service needs.
type Gateway interface {
	LoadOrders(ctx context.Context) ([]ledger.SymbolLedger, error)
	SaveOrders(ctx context.Context, ledgers []ledger.SymbolLedger) error
}

// CatalogWriter pushes edited catalog lists back to the backend store.
// Implemented by the backend client; nil disables catalog edits.
type CatalogWriter interface {
	SaveExchanges(ctx context.Context, recs []catalog.Record) error
	SaveSymbols(ctx context.Context, recs []catalog.Record) error
}

// Service drives the dashboard workflows. Safe for concurrent use.
type Service struct {
	mu            chanLock
	book          *ledger.Book
	catalog       *catalog.Catalog
	gateway       Gateway
	catalogWriter CatalogWriter
	stager        *commit.Stager
	session       *draft.Session

	refreshInterval time.Duration
}

// chanLock is a mutex that can be acquired with a context, so a slow
// backend round-trip cannot wedge every other operator request forever.
type chanLock chan struct{}

func newChanLock() chanLock {
	l := make(chanLock, 1)
	return l
}

func (l chanLock) lock(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l chanLock) unlock() { <-l }

// NewService builds the desk around a catalog and sync gateway. The
// service registers itself as the stager's executor.
func NewService(cat *catalog.Catalog, gw Gateway, refreshInterval time.Duration) *Service {
	s := &Service{
		mu:              newChanLock(),
		catalog:         cat,
		gateway:         gw,
		refreshInterval: refreshInterval,
	}
	s.book = ledger.NewBook(cat)
	s.stager = commit.NewStager(s)
	s.session = draft.NewSession(cat)
	return s
}

// SetClock overrides the book's close-timestamp clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.book.SetClock(now)
}

// SetCatalogWriter enables catalog edits through the given writer.
func (s *Service) SetCatalogWriter(w CatalogWriter) {
	s.catalogWriter = w
}

// UpdateCatalog saves the provided exchange and symbol lists to the
// backend, then re-pulls the permitted sets so validation picks up the
// change immediately. Nil lists are left untouched. A failed re-pull is
// logged, not returned: the saved lists land on the next refresh tick.
func (s *Service) UpdateCatalog(ctx context.Context, exchanges, symbols []catalog.Record) error {
	if s.catalogWriter == nil {
		return fmt.Errorf("catalog edits are not enabled")
	}
	if exchanges != nil {
		if err := s.catalogWriter.SaveExchanges(ctx, exchanges); err != nil {
			return err
		}
	}
	if symbols != nil {
		if err := s.catalogWriter.SaveSymbols(ctx, symbols); err != nil {
			return err
		}
	}
	if s.catalog != nil {
		if err := s.catalog.RefreshAll(ctx); err != nil {
			logger.Warnf("desk: catalog refresh after edit failed: %v", err)
		}
	}
	return nil
}

// Load pulls the full ledger snapshot from the backend and swaps it in
// wholesale. On failure the previous in-memory state is kept.
func (s *Service) Load(ctx context.Context) error {
	snapshot, err := s.gateway.LoadOrders(ctx)
	if err != nil {
		return err
	}
	if err := s.mu.lock(ctx); err != nil {
		return err
	}
	defer s.mu.unlock()
	s.book.ReplaceAll(snapshot)
	logger.Infof("desk: loaded %d entries across %d symbols", s.book.TotalEntries(), len(snapshot))
	return nil
}

// Persist writes the current book to the backend as a full snapshot.
func (s *Service) Persist(ctx context.Context) error {
	if err := s.mu.lock(ctx); err != nil {
		return err
	}
	snapshot := s.book.Snapshot()
	s.mu.unlock()
	return s.gateway.SaveOrders(ctx, snapshot)
}

// View returns the filtered, deep-copied ledger state.
func (s *Service) View(ctx context.Context, c ledger.Criteria) ([]ledger.SymbolLedger, error) {
	if err := s.mu.lock(ctx); err != nil {
		return nil, err
	}
	snapshot := s.book.Snapshot()
	s.mu.unlock()
	return ledger.Filter(snapshot, c), nil
}

// FindEntry looks up one entry by its active-collection coordinates.
func (s *Service) FindEntry(ctx context.Context, symbol string, kind ledger.Kind, id int) (ledger.Entry, bool, error) {
	if err := s.mu.lock(ctx); err != nil {
		return ledger.Entry{}, false, err
	}
	defer s.mu.unlock()
	sl, ok := s.book.SymbolLedger(normalizeSymbol(symbol))
	if !ok {
		return ledger.Entry{}, false, nil
	}
	var pool []ledger.Entry
	if kind == ledger.KindMarket {
		pool = sl.Active.Positions
	} else {
		pool = sl.Active.Orders
	}
	for _, e := range pool {
		if e.ID == id {
			return e, true, nil
		}
	}
	return ledger.Entry{}, false, nil
}

// Save applies a confirmed save command: merge-upsert into the book, then
// persist the whole snapshot. The local mutation stands even when the
// persistence round-trip fails; the error reports the failed sync.
func (s *Service) Save(ctx context.Context, entry ledger.Entry) error {
	if err := s.mu.lock(ctx); err != nil {
		return err
	}
	updated, replaced, err := s.book.Update(entry.Symbol, entry.Kind, entry.ID, entry)
	if err != nil {
		s.mu.unlock()
		return err
	}
	snapshot := s.book.Snapshot()
	s.mu.unlock()
	if replaced {
		logger.Infof("desk: saved entry %d (%s %s)", updated.ID, updated.Symbol, updated.Kind)
	} else {
		logger.Infof("desk: inserted entry %d (%s %s)", updated.ID, updated.Symbol, updated.Kind)
	}
	if err := s.gateway.SaveOrders(ctx, snapshot); err != nil {
		return fmt.Errorf("entry %d applied locally but not persisted: %w", updated.ID, err)
	}
	return nil
}

// Close applies a confirmed close command. Closing an entry that does not
// exist is an observable no-op: logged, not an error, and nothing is
// persisted for it.
func (s *Service) Close(ctx context.Context, symbol string, kind ledger.Kind, id int) error {
	if err := s.mu.lock(ctx); err != nil {
		return err
	}
	closed, ok := s.book.Close(symbol, kind, id)
	if !ok {
		s.mu.unlock()
		return nil
	}
	snapshot := s.book.Snapshot()
	s.mu.unlock()
	logger.Infof("desk: closed entry %d (%s %s) at %s", closed.ID, closed.Symbol, closed.Kind, closed.ClosedAt)
	if err := s.gateway.SaveOrders(ctx, snapshot); err != nil {
		return fmt.Errorf("entry %d closed locally but not persisted: %w", id, err)
	}
	return nil
}

// Run is the background refresh loop: the ledger snapshot is re-pulled on
// an interval until the context is cancelled. The catalog runs its own
// refresh cadence in the app layer.
func (s *Service) Run(ctx context.Context) error {
	if s.refreshInterval <= 0 {
		s.refreshInterval = time.Minute
	}
	if err := s.Load(ctx); err != nil {
		logger.Warnf("desk: initial ledger load failed: %v", err)
	}
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("desk: refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Load(ctx); err != nil {
				logger.Warnf("desk: ledger refresh failed: %v", err)
			}
		}
	}
}

func normalizeSymbol(symbol string) string {
	e := ledger.Entry{Symbol: symbol}
	e.Normalize()
	return e.Symbol
}

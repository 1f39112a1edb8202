package desk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradedesk/internal/catalog"
	"tradedesk/internal/commit"
	"tradedesk/internal/gateway/backend"
	"tradedesk/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway records saves and serves a canned snapshot.
type fakeGateway struct {
	mu       sync.Mutex
	snapshot []ledger.SymbolLedger
	loadErr  error
	saveErr  error
	saved    [][]ledger.SymbolLedger
}

func (g *fakeGateway) LoadOrders(ctx context.Context) ([]ledger.SymbolLedger, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	return ledger.CloneLedgers(g.snapshot), nil
}

func (g *fakeGateway) SaveOrders(ctx context.Context, ledgers []ledger.SymbolLedger) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.saveErr != nil {
		return g.saveErr
	}
	g.saved = append(g.saved, ledger.CloneLedgers(ledgers))
	return nil
}

func (g *fakeGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saved)
}

func (g *fakeGateway) lastSaved() []ledger.SymbolLedger {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.saved) == 0 {
		return nil
	}
	return g.saved[len(g.saved)-1]
}

func newTestService(gw *fakeGateway) *Service {
	s := NewService(catalog.New(nil), gw, time.Minute)
	s.SetClock(func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	})
	return s
}

func seedSnapshot() []ledger.SymbolLedger {
	return []ledger.SymbolLedger{{
		Symbol: "BTC/USDT",
		Active: ledger.ActiveSet{Positions: []ledger.Entry{{
			ID: 1, Symbol: "BTC/USDT", Exchange: "binance",
			Side: ledger.SideLong, Kind: ledger.KindMarket,
			Price: 50000, Amount: 0.1, CreatedAt: "2025-03-01 12:00:00",
		}}},
	}}
}

func TestServiceLoadAndView(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))

	ledgers, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Len(t, ledgers[0].Active.Positions, 1)

	t.Run("load failure keeps the previous state", func(t *testing.T) {
		gw.mu.Lock()
		gw.loadErr = errors.New("backend down")
		gw.mu.Unlock()
		require.Error(t, s.Load(ctx))

		ledgers, err := s.View(ctx, ledger.Criteria{})
		require.NoError(t, err)
		assert.Len(t, ledgers, 1)
	})
}

func TestServiceEditWorkflow(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	fields, err := s.BeginEdit(ctx, "BTC/USDT", ledger.KindMarket, 1)
	require.NoError(t, err)
	assert.Equal(t, "50000", fields["price"])

	require.NoError(t, s.SetFields(ctx, map[string]string{"price": "52000"}))

	cmd, err := s.SubmitEdit(ctx, "take profit higher")
	require.NoError(t, err)
	assert.Equal(t, commit.OpSave, cmd.Op)
	assert.Equal(t, 52000.0, cmd.Entry.Price)

	// Nothing hits the book or the backend until confirm.
	ledgers, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 50000.0, ledgers[0].Active.Positions[0].Price)
	assert.Zero(t, gw.saveCount())

	_, err = s.Confirm(ctx)
	require.NoError(t, err)

	ledgers, err = s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 52000.0, ledgers[0].Active.Positions[0].Price)
	require.Equal(t, 1, gw.saveCount())
	assert.Equal(t, 52000.0, gw.lastSaved()[0].Active.Positions[0].Price)
}

func TestServiceEditMissingEntry(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	_, err := s.BeginEdit(ctx, "BTC/USDT", ledger.KindMarket, 99)
	var vErr *ledger.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestServiceNewEntryWorkflow(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestService(gw)
	ctx := context.Background()

	fields, err := s.BeginNew(ctx)
	require.NoError(t, err)
	assert.Equal(t, "long", fields["side"])
	assert.Equal(t, "1", fields["leverage"])

	require.NoError(t, s.SetFields(ctx, map[string]string{
		"symbol":   "eth/usdt",
		"exchange": "Bybit",
		"type":     "limit",
		"price":    "3000",
		"amount":   "2",
	}))
	_, err = s.SubmitEdit(ctx, "")
	require.NoError(t, err)
	_, err = s.Confirm(ctx)
	require.NoError(t, err)

	ledgers, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	require.Len(t, ledgers[0].Active.Orders, 1)
	got := ledgers[0].Active.Orders[0]
	assert.Equal(t, 1, got.ID, "first identifier in an empty book")
	assert.Equal(t, "ETH/USDT", got.Symbol)
	assert.Equal(t, "bybit", got.Exchange)
	assert.Equal(t, "2025-03-14 09:30:00", got.CreatedAt)
}

func TestServiceEditWithMarkPrice(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	_, err := s.BeginEdit(ctx, "BTC/USDT", ledger.KindMarket, 1)
	require.NoError(t, err)
	require.NoError(t, s.SetFields(ctx, map[string]string{"mark_price": "55000"}))

	_, err = s.SubmitEdit(ctx, "refresh pnl")
	require.NoError(t, err)
	_, err = s.Confirm(ctx)
	require.NoError(t, err)

	ledgers, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	got := ledgers[0].Active.Positions[0]
	assert.InDelta(t, 500.0, got.PNL, 1e-9)
	assert.InDelta(t, 10.0, got.PNLPercent, 1e-9)
	assert.Equal(t, 50000.0, got.Price, "the entry price itself is untouched")
}

func TestServiceCloseWorkflow(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	cmd, err := s.StageClose(ctx, "BTC/USDT", ledger.KindMarket, 1, "done with this trade")
	require.NoError(t, err)
	assert.Equal(t, commit.OpClose, cmd.Op)

	_, err = s.Confirm(ctx)
	require.NoError(t, err)

	ledgers, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, ledgers[0].Active.Positions)
	require.Len(t, ledgers[0].Closed, 1)
	assert.Equal(t, "2025-03-14 09:30:00", ledgers[0].Closed[0].ClosedAt)
	assert.Equal(t, 1, gw.saveCount())
}

func TestServiceCloseMissingEntryIsNoOp(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	// Staging validates existence, but the entry can vanish between stage
	// and confirm (a refresh pulled a newer snapshot). The confirm is then
	// a no-op and nothing is persisted.
	cmd, err := s.StageClose(ctx, "BTC/USDT", ledger.KindMarket, 1, "")
	require.NoError(t, err)

	gw.mu.Lock()
	gw.snapshot = nil
	gw.mu.Unlock()
	require.NoError(t, s.Load(ctx))

	_, err = s.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, commit.OpClose, cmd.Op)
	assert.Zero(t, gw.saveCount())
}

func TestServiceCancelStagedTouchesNothing(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	before, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)

	_, err = s.StageClose(ctx, "BTC/USDT", ledger.KindMarket, 1, "")
	require.NoError(t, err)
	assert.True(t, s.CancelStaged())

	after, err := s.View(ctx, ledger.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, gw.saveCount())

	_, err = s.Confirm(ctx)
	assert.ErrorIs(t, err, commit.ErrNothingStaged)
}

func TestServiceConfirmSurvivesPersistFailure(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	gw.mu.Lock()
	gw.saveErr = &backend.SyncError{Op: "persist", Err: errors.New("backend down")}
	gw.mu.Unlock()

	_, err := s.StageClose(ctx, "BTC/USDT", ledger.KindMarket, 1, "")
	require.NoError(t, err)
	_, err = s.Confirm(ctx)
	require.Error(t, err)

	var syncErr *backend.SyncError
	assert.ErrorAs(t, err, &syncErr, "the caller can tell a sync failure apart")

	// The mutation was applied locally even though persistence failed.
	ledgers, viewErr := s.View(ctx, ledger.Criteria{})
	require.NoError(t, viewErr)
	assert.Empty(t, ledgers[0].Active.Positions)
	assert.Len(t, ledgers[0].Closed, 1)
}

// fakeCatalogStore doubles as catalog source and writer, like the real
// backend client does.
type fakeCatalogStore struct {
	mu        sync.Mutex
	exchanges []catalog.Record
	symbols   []catalog.Record
}

func (f *fakeCatalogStore) FetchExchanges(ctx context.Context) ([]catalog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Record(nil), f.exchanges...), nil
}

func (f *fakeCatalogStore) FetchSymbols(ctx context.Context) ([]catalog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Record(nil), f.symbols...), nil
}

func (f *fakeCatalogStore) SaveExchanges(ctx context.Context, recs []catalog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append([]catalog.Record(nil), recs...)
	return nil
}

func (f *fakeCatalogStore) SaveSymbols(ctx context.Context, recs []catalog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append([]catalog.Record(nil), recs...)
	return nil
}

func TestServiceUpdateCatalog(t *testing.T) {
	store := &fakeCatalogStore{
		exchanges: []catalog.Record{{Name: "binance", Use: true}},
		symbols:   []catalog.Record{{Name: "BTC/USDT", Use: true}},
	}
	cat := catalog.New(store)
	s := NewService(cat, &fakeGateway{}, time.Minute)
	s.SetCatalogWriter(store)
	ctx := context.Background()
	require.NoError(t, cat.RefreshAll(ctx))

	err := s.UpdateCatalog(ctx, []catalog.Record{
		{Name: "okx", Use: true},
		{Name: "binance", Use: false},
	}, nil)
	require.NoError(t, err)

	// The saved list is live immediately, disabled records excluded, and
	// the untouched symbol list survives.
	assert.Equal(t, []string{"okx"}, cat.Exchanges())
	assert.Equal(t, []string{"BTC/USDT"}, cat.Symbols())
	assert.True(t, cat.IsValidExchange("okx"))
	assert.False(t, cat.IsValidExchange("binance"))

	err = s.UpdateCatalog(ctx, nil, []catalog.Record{{Name: "doge/usdt", Use: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE/USDT"}, cat.Symbols())
}

func TestServiceUpdateCatalogWithoutWriter(t *testing.T) {
	s := newTestService(&fakeGateway{})
	err := s.UpdateCatalog(context.Background(), []catalog.Record{{Name: "okx", Use: true}}, nil)
	assert.Error(t, err)
}

func TestServiceStatus(t *testing.T) {
	gw := &fakeGateway{snapshot: seedSnapshot()}
	s := newTestService(gw)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Symbols)
	assert.Equal(t, 1, st.TotalEntries)
	assert.Equal(t, "viewing", st.SessionState)
	assert.Empty(t, st.PendingOp)

	_, err = s.StageClose(ctx, "BTC/USDT", ledger.KindMarket, 1, "")
	require.NoError(t, err)
	st, err = s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "close", st.PendingOp)
	assert.NotEmpty(t, st.PendingID)
}

package snapshot

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, DocOrders)
	require.NoError(t, err)
	assert.False(t, ok, "missing document reports absence, not an error")

	require.NoError(t, s.Put(ctx, DocOrders, json.RawMessage(`[{"symbol":"BTC/USDT"}]`)))
	payload, ok, err := s.Get(ctx, DocOrders)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"symbol":"BTC/USDT"}]`, string(payload))
}

func TestStorePutReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, DocSymbols, json.RawMessage(`[{"name":"BTC/USDT","use":true}]`)))
	require.NoError(t, s.Put(ctx, DocSymbols, json.RawMessage(`[]`)))

	payload, ok, err := s.Get(ctx, DocSymbols)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(payload))
}

func TestStoreDocumentsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, DocExchanges, json.RawMessage(`[{"name":"binance","use":true}]`)))
	_, ok, err := s.Get(ctx, DocSymbols)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), DocOrders, json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func TestStoreUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ts, err := s.UpdatedAt(ctx, DocOrders)
	require.NoError(t, err)
	assert.Zero(t, ts)

	require.NoError(t, s.Put(ctx, DocOrders, json.RawMessage(`[]`)))
	ts, err = s.UpdatedAt(ctx, DocOrders)
	require.NoError(t, err)
	assert.NotZero(t, ts)
}

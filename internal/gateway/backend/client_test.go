package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradedesk/internal/config"
	"tradedesk/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	require.NoError(t, err)
	return client
}

func TestLoadOrders(t *testing.T) {
	t.Run("decodes the snapshot from the envelope", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/orders", r.URL.Path)
			io.WriteString(w, `{"status":"success","data":[{"symbol":"BTC/USDT","active":{"orders":[],"positions":[{"id":1,"symbol":"BTC/USDT","exchange":"binance","side":"long","type":"market"}]},"closed":[]}]}`)
		}))

		got, err := client.LoadOrders(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "BTC/USDT", got[0].Symbol)
		assert.Len(t, got[0].Active.Positions, 1)
	})

	t.Run("error envelope becomes a sync error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status":"error","message":"store unavailable"}`)
		}))

		_, err := client.LoadOrders(context.Background())
		var syncErr *SyncError
		require.ErrorAs(t, err, &syncErr)
		assert.Equal(t, "load", syncErr.Op)
		assert.Contains(t, err.Error(), "store unavailable")
	})

	t.Run("http failure becomes a sync error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := client.LoadOrders(context.Background())
		var syncErr *SyncError
		assert.ErrorAs(t, err, &syncErr)
	})

	t.Run("null data is an empty ledger", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status":"success","data":null}`)
		}))

		got, err := client.LoadOrders(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSaveOrders(t *testing.T) {
	t.Run("wraps the snapshot in the orders key", func(t *testing.T) {
		var body map[string][]ledger.SymbolLedger
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			io.WriteString(w, `{"status":"success"}`)
		}))

		err := client.SaveOrders(context.Background(), []ledger.SymbolLedger{{Symbol: "BTC/USDT"}})
		require.NoError(t, err)
		require.Contains(t, body, "orders")
		assert.Equal(t, "BTC/USDT", body["orders"][0].Symbol)
	})

	t.Run("nil snapshot posts an empty array", func(t *testing.T) {
		var raw map[string]json.RawMessage
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			io.WriteString(w, `{"status":"success"}`)
		}))

		require.NoError(t, client.SaveOrders(context.Background(), nil))
		assert.JSONEq(t, `[]`, string(raw["orders"]))
	})
}

func TestFetchCatalog(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/exchanges":
			io.WriteString(w, `{"status":"success","data":[{"name":"binance","use":true},{"name":"bybit","use":false}]}`)
		case "/api/symbols":
			io.WriteString(w, `{"status":"success","data":[{"name":"BTC/USDT","use":true}]}`)
		default:
			http.NotFound(w, r)
		}
	}))

	exchanges, err := client.FetchExchanges(context.Background())
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.True(t, exchanges[0].Use)
	assert.False(t, exchanges[1].Use)

	symbols, err := client.FetchSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "BTC/USDT", symbols[0].Name)
}

func TestFetchAnalytics(t *testing.T) {
	t.Run("tolerates numbers encoded as strings", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/data", r.URL.Path)
			io.WriteString(w, `{"binance":{"BTC/USDT":{"delta":1.5,"vol":"2000.5","trade":10,"NATR":"0.8","spread":0.01,"activity":3}}}`)
		}))

		got, err := client.FetchAnalytics(context.Background())
		require.NoError(t, err)
		row := got["binance"]["BTC/USDT"]
		assert.Equal(t, 1.5, row.Delta)
		assert.Equal(t, 2000.5, row.Vol)
		assert.Equal(t, 0.8, row.NATR)
	})

	t.Run("non-object payload is an empty snapshot", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[]`)
		}))

		got, err := client.FetchAnalytics(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.BackendConfig{})
	assert.Error(t, err)
}

func TestSyncErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &SyncError{Op: "load", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "load")
}

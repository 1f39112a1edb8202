// Package catalog maintains the permitted exchange and symbol sets used to
// validate ledger mutations. Sets are refreshed from the backend store;
// when a refresh fails the previous set is retained, and a hardcoded (or
// file-provided) fallback is installed so validation never goes vacuously
// permissive or fully blocking.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tradedesk/internal/logger"
	"tradedesk/internal/pkg/symbol"
)

// Record is one catalog row as stored on the backend.
type Record struct {
	Name string `json:"name"`
	Use  bool   `json:"use"`
}

// Source fetches catalog subsets from the backend store.
type Source interface {
	FetchExchanges(ctx context.Context) ([]Record, error)
	FetchSymbols(ctx context.Context) ([]Record, error)
}

var (
	defaultExchanges = []string{"binance", "bybit", "okx", "gate", "mexc", "kucoin"}
	defaultSymbols   = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT", "XRP/USDT"}
)

// Catalog holds the current permitted sets. Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	source Source

	exchanges []string
	symbols   []string

	fallbackExchanges []string
	fallbackSymbols   []string
}

// New builds a catalog with the built-in fallback lists. The source may be
// nil (tests, offline mode); refreshes then install the fallbacks.
func New(source Source) *Catalog {
	return &Catalog{
		source:            source,
		fallbackExchanges: append([]string(nil), defaultExchanges...),
		fallbackSymbols:   append([]string(nil), defaultSymbols...),
	}
}

// SetFallbacks replaces the fallback lists, e.g. from a defaults file.
// Empty slices are ignored so a partial file cannot erase a list.
func (c *Catalog) SetFallbacks(exchanges, symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(exchanges) > 0 {
		c.fallbackExchanges = normalizeExchanges(exchanges)
	}
	if len(symbols) > 0 {
		c.fallbackSymbols = symbol.NormalizeList(symbols)
	}
}

// RefreshExchanges replaces the permitted exchange set from the source,
// keeping only enabled records.
func (c *Catalog) RefreshExchanges(ctx context.Context) error {
	recs, err := c.fetch(ctx, true)
	if err != nil {
		c.retainOrFallback(true)
		return fmt.Errorf("refresh exchanges: %w", err)
	}
	names := normalizeExchanges(enabledNames(recs))
	c.mu.Lock()
	if len(names) == 0 {
		names = append([]string(nil), c.fallbackExchanges...)
	}
	c.exchanges = names
	c.mu.Unlock()
	logger.Debugf("catalog: %d exchanges permitted", len(names))
	return nil
}

// RefreshSymbols replaces the permitted symbol set from the source,
// keeping only enabled records.
func (c *Catalog) RefreshSymbols(ctx context.Context) error {
	recs, err := c.fetch(ctx, false)
	if err != nil {
		c.retainOrFallback(false)
		return fmt.Errorf("refresh symbols: %w", err)
	}
	names := symbol.NormalizeList(enabledNames(recs))
	c.mu.Lock()
	if len(names) == 0 {
		names = append([]string(nil), c.fallbackSymbols...)
	}
	c.symbols = names
	c.mu.Unlock()
	logger.Debugf("catalog: %d symbols permitted", len(names))
	return nil
}

// RefreshAll refreshes both sets, reporting the first failure but always
// attempting both.
func (c *Catalog) RefreshAll(ctx context.Context) error {
	errExch := c.RefreshExchanges(ctx)
	errSym := c.RefreshSymbols(ctx)
	if errExch != nil {
		return errExch
	}
	return errSym
}

func (c *Catalog) fetch(ctx context.Context, exchanges bool) ([]Record, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no catalog source configured")
	}
	if exchanges {
		return c.source.FetchExchanges(ctx)
	}
	return c.source.FetchSymbols(ctx)
}

// retainOrFallback keeps the previous set after a failed refresh, or
// installs the fallback when nothing was ever loaded.
func (c *Catalog) retainOrFallback(exchanges bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if exchanges {
		if len(c.exchanges) == 0 {
			c.exchanges = append([]string(nil), c.fallbackExchanges...)
			logger.Warnf("catalog: exchange refresh failed, using fallback list (%d)", len(c.exchanges))
		}
		return
	}
	if len(c.symbols) == 0 {
		c.symbols = append([]string(nil), c.fallbackSymbols...)
		logger.Warnf("catalog: symbol refresh failed, using fallback list (%d)", len(c.symbols))
	}
}

// IsValidExchange is a pure membership test on the current permitted set.
func (c *Catalog) IsValidExchange(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return contains(c.currentExchangesLocked(), name)
}

// IsValidSymbol is a pure membership test on the current permitted set.
func (c *Catalog) IsValidSymbol(name string) bool {
	norm := symbol.Normalize(name)
	if norm == "" {
		norm = strings.ToUpper(strings.TrimSpace(name))
	}
	if norm == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return contains(c.currentSymbolsLocked(), norm)
}

// Exchanges returns a copy of the permitted exchange list.
func (c *Catalog) Exchanges() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.currentExchangesLocked()...)
}

// Symbols returns a copy of the permitted symbol list.
func (c *Catalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.currentSymbolsLocked()...)
}

// Before the first refresh the fallback doubles as the active set, so the
// UI never blocks on the backend.
func (c *Catalog) currentExchangesLocked() []string {
	if len(c.exchanges) > 0 {
		return c.exchanges
	}
	return c.fallbackExchanges
}

func (c *Catalog) currentSymbolsLocked() []string {
	if len(c.symbols) > 0 {
		return c.symbols
	}
	return c.fallbackSymbols
}

func enabledNames(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		if !r.Use {
			continue
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

func normalizeExchanges(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

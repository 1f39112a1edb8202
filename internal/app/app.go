// Package app wires configuration into running services: the desk core,
// its HTTP surface, and (optionally) the embedded backend store.
package app

import (
	"context"
	"fmt"
	"time"

	"tradedesk/internal/catalog"
	"tradedesk/internal/config"
	"tradedesk/internal/desk"
	"tradedesk/internal/logger"
	"tradedesk/internal/store/snapshot"
	deskhttp "tradedesk/internal/transport/http/desk"
	storehttp "tradedesk/internal/transport/http/store"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg       *config.Config
	desk      *desk.Service
	catalog   *catalog.Catalog
	deskHTTP  *deskhttp.Server
	storeHTTP *storehttp.Server
	storeDB   *snapshot.Store
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Desk exposes the desk service for testing and replay harnesses.
func (a *App) Desk() *desk.Service {
	if a == nil {
		return nil
	}
	return a.desk
}

// Run starts every configured service and blocks until the first failure
// or context cancellation.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.desk == nil {
		return fmt.Errorf("desk service not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.storeHTTP != nil {
		group.Go(func() error {
			logger.Infof("store http listening on %s", a.storeHTTP.Addr())
			if err := a.storeHTTP.Start(ctx); err != nil {
				return fmt.Errorf("store http server error: %w", err)
			}
			return nil
		})
	}
	if a.deskHTTP != nil {
		group.Go(func() error {
			logger.Infof("desk http listening on %s", a.deskHTTP.Addr())
			if err := a.deskHTTP.Start(ctx); err != nil {
				return fmt.Errorf("desk http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.desk.Run(ctx)
	})
	if a.catalog != nil {
		group.Go(func() error {
			return a.runCatalogRefresh(ctx)
		})
	}

	err := group.Wait()
	if a.storeDB != nil {
		if closeErr := a.storeDB.Close(); closeErr != nil {
			logger.Warnf("closing store db failed: %v", closeErr)
		}
	}
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// runCatalogRefresh re-pulls the permitted sets on their own cadence,
// independent of the ledger refresh loop.
func (a *App) runCatalogRefresh(ctx context.Context) error {
	interval := time.Duration(a.cfg.Catalog.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if err := a.catalog.RefreshAll(ctx); err != nil {
		logger.Warnf("catalog refresh failed: %v", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.catalog.RefreshAll(ctx); err != nil {
				logger.Warnf("catalog refresh failed: %v", err)
			}
		}
	}
}

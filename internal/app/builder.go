package app

import (
	"fmt"
	"time"

	"tradedesk/internal/catalog"
	"tradedesk/internal/config"
	"tradedesk/internal/desk"
	"tradedesk/internal/gateway/backend"
	"tradedesk/internal/logger"
	"tradedesk/internal/store/snapshot"
	deskhttp "tradedesk/internal/transport/http/desk"
	storehttp "tradedesk/internal/transport/http/store"
)

func build(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	if cfg.Store.Enabled {
		db, err := snapshot.NewStore(cfg.Store.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store failed: %w", err)
		}
		a.storeDB = db
		srv, err := storehttp.NewServer(storehttp.ServerConfig{
			Addr:  cfg.Store.HTTPAddr,
			Store: db,
		})
		if err != nil {
			return nil, err
		}
		a.storeHTTP = srv
	}

	client, err := backend.NewClient(cfg.Backend)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(client)
	if err := cat.WatchDefaults(cfg.Catalog.DefaultsPath); err != nil {
		// A broken defaults file degrades to the built-in fallbacks.
		logger.Warnf("catalog defaults unavailable: %v", err)
	}
	a.catalog = cat

	refresh := time.Duration(cfg.Desk.RefreshIntervalSeconds) * time.Second
	a.desk = desk.NewService(cat, client, refresh)
	a.desk.SetCatalogWriter(client)

	deskSrv, err := deskhttp.NewServer(deskhttp.ServerConfig{
		Addr:      cfg.Desk.HTTPAddr,
		Desk:      a.desk,
		Analytics: client,
	})
	if err != nil {
		return nil, err
	}
	a.deskHTTP = deskSrv
	return a, nil
}

package config

import "strings"

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = "dev"
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = "info"
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 15
	}
	if c.Catalog.RefreshIntervalSeconds <= 0 {
		c.Catalog.RefreshIntervalSeconds = 300
	}
	if c.Desk.RefreshIntervalSeconds <= 0 {
		c.Desk.RefreshIntervalSeconds = 60
	}
	if strings.TrimSpace(c.Desk.HTTPAddr) == "" {
		c.Desk.HTTPAddr = ":9980"
	}
	if c.Store.Enabled {
		if strings.TrimSpace(c.Store.HTTPAddr) == "" {
			c.Store.HTTPAddr = ":8000"
		}
		if strings.TrimSpace(c.Store.DBPath) == "" {
			c.Store.DBPath = "data/tradedesk.db"
		}
	}
}

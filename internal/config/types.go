package config

// Config is the top-level configuration for the desk.
type Config struct {
	App     AppConfig     `toml:"app"`
	Backend BackendConfig `toml:"backend"`
	Catalog CatalogConfig `toml:"catalog"`
	Desk    DeskConfig    `toml:"desk"`
	Store   StoreConfig   `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// BackendConfig describes how to reach the backing store.
type BackendConfig struct {
	BaseURL            string `toml:"base_url"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// CatalogConfig controls the permitted exchange/symbol sets.
type CatalogConfig struct {
	DefaultsPath           string `toml:"defaults_path"`
	RefreshIntervalSeconds int    `toml:"refresh_interval_seconds"`
}

// DeskConfig controls the operator-facing service.
type DeskConfig struct {
	HTTPAddr               string `toml:"http_addr"`
	RefreshIntervalSeconds int    `toml:"refresh_interval_seconds"`
}

// StoreConfig controls the embedded backend store server. Disabled when
// the desk points at an externally hosted store.
type StoreConfig struct {
	Enabled  bool   `toml:"enabled"`
	HTTPAddr string `toml:"http_addr"`
	DBPath   string `toml:"db_path"`
}

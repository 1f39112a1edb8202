package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(c *Config) error {
	if err := c.Backend.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BackendConfig) validate() error {
	raw := strings.TrimSpace(b.BaseURL)
	if raw == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must be http or https")
	}
	if b.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must be >= 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.DBPath) == "" {
		return fmt.Errorf("store.db_path is required when store.enabled")
	}
	return nil
}

package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tradedesk/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultsFile is the YAML shape of an operator-provided fallback list.
type DefaultsFile struct {
	Exchanges []string `yaml:"exchanges"`
	Symbols   []string `yaml:"symbols"`
}

func readDefaultsFile(path string) (DefaultsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DefaultsFile{}, fmt.Errorf("read catalog defaults failed: %w", err)
	}
	var cfg DefaultsFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return DefaultsFile{}, fmt.Errorf("parse catalog defaults failed: %w", err)
	}
	return cfg, nil
}

// WatchDefaults loads a defaults file into the catalog fallbacks and keeps
// them in sync while the file changes on disk. An empty path is a no-op.
func (c *Catalog) WatchDefaults(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	apply := func() error {
		cfg, err := readDefaultsFile(path)
		if err != nil {
			return err
		}
		c.SetFallbacks(cfg.Exchanges, cfg.Symbols)
		logger.Infof("catalog: defaults loaded from %s (%d exchanges, %d symbols)",
			filepath.Base(path), len(cfg.Exchanges), len(cfg.Symbols))
		return nil
	}
	if err := apply(); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch catalog defaults failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := apply(); err != nil {
			logger.Errorf("catalog: defaults reload failed (%s): %v", evt.Name, err)
		}
	})
	v.WatchConfig()
	return nil
}

// Package snapshot persists the backend store's documents. Every document
// is a named JSON blob replaced wholesale on write, mirroring the
// full-snapshot contract of the sync API.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Well-known document names.
const (
	DocOrders    = "orders"
	DocSymbols   = "symbols"
	DocExchanges = "exchanges"
	DocAnalytics = "analytics"
)

type DocumentModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Name          string         `gorm:"column:name;uniqueIndex"`
	Payload       datatypes.JSON `gorm:"column:payload;type:TEXT"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (DocumentModel) TableName() string { return "documents" }

type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&DocumentModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

// Get returns the stored payload for name. The bool reports existence.
func (s *Store) Get(ctx context.Context, name string) (json.RawMessage, bool, error) {
	var doc DocumentModel
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return json.RawMessage(doc.Payload), true, nil
}

// Put replaces the document wholesale.
func (s *Store) Put(ctx context.Context, name string, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return fmt.Errorf("payload for %s is not valid JSON", name)
	}
	doc := DocumentModel{
		Name:          name,
		Payload:       datatypes.JSON(payload),
		UpdatedAtUnix: time.Now().Unix(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&doc).Error
}

// UpdatedAt returns the unix write time of a document, 0 when absent.
func (s *Store) UpdatedAt(ctx context.Context, name string) (int64, error) {
	var doc DocumentModel
	err := s.db.WithContext(ctx).Select("updated_at").Where("name = ?", name).First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return doc.UpdatedAtUnix, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

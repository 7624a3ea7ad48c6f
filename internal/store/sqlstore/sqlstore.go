// Package sqlstore persists symbols and quotes through gorm. The package is
// dialector-agnostic; production opens it with the MySQL dialector, tests
// with in-memory SQLite.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"quoteingest/internal/store"
)

type stockRow struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Ticker     string     `gorm:"column:ticker;size:16;uniqueIndex;not null"`
	Name       string     `gorm:"column:name;size:128;not null"`
	LastUpdate *time.Time `gorm:"column:lastUpdate"`
}

func (stockRow) TableName() string { return "stocks" }

type quoteRow struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Stock int64  `gorm:"column:stock;not null;uniqueIndex:idx_quotes_stock_timestamp"`
	Price string `gorm:"column:price;size:16;not null"`
	// The unique index backs up the engine's check-then-insert; the engine
	// does not rely on it.
	Timestamp time.Time `gorm:"column:timestamp;not null;uniqueIndex:idx_quotes_stock_timestamp"`
}

func (quoteRow) TableName() string { return "quotes" }

// Store implements store.Store on a gorm connection.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects through the given dialector and migrates the schema.
func Open(dialector gorm.Dialector, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&stockRow{}, &quoteRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrapping connection: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) SymbolByTicker(ctx context.Context, ticker string) (store.Symbol, error) {
	var row stockRow
	err := s.db.WithContext(ctx).Where("ticker = ?", ticker).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Symbol{}, store.ErrNotFound
	}
	if err != nil {
		return store.Symbol{}, fmt.Errorf("querying stock %q: %w", ticker, err)
	}
	return store.Symbol{ID: row.ID, Ticker: row.Ticker, Name: row.Name, LastUpdate: row.LastUpdate}, nil
}

func (s *Store) InsertSymbol(ctx context.Context, ticker, name string) (int64, error) {
	row := stockRow{Ticker: ticker, Name: name}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("inserting stock %q: %w", ticker, err)
	}
	return row.ID, nil
}

func (s *Store) QuoteExists(ctx context.Context, symbolID int64, ts time.Time) (bool, error) {
	started := time.Now()
	var row quoteRow
	err := s.db.WithContext(ctx).
		Select("id").
		Where("stock = ? AND timestamp = ?", symbolID, ts).
		First(&row).Error
	s.log.Debug("quote existence check", zap.Duration("elapsed", time.Since(started)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking quote existence: %w", err)
	}
	return true, nil
}

func (s *Store) InsertQuote(ctx context.Context, symbolID int64, price string, ts time.Time) error {
	started := time.Now()
	row := quoteRow{Stock: symbolID, Price: price, Timestamp: ts}
	err := s.db.WithContext(ctx).Create(&row).Error
	s.log.Debug("quote insert", zap.Duration("elapsed", time.Since(started)))
	if err != nil {
		return fmt.Errorf("inserting quote: %w", err)
	}
	return nil
}

func (s *Store) MaxQuoteTimestamp(ctx context.Context, symbolID int64) (time.Time, bool, error) {
	var row quoteRow
	err := s.db.WithContext(ctx).
		Where("stock = ?", symbolID).
		Order("timestamp DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying newest quote: %w", err)
	}
	return row.Timestamp, true, nil
}

func (s *Store) SetLastUpdate(ctx context.Context, symbolID int64, ts time.Time) error {
	started := time.Now()
	err := s.db.WithContext(ctx).
		Model(&stockRow{}).
		Where("id = ?", symbolID).
		Update("lastUpdate", ts).Error
	s.log.Debug("freshness update", zap.Duration("elapsed", time.Since(started)))
	if err != nil {
		return fmt.Errorf("updating stock lastUpdate: %w", err)
	}
	return nil
}

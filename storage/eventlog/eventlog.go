// Package eventlog persists committed module events in SQLite so clients can
// query them by type or submission.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"soudefi/core/types"
)

const (
	defaultFilePragmas = "mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	defaultLimit       = 100
	maxLimit           = 1000
)

// ErrPathRequired is returned when the backing store path is missing.
var ErrPathRequired = errors.New("eventlog: path must be configured")

// row is the persisted form of one event.
type row struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	TxID       string `gorm:"size:64;not null;index:events_tx_idx,priority:1"`
	Seq        int    `gorm:"not null;index:events_tx_idx,priority:2"`
	Type       string `gorm:"size:64;not null;index:events_type_idx"`
	Attributes string `gorm:"type:text;not null"`
	Timestamp  int64  `gorm:"not null"`
}

func (row) TableName() string { return "events" }

// Record is a stored event.
type Record struct {
	ID        int64       `json:"id"`
	TxID      string      `json:"txId"`
	Seq       int         `json:"seq"`
	Timestamp uint64      `json:"timestamp"`
	Event     types.Event `json:"event"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Type    string
	TxID    string
	AfterID int64
	Limit   int
}

// Log wraps the SQLite event table.
type Log struct {
	db *gorm.DB
}

// FileDSN converts a filesystem path into an on-disk SQLite DSN.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve eventlog path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}

// Open opens or creates the log at path.
func Open(path string) (*Log, error) {
	dsn, err := FileDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&row{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases database resources.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append stores the events of one submission in order, in one transaction.
func (l *Log) Append(ctx context.Context, txID string, timestamp uint64, evts []types.Event) error {
	if l == nil {
		return fmt.Errorf("eventlog not configured")
	}
	if len(evts) == 0 {
		return nil
	}
	rows := make([]row, 0, len(evts))
	for i, evt := range evts {
		attrs := evt.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		encoded, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("encode attributes: %w", err)
		}
		rows = append(rows, row{
			TxID:       txID,
			Seq:        i,
			Type:       evt.Type,
			Attributes: string(encoded),
			Timestamp:  int64(timestamp),
		})
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
}

// List returns events in insertion order.
func (l *Log) List(ctx context.Context, filter Filter) ([]Record, error) {
	if l == nil {
		return nil, fmt.Errorf("eventlog not configured")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := l.db.WithContext(ctx).Model(&row{}).Where("id > ?", filter.AfterID)
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if tx := strings.TrimSpace(filter.TxID); tx != "" {
		query = query.Where("tx_id = ?", tx)
	}
	var rows []row
	if err := query.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec := Record{ID: r.ID, TxID: r.TxID, Seq: r.Seq, Event: types.Event{Type: r.Type}}
		if err := json.Unmarshal([]byte(r.Attributes), &rec.Event.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
		if r.Timestamp > 0 {
			rec.Timestamp = uint64(r.Timestamp)
		}
		out = append(out, rec)
	}
	return out, nil
}

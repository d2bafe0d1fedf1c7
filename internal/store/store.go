package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/medreminder/internal/config"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	badger *badger.DB
}

// New opens the stores configured in cfg.
func New(cfg *config.Config) (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", cfg.Storage.SQLitePath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	badgerOpts := badger.DefaultOptions(cfg.Storage.BadgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	return open(sqliteDB, badgerOpts)
}

// OpenInMemory returns a store backed by an in-memory SQLite database and an
// in-memory Badger instance.
func OpenInMemory() (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Every connection to :memory: is its own database.
	sqliteDB.SetMaxOpenConns(1)

	return open(sqliteDB, badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(sqliteDB *sql.DB, badgerOpts badger.Options) (*Store, error) {
	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&ScheduledReminder{}, &DeliveryAttempt{}); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{db: db, sqlDB: sqliteDB, badger: badgerDB}, nil
}

// Close closes all database connections
func (s *Store) Close() error {
	return errors.Join(s.badger.Close(), s.sqlDB.Close())
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Badger returns the BadgerDB instance
func (s *Store) Badger() *badger.DB {
	return s.badger
}

// ==================== Reminder Methods ====================

// CreateReminder stores a newly scheduled reminder
func (s *Store) CreateReminder(ctx context.Context, r *ScheduledReminder) error {
	r.NextFireAt = r.NextFireAt.UTC()
	return s.db.WithContext(ctx).Create(r).Error
}

// GetReminder retrieves a reminder by ID
func (s *Store) GetReminder(ctx context.Context, id string) (*ScheduledReminder, error) {
	var r ScheduledReminder
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrNotFound.Code, "reminder "+id)
		}
		return nil, err
	}
	return &r, nil
}

// ListReminders lists a user's reminders, soonest first. An empty userID
// lists everyone's.
func (s *Store) ListReminders(ctx context.Context, userID string, limit, offset int) ([]ScheduledReminder, error) {
	var rs []ScheduledReminder
	q := s.db.WithContext(ctx).Order("next_fire_at ASC").Limit(limit).Offset(offset)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&rs).Error
	return rs, err
}

// DueReminders returns scheduled reminders whose next fire time is not after
// now. Fire times are stored in UTC so they compare as text.
func (s *Store) DueReminders(ctx context.Context, now time.Time, limit int) ([]ScheduledReminder, error) {
	var rs []ScheduledReminder
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_fire_at <= ?", StatusScheduled, now.UTC()).
		Order("next_fire_at ASC").
		Limit(limit).
		Find(&rs).Error
	return rs, err
}

// UpdateReminder saves all fields of a reminder
func (s *Store) UpdateReminder(ctx context.Context, r *ScheduledReminder) error {
	r.NextFireAt = r.NextFireAt.UTC()
	return s.db.WithContext(ctx).Save(r).Error
}

// CancelReminder stops a reminder from firing again
func (s *Store) CancelReminder(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&ScheduledReminder{}).
		Where("id = ? AND status = ?", id, StatusScheduled).
		Update("status", StatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound.Code, "no scheduled reminder "+id)
	}
	return nil
}

// RecordAttempt appends a delivery attempt
func (s *Store) RecordAttempt(ctx context.Context, a *DeliveryAttempt) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// Attempts lists the delivery attempts of a reminder, oldest first
func (s *Store) Attempts(ctx context.Context, reminderID string) ([]DeliveryAttempt, error) {
	var as []DeliveryAttempt
	err := s.db.WithContext(ctx).Where("reminder_id = ?", reminderID).Order("id ASC").Find(&as).Error
	return as, err
}

// ==================== KV Methods (BadgerDB) ====================

// ErrKeyNotFound is returned by GetKV for missing keys
var ErrKeyNotFound = badger.ErrKeyNotFound

// SetKV stores a key-value pair. A positive ttl makes it expire.
func (s *Store) SetKV(key string, value []byte, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("kv:"+key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// GetKV retrieves a value by key
func (s *Store) GetKV(key string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("kv:" + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	return val, err
}

// DeleteKV removes a key
func (s *Store) DeleteKV(key string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("kv:" + key))
	})
}

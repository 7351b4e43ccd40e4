package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL dialect
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"cafe/internal/models"
)

// Options selects and tunes the backing store.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	LogQueries   bool
}

// Open connects to the store described by opts.
func Open(opts Options, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.LogMode(opts.LogQueries)
	db.SetLogger(gormLogger{log: log})

	maxOpen := opts.MaxOpenConns
	if opts.Driver == "sqlite3" {
		// SQLite allows one writer; a single connection turns concurrent
		// transactions into a queue instead of SQLITE_BUSY failures.
		maxOpen = 1
	}
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.DB().SetMaxOpenConns(maxOpen)
	db.DB().SetMaxIdleConns(maxOpen)
	if opts.Driver != "sqlite3" {
		db.DB().SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// OpenInMemory opens a private in-memory SQLite store, migrated and seeded
// with the default status names. Intended for tests and local experiments.
func OpenInMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := Open(Options{Driver: "sqlite3", DSN: dsn}, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := SeedStatuses(db, nil, nil); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or extends every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...).Error; err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

var defaultTableNames = map[models.TableState]string{
	models.TableFree:     "Free",
	models.TableReserved: "Reserved",
	models.TableOccupied: "Occupied",
}

var defaultOrderNames = map[models.OrderState]string{
	models.OrderNew:        "New",
	models.OrderInProgress: "In progress",
	models.OrderCompleted:  "Completed",
	models.OrderCancelled:  "Cancelled",
}

// SeedStatuses ensures one status row exists per state code. Display names
// come from configuration, falling back to English defaults.
func SeedStatuses(db *gorm.DB, tableNames, orderNames map[string]string) error {
	for _, code := range models.TableStates {
		name := tableNames[string(code)]
		if name == "" {
			name = defaultTableNames[code]
		}
		var row models.TableStatus
		err := db.Where(models.TableStatus{Code: code}).
			Assign(models.TableStatus{Name: name}).
			FirstOrCreate(&row).Error
		if err != nil {
			return fmt.Errorf("failed to seed table status %q: %w", code, err)
		}
	}

	for _, code := range models.OrderStates {
		name := orderNames[string(code)]
		if name == "" {
			name = defaultOrderNames[code]
		}
		var row models.OrderStatus
		err := db.Where(models.OrderStatus{Code: code}).
			Assign(models.OrderStatus{Name: name}).
			FirstOrCreate(&row).Error
		if err != nil {
			return fmt.Errorf("failed to seed order status %q: %w", code, err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.BeginTx(ctx, &sql.TxOptions{})
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ForUpdate makes the next query on the returned handle lock the selected
// rows until the transaction ends. SQLite has no row locks; there the single
// connection already serializes writers.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialect().GetName() == "postgres" {
		return tx.Set("gorm:query_option", "FOR UPDATE")
	}
	return tx
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return gorm.IsRecordNotFoundError(err)
}

type gormLogger struct {
	log zerolog.Logger
}

func (l gormLogger) Print(values ...interface{}) {
	l.log.Debug().Str("action", "sql").Msg(fmt.Sprint(values...))
}

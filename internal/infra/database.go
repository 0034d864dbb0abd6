package infra

import (
	"fmt"

	"cashledger/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate,
// then applies the idempotent SQL patches GORM cannot express: the partial
// unique index that serializes session opens and the entry-number sequence.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates/updates all tables and applies schema patches.
// Also used by integration tests against a throwaway container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.CashRegister{},
		&model.CashSession{},
		&model.CashMovement{},
		&model.AccountingAccount{},
		&model.AccountingEntry{},
		&model.AccountingLine{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open session per register. Two concurrent open attempts
		// race on this index: one insert commits, the other fails with a
		// duplicate-key error that the service reports as a conflict.
		{"partial unique index on open sessions", `
CREATE UNIQUE INDEX IF NOT EXISTS uni_cash_sessions_open_register
    ON cash_sessions (register_id)
    WHERE status = 'open'`},
		// Sequential, gap-tolerant entry numbering for the accounting journal.
		{"accounting entry number sequence", `
CREATE SEQUENCE IF NOT EXISTS accounting_entry_number_seq START 1`},
		// Partial index backing the posting retry cron query.
		{"pending posting retry index", `
CREATE INDEX IF NOT EXISTS idx_cash_sessions_pending_posting
    ON cash_sessions (next_post_retry_at)
    WHERE status = 'closed' AND posted_entry_id IS NULL AND next_post_retry_at IS NOT NULL`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

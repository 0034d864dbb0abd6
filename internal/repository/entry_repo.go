package repository

import (
	"context"
	"time"

	"cashledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerRow is the per-account aggregate behind the ledger and trial balance
// projections. Computed by SQL aggregation over posted lines — never cached.
type LedgerRow struct {
	AccountCode   string
	AccountLabel  string
	NormalBalance model.NormalBalance
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
}

type EntryRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	// NextEntryNumberTx draws the next sequential entry number from the
	// accounting_entry_number_seq Postgres sequence, inside the posting tx.
	NextEntryNumberTx(tx *gorm.DB) (int64, error)
	CreateEntryTx(tx *gorm.DB, e *model.AccountingEntry) error
	FindByID(ctx context.Context, id string) (*model.AccountingEntry, error)
	ListEntries(ctx context.Context, from, to time.Time) ([]model.AccountingEntry, error)
	LedgerRows(ctx context.Context, from, to time.Time) ([]LedgerRow, error)
	TrialBalanceRows(ctx context.Context, asOf time.Time) ([]LedgerRow, error)
}

type entryRepo struct{ db *gorm.DB }

func NewEntryRepository(db *gorm.DB) EntryRepository { return &entryRepo{db: db} }

func (r *entryRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *entryRepo) NextEntryNumberTx(tx *gorm.DB) (int64, error) {
	var n int64
	err := tx.Raw(`SELECT nextval('accounting_entry_number_seq')`).Scan(&n).Error
	return n, err
}

func (r *entryRepo) CreateEntryTx(tx *gorm.DB, e *model.AccountingEntry) error {
	return tx.Create(e).Error
}

func (r *entryRepo) FindByID(ctx context.Context, id string) (*model.AccountingEntry, error) {
	var e model.AccountingEntry
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Lines.Account").
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *entryRepo) ListEntries(ctx context.Context, from, to time.Time) ([]model.AccountingEntry, error) {
	var entries []model.AccountingEntry
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Lines.Account").
		Where("entry_date >= ? AND entry_date <= ?", from, to).
		Order("entry_number ASC").
		Find(&entries).Error
	return entries, err
}

const ledgerRowsSQL = `
SELECT
  a.code            AS account_code,
  a.label           AS account_label,
  a.normal_balance  AS normal_balance,
  COALESCE(SUM(l.debit), 0)  AS total_debit,
  COALESCE(SUM(l.credit), 0) AS total_credit
FROM accounting_lines l
JOIN accounting_entries e  ON e.id = l.entry_id
JOIN accounting_accounts a ON a.id = l.account_id
WHERE e.entry_date >= ? AND e.entry_date <= ?
GROUP BY a.code, a.label, a.normal_balance
ORDER BY a.code`

func (r *entryRepo) LedgerRows(ctx context.Context, from, to time.Time) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := r.db.WithContext(ctx).Raw(ledgerRowsSQL, from, to).Scan(&rows).Error
	return rows, err
}

func (r *entryRepo) TrialBalanceRows(ctx context.Context, asOf time.Time) ([]LedgerRow, error) {
	// The trial balance is the ledger from the beginning of time up to asOf.
	var rows []LedgerRow
	err := r.db.WithContext(ctx).Raw(ledgerRowsSQL, time.Time{}, asOf).Scan(&rows).Error
	return rows, err
}

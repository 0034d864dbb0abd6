package repository

import (
	"context"
	"time"

	"cashledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementSums are the per-direction aggregates of a session's movement log.
type MovementSums struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// CategorySum is one row of the per-category aggregation used when posting a
// closed session to the accounting journal.
type CategorySum struct {
	Type     model.MovementType
	Category model.MovementCategory
	Total    decimal.Decimal
}

// SessionFilter narrows ListOpen; zero values mean "any".
type SessionFilter struct {
	RegisterID uuid.UUID
	OpenedBy   uuid.UUID
}

type SessionRepository interface {
	// Transaction runs fn inside a database transaction; every mutation that
	// must be atomic (transfer legs, close, audit adjustment) goes through it.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	CreateSession(ctx context.Context, s *model.CashSession) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	// FindSessionForUpdate loads the session row with a FOR UPDATE lock; it
	// must only be called inside a Transaction.
	FindSessionForUpdate(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error)
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashSession, error)
	ListOpen(ctx context.Context, f SessionFilter) ([]model.CashSession, error)
	UpdateSessionTx(tx *gorm.DB, s *model.CashSession) error
	UpdateSession(ctx context.Context, s *model.CashSession) error

	CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	SumMovements(ctx context.Context, sessionID uuid.UUID) (MovementSums, error)
	SumMovementsTx(tx *gorm.DB, sessionID uuid.UUID) (MovementSums, error)
	SumMovementsByCategory(ctx context.Context, sessionID uuid.UUID) ([]CategorySum, error)

	// ListPendingPostings returns closed sessions whose journal entry has not
	// been posted yet and whose retry time has arrived.
	ListPendingPostings(ctx context.Context, now time.Time, limit int) ([]model.CashSession, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *sessionRepo) CreateSession(ctx context.Context, s *model.CashSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Preload("Register").
		Preload("Movements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&s, id).Error
	return &s, err
}

func (r *sessionRepo) FindSessionForUpdate(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, id).Error
	return &s, err
}

func (r *sessionRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND status = ?", registerID, model.SessionOpen).
		First(&s).Error
	return &s, err
}

func (r *sessionRepo) ListOpen(ctx context.Context, f SessionFilter) ([]model.CashSession, error) {
	q := r.db.WithContext(ctx).
		Preload("Register").
		Where("status = ?", model.SessionOpen)
	if f.RegisterID != uuid.Nil {
		q = q.Where("register_id = ?", f.RegisterID)
	}
	if f.OpenedBy != uuid.Nil {
		q = q.Where("opened_by = ?", f.OpenedBy)
	}
	var sessions []model.CashSession
	err := q.Order("opened_at ASC").Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) UpdateSessionTx(tx *gorm.DB, s *model.CashSession) error {
	return tx.Save(s).Error
}

func (r *sessionRepo) UpdateSession(ctx context.Context, s *model.CashSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	return tx.Create(m).Error
}

func (r *sessionRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

// sumRow receives the raw aggregation result; decimals scan from numeric.
type sumRow struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

const sumMovementsSQL = `
SELECT
  COALESCE(SUM(CASE WHEN type = 'income'  THEN amount END), 0) AS income,
  COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0) AS expense
FROM cash_movements
WHERE session_id = ?`

func (r *sessionRepo) SumMovements(ctx context.Context, sessionID uuid.UUID) (MovementSums, error) {
	return sumMovements(r.db.WithContext(ctx), sessionID)
}

func (r *sessionRepo) SumMovementsTx(tx *gorm.DB, sessionID uuid.UUID) (MovementSums, error) {
	return sumMovements(tx, sessionID)
}

func sumMovements(db *gorm.DB, sessionID uuid.UUID) (MovementSums, error) {
	var row sumRow
	if err := db.Raw(sumMovementsSQL, sessionID).Scan(&row).Error; err != nil {
		return MovementSums{}, err
	}
	return MovementSums{Income: row.Income, Expense: row.Expense}, nil
}

func (r *sessionRepo) SumMovementsByCategory(ctx context.Context, sessionID uuid.UUID) ([]CategorySum, error) {
	var rows []CategorySum
	err := r.db.WithContext(ctx).Raw(`
SELECT type, category, COALESCE(SUM(amount), 0) AS total
FROM cash_movements
WHERE session_id = ?
GROUP BY type, category
ORDER BY type, category`, sessionID).Scan(&rows).Error
	return rows, err
}

func (r *sessionRepo) ListPendingPostings(ctx context.Context, now time.Time, limit int) ([]model.CashSession, error) {
	var sessions []model.CashSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND posted_entry_id IS NULL AND next_post_retry_at IS NOT NULL AND next_post_retry_at <= ?",
			model.SessionClosed, now).
		Order("next_post_retry_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

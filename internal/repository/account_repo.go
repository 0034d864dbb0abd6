package repository

import (
	"context"

	"cashledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository is read-mostly: the chart of accounts is reference data
// seeded at install time (cmd/seedaccounts). No update or delete — accounts
// referenced by posted entries are immutable.
type AccountRepository interface {
	Create(ctx context.Context, a *model.AccountingAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AccountingAccount, error)
	FindByCode(ctx context.Context, code string) (*model.AccountingAccount, error)
	// FindByCodes resolves several codes at once; missing codes are simply
	// absent from the result map.
	FindByCodes(ctx context.Context, codes []string) (map[string]*model.AccountingAccount, error)
	List(ctx context.Context) ([]model.AccountingAccount, error)
}

type accountRepo struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepo{db: db} }

func (r *accountRepo) Create(ctx context.Context, a *model.AccountingAccount) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *accountRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.AccountingAccount, error) {
	var a model.AccountingAccount
	err := r.db.WithContext(ctx).First(&a, id).Error
	return &a, err
}

func (r *accountRepo) FindByCode(ctx context.Context, code string) (*model.AccountingAccount, error) {
	var a model.AccountingAccount
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&a).Error
	return &a, err
}

func (r *accountRepo) FindByCodes(ctx context.Context, codes []string) (map[string]*model.AccountingAccount, error) {
	var accounts []model.AccountingAccount
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&accounts).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*model.AccountingAccount, len(accounts))
	for i := range accounts {
		result[accounts[i].Code] = &accounts[i]
	}
	return result, nil
}

func (r *accountRepo) List(ctx context.Context) ([]model.AccountingAccount, error) {
	var accounts []model.AccountingAccount
	err := r.db.WithContext(ctx).Order("code ASC").Find(&accounts).Error
	return accounts, err
}

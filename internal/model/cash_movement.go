package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIncome  MovementType = "income"
	MovementExpense MovementType = "expense"
)

type MovementCategory string

const (
	CategorySale        MovementCategory = "sale"
	CategoryDeposit     MovementCategory = "deposit"
	CategoryExpense     MovementCategory = "expense"
	CategoryAdjustment  MovementCategory = "adjustment"
	CategoryTransferIn  MovementCategory = "transfer_in"
	CategoryTransferOut MovementCategory = "transfer_out"
	CategoryChangeGiven MovementCategory = "change_given"
)

// CashMovement is an immutable event in the cash register ledger.
// Movements are NEVER modified or deleted — corrections create offsetting
// entries. Amount is always positive; direction comes from Type.
type CashMovement struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID        `gorm:"type:uuid;index;not null"`
	Type      MovementType     `gorm:"type:varchar(10);not null"`
	Category  MovementCategory `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal  `gorm:"type:decimal(14,2);not null"`

	Description string `gorm:"not null"`
	// AccountCode is a weak reference into the chart of accounts (lookup only).
	AccountCode *string `gorm:"type:varchar(10)"`
	// ProofRef points at an expense receipt/voucher identifier.
	ProofRef *string
	// TransferRef correlates the two legs of a transfer.
	TransferRef *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
}

// Signed returns the amount with its sign applied (negative for expenses).
func (m *CashMovement) Signed() decimal.Decimal {
	if m.Type == MovementExpense {
		return m.Amount.Neg()
	}
	return m.Amount
}

// ValidCategory reports whether the category is allowed for the movement type.
func ValidCategory(t MovementType, c MovementCategory) bool {
	switch t {
	case MovementIncome:
		switch c {
		case CategorySale, CategoryDeposit, CategoryAdjustment, CategoryTransferIn:
			return true
		}
	case MovementExpense:
		switch c {
		case CategoryExpense, CategoryAdjustment, CategoryTransferOut, CategoryChangeGiven:
			return true
		}
	}
	return false
}

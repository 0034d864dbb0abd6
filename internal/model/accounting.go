package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NormalBalance is the side on which an account's balance normally sits.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// AccountingAccount is one row of the chart of accounts. Reference data:
// seeded at install time, immutable once referenced by posted entries.
type AccountingAccount struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code          string        `gorm:"type:varchar(10);uniqueIndex;not null"`
	Label         string        `gorm:"not null"`
	Class         int           `gorm:"not null"` // 1..8
	Type          string        `gorm:"type:varchar(30);not null"`
	NormalBalance NormalBalance `gorm:"type:varchar(10);not null"`
	CreatedAt     time.Time
}

// AccountingEntry is a balanced set of debit/credit lines. An entry that does
// not balance is never persisted; validated entries are only ever amended by a
// reversing entry.
type AccountingEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntryNumber   int64     `gorm:"uniqueIndex;not null"`
	EntryDate     time.Time `gorm:"not null;index"`
	Description   string    `gorm:"not null"`
	Reference     *string
	OperationType string `gorm:"type:varchar(30);not null"`
	Validated     bool   `gorm:"not null;default:true"`
	CreatedAt     time.Time
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null"`

	Lines []AccountingLine `gorm:"foreignKey:EntryID"`
}

// AccountingLine is one leg of an entry. By convention exactly one of
// Debit/Credit is non-zero; both zero is tolerated for pure label rows.
type AccountingLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntryID   uuid.UUID `gorm:"type:uuid;index;not null"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	Account   *AccountingAccount
	Debit     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Credit    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Label     *string
	Position  int `gorm:"not null"`
}

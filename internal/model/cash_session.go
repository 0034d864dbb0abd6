package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionStatus: "open" | "closed". The only transition is open → closed;
// there is no reopen — a miscounted session is corrected by a new session
// plus an adjustment movement.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// DenominationBreakdown maps a denomination value (as its decimal string,
// e.g. "500") to a bill/coin count. Stored as jsonb.
type DenominationBreakdown map[string]int

func (b DenominationBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (b *DenominationBreakdown) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		if s, ok := src.(string); ok {
			raw = []byte(s)
		} else {
			return fmt.Errorf("breakdown: unsupported scan type %T", src)
		}
	}
	return json.Unmarshal(raw, b)
}

// CashSession is one open-to-close lifecycle of a register.
// A partial unique index (one row per register where status='open') enforces
// the single-open-session invariant at the database level; see infra.NewDatabase.
type CashSession struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegisterID uuid.UUID `gorm:"type:uuid;not null;index"`
	Register   *CashRegister
	OpenedBy   uuid.UUID `gorm:"type:uuid;not null;index"`

	OpeningBalance   decimal.Decimal       `gorm:"type:decimal(14,2);not null"`
	OpeningBreakdown DenominationBreakdown `gorm:"type:jsonb"`

	Status   SessionStatus `gorm:"type:varchar(10);not null;default:'open'"`
	OpenedAt time.Time
	ClosedAt *time.Time
	ClosedBy *uuid.UUID `gorm:"type:uuid"`

	// DeclaredBalance is the physically counted total supplied at close.
	// ExpectedBalance is frozen at close inside the closing transaction;
	// while the session is open it is always derived from the movement log.
	DeclaredBalance  *decimal.Decimal      `gorm:"type:decimal(14,2)"`
	ExpectedBalance  *decimal.Decimal      `gorm:"type:decimal(14,2)"`
	Discrepancy      *decimal.Decimal      `gorm:"type:decimal(14,2)"`
	ClosingBreakdown DenominationBreakdown `gorm:"type:jsonb"`
	Notes            *string

	// Async accounting posting bookkeeping (worker retry state).
	PostedEntryID   *uuid.UUID `gorm:"type:uuid"`
	PostAttempts    int        `gorm:"not null;default:0"`
	LastPostError   *string
	NextPostRetryAt *time.Time

	Movements []CashMovement `gorm:"foreignKey:SessionID"`
}

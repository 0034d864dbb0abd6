package model

import (
	"time"

	"github.com/google/uuid"
)

// RegisterType determines which transfer direction a register participates in:
// sales and delivery drawers are transfer sources, operating floats are targets.
type RegisterType string

const (
	RegisterSales     RegisterType = "sales"
	RegisterDelivery  RegisterType = "delivery"
	RegisterOperating RegisterType = "operating"
)

// CashRegister is a logical cash drawer/float. Registers are never hard-deleted
// while historical sessions reference them — deactivation only blocks new opens.
type CashRegister struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string       `gorm:"uniqueIndex;not null"`
	Location  *string      `gorm:"type:varchar(120)"`
	Type      RegisterType `gorm:"type:varchar(20);not null"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Sessions []CashSession `gorm:"foreignKey:RegisterID"`
}

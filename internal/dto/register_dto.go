package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateRegisterRequest struct {
	Name     string  `json:"name"     validate:"required,min=2,max=100"`
	Location *string `json:"location" validate:"omitempty,max=120"`
	Type     string  `json:"type"     validate:"required,oneof=sales delivery operating"`
}

type UpdateRegisterRequest struct {
	Name     string  `json:"name"     validate:"omitempty,min=2,max=100"`
	Location *string `json:"location" validate:"omitempty,max=120"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RegisterResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Location *string `json:"location"`
	Type     string  `json:"type"`
	Active   bool    `json:"active"`
	// Derived per request — never stored.
	HasOpenSession bool             `json:"has_open_session"`
	OpenSessionID  *string          `json:"open_session_id"`
	CurrentBalance *decimal.Decimal `json:"current_balance"`
}

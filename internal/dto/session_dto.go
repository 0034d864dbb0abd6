package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OpenSessionRequest starts a session. The opening balance may be supplied
// directly, derived from the denomination breakdown, or both — when both are
// present they must agree.
type OpenSessionRequest struct {
	RegisterID       string           `json:"register_id"       validate:"required,uuid"`
	OpeningBalance   *decimal.Decimal `json:"opening_balance"   validate:"omitempty"`
	OpeningBreakdown map[string]int   `json:"opening_breakdown" validate:"omitempty"`
}

type CloseSessionRequest struct {
	DeclaredBalance  *decimal.Decimal `json:"declared_balance"  validate:"omitempty"`
	ClosingBreakdown map[string]int   `json:"closing_breakdown" validate:"omitempty"`
	Notes            *string          `json:"notes"             validate:"omitempty,max=500"`
}

type RecordMovementRequest struct {
	Type        string          `json:"type"         validate:"required,oneof=income expense"`
	Category    string          `json:"category"     validate:"required,oneof=sale deposit expense adjustment change_given"`
	Amount      decimal.Decimal `json:"amount"       validate:"required"`
	Description string          `json:"description"  validate:"required,min=3"`
	AccountCode *string         `json:"account_code" validate:"omitempty,max=10"`
	ProofRef    *string         `json:"proof_ref"    validate:"omitempty,max=120"`
}

type TransferRequest struct {
	SourceSessionID string          `json:"source_session_id" validate:"required,uuid"`
	TargetSessionID string          `json:"target_session_id" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount"            validate:"required"`
	Description     string          `json:"description"       validate:"required,min=3"`
}

// AuditRequest declares the physically counted amount for reconciliation.
type AuditRequest struct {
	RealAmount *decimal.Decimal `json:"real_amount" validate:"omitempty"`
	Breakdown  map[string]int   `json:"breakdown"   validate:"omitempty"`
	Notes      *string          `json:"notes"       validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovementResponse struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	AccountCode *string         `json:"account_code"`
	ProofRef    *string         `json:"proof_ref"`
	TransferRef *string         `json:"transfer_ref"`
	CreatedAt   string          `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
}

type SessionResponse struct {
	ID              string           `json:"id"`
	RegisterID      string           `json:"register_id"`
	RegisterName    string           `json:"register_name"`
	RegisterType    string           `json:"register_type"`
	OpenedBy        string           `json:"opened_by"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	Status          string           `json:"status"`
	OpenedAt        string           `json:"opened_at"`
	ClosedAt        *string          `json:"closed_at"`
	ClosedBy        *string          `json:"closed_by"`
	DeclaredBalance *decimal.Decimal `json:"declared_balance"`
	ExpectedBalance decimal.Decimal  `json:"expected_balance"`
	Discrepancy     *decimal.Decimal `json:"discrepancy"`
	Notes           *string          `json:"notes"`
}

// SessionDetailResponse adds the movement log and running totals.
type SessionDetailResponse struct {
	SessionResponse
	TotalIncome  decimal.Decimal    `json:"total_income"`
	TotalExpense decimal.Decimal    `json:"total_expense"`
	Movements    []MovementResponse `json:"movements"`
}

type TransferResponse struct {
	TransferRef string           `json:"transfer_ref"`
	Outgoing    MovementResponse `json:"outgoing"`
	Incoming    MovementResponse `json:"incoming"`
}

// AuditResponse reports the reconciliation outcome; Adjustment is nil when
// the count matched exactly.
type AuditResponse struct {
	SessionID       string            `json:"session_id"`
	ExpectedBalance decimal.Decimal   `json:"expected_balance"`
	RealAmount      decimal.Decimal   `json:"real_amount"`
	Difference      decimal.Decimal   `json:"difference"`
	Exact           bool              `json:"exact"`
	Adjustment      *MovementResponse `json:"adjustment"`
}

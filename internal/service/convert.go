package service

import (
	"time"

	"cashledger/internal/dto"
	"cashledger/internal/model"

	"github.com/shopspring/decimal"
)

const timeFormat = time.RFC3339

func movementToResponse(m *model.CashMovement) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:          m.ID.String(),
		SessionID:   m.SessionID.String(),
		Type:        string(m.Type),
		Category:    string(m.Category),
		Amount:      m.Amount,
		Description: m.Description,
		AccountCode: m.AccountCode,
		ProofRef:    m.ProofRef,
		CreatedAt:   m.CreatedAt.Format(timeFormat),
		CreatedBy:   m.CreatedBy.String(),
	}
	if m.TransferRef != nil {
		ref := m.TransferRef.String()
		resp.TransferRef = &ref
	}
	return resp
}

func sessionToResponse(s *model.CashSession, expected decimal.Decimal) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:              s.ID.String(),
		RegisterID:      s.RegisterID.String(),
		OpenedBy:        s.OpenedBy.String(),
		OpeningBalance:  s.OpeningBalance,
		Status:          string(s.Status),
		OpenedAt:        s.OpenedAt.Format(timeFormat),
		DeclaredBalance: s.DeclaredBalance,
		ExpectedBalance: expected,
		Discrepancy:     s.Discrepancy,
		Notes:           s.Notes,
	}
	if s.Register != nil {
		resp.RegisterName = s.Register.Name
		resp.RegisterType = string(s.Register.Type)
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.Format(timeFormat)
		resp.ClosedAt = &t
	}
	if s.ClosedBy != nil {
		id := s.ClosedBy.String()
		resp.ClosedBy = &id
	}
	return resp
}

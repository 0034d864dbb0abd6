package service

import (
	"context"
	"errors"
	"fmt"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuditService reconciles a physical count against the computed expected
// balance and records the difference as an adjustment movement. Used
// mid-session on operating floats, which never go through the drawer-style
// close; sales/delivery closes record the discrepancy without correcting it.
type AuditService interface {
	Audit(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID, req dto.AuditRequest) (*dto.AuditResponse, error)
}

type auditService struct {
	sessionRepo repository.SessionRepository
	counter     *DenominationCounter
}

func NewAuditService(sessionRepo repository.SessionRepository, counter *DenominationCounter) AuditService {
	return &auditService{sessionRepo: sessionRepo, counter: counter}
}

func (s *auditService) Audit(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID, req dto.AuditRequest) (*dto.AuditResponse, error) {
	real, err := s.resolveRealAmount(req)
	if err != nil {
		return nil, err
	}

	resp := &dto.AuditResponse{SessionID: sessionID.String(), RealAmount: real}

	// Expected balance and the adjustment write share one transaction, so a
	// movement slipping in between cannot skew the correction.
	err = s.sessionRepo.Transaction(ctx, func(tx *gorm.DB) error {
		session, err := s.sessionRepo.FindSessionForUpdate(tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFoundf("session %s not found", sessionID)
			}
			return err
		}
		if session.Status != model.SessionOpen {
			return apierror.Conflictf("session %s is closed; audit only applies to open sessions", sessionID)
		}

		sums, err := s.sessionRepo.SumMovementsTx(tx, sessionID)
		if err != nil {
			return err
		}
		expected := session.OpeningBalance.Add(sums.Income).Sub(sums.Expense)
		diff := real.Sub(expected)

		resp.ExpectedBalance = expected
		resp.Difference = diff
		if diff.IsZero() {
			// Exact count: nothing to correct, nothing to write.
			resp.Exact = true
			return nil
		}

		description := fmt.Sprintf("cash count adjustment (counted %s, expected %s)",
			real.StringFixed(2), expected.StringFixed(2))
		if req.Notes != nil && *req.Notes != "" {
			description += ": " + *req.Notes
		}

		adjustment := &model.CashMovement{
			SessionID:   sessionID,
			Type:        model.MovementIncome,
			Category:    model.CategoryAdjustment,
			Amount:      diff.Abs(),
			Description: description,
			CreatedBy:   actorID,
		}
		if diff.IsNegative() {
			adjustment.Type = model.MovementExpense
		}
		if err := s.sessionRepo.CreateMovementTx(tx, adjustment); err != nil {
			return err
		}
		adj := movementToResponse(adjustment)
		resp.Adjustment = &adj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *auditService) resolveRealAmount(req dto.AuditRequest) (real decimal.Decimal, err error) {
	if req.Breakdown != nil {
		counted, cErr := s.counter.Total(req.Breakdown)
		if cErr != nil {
			return real, cErr
		}
		if req.RealAmount != nil && !req.RealAmount.Equal(counted) {
			return real, apierror.Validationf(
				"declared amount %s does not match counted breakdown total %s",
				req.RealAmount.StringFixed(2), counted.StringFixed(2))
		}
		return counted, nil
	}
	if req.RealAmount == nil {
		return real, apierror.Validationf("either real_amount or a breakdown is required")
	}
	if req.RealAmount.IsNegative() {
		return real, apierror.Validationf("real_amount cannot be negative")
	}
	return *req.RealAmount, nil
}

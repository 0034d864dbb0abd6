package service

import (
	"context"
	"errors"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementService is the append-only movement ledger. Balances are always
// derived from the log by aggregation — never maintained as a counter that
// could drift from it.
type MovementService interface {
	Record(ctx context.Context, createdBy uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error)
	// ExpectedBalance recomputes opening + Σincome − Σexpense from scratch.
	ExpectedBalance(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
}

type movementService struct {
	sessionRepo repository.SessionRepository
	accountRepo repository.AccountRepository
}

func NewMovementService(sessionRepo repository.SessionRepository, accountRepo repository.AccountRepository) MovementService {
	return &movementService{sessionRepo: sessionRepo, accountRepo: accountRepo}
}

func (s *movementService) Record(ctx context.Context, createdBy uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.Validationf("amount must be greater than zero")
	}
	mType := model.MovementType(req.Type)
	category := model.MovementCategory(req.Category)
	if !model.ValidCategory(mType, category) {
		return nil, apierror.Validationf("category %q is not valid for %s movements", category, mType)
	}
	if req.AccountCode != nil {
		if _, err := s.accountRepo.FindByCode(ctx, *req.AccountCode); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFoundf("account %s not found", *req.AccountCode)
			}
			return nil, err
		}
	}

	mov := &model.CashMovement{
		SessionID:   sessionID,
		Type:        mType,
		Category:    category,
		Amount:      req.Amount,
		Description: req.Description,
		AccountCode: req.AccountCode,
		ProofRef:    req.ProofRef,
		CreatedBy:   createdBy,
	}

	// The session row is locked so the append is ordered against a concurrent
	// close: it either lands before the close freezes the log, or fails here.
	err := s.sessionRepo.Transaction(ctx, func(tx *gorm.DB) error {
		session, err := s.sessionRepo.FindSessionForUpdate(tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFoundf("session %s not found", sessionID)
			}
			return err
		}
		if session.Status != model.SessionOpen {
			return apierror.Conflictf("session %s is closed; movements are append-only against open sessions", sessionID)
		}
		return s.sessionRepo.CreateMovementTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}

	resp := movementToResponse(mov)
	return &resp, nil
}

func (s *movementService) ExpectedBalance(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	session, err := s.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, apierror.NotFoundf("session %s not found", sessionID)
		}
		return decimal.Zero, err
	}
	sums, err := s.sessionRepo.SumMovements(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return session.OpeningBalance.Add(sums.Income).Sub(sums.Expense), nil
}

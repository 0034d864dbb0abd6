package service

import (
	"context"
	"errors"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferService moves funds between two open sessions as exactly two linked
// movements, committed atomically. Funds flow from point-of-sale drawers
// (sales/delivery) into the operating float, never the reverse.
type TransferService interface {
	Transfer(ctx context.Context, actorID uuid.UUID, req dto.TransferRequest) (*dto.TransferResponse, error)
}

type transferService struct {
	sessionRepo  repository.SessionRepository
	registerRepo repository.RegisterRepository
}

func NewTransferService(sessionRepo repository.SessionRepository, registerRepo repository.RegisterRepository) TransferService {
	return &transferService{sessionRepo: sessionRepo, registerRepo: registerRepo}
}

func (s *transferService) Transfer(ctx context.Context, actorID uuid.UUID, req dto.TransferRequest) (*dto.TransferResponse, error) {
	sourceID, err := uuid.Parse(req.SourceSessionID)
	if err != nil {
		return nil, apierror.Validationf("invalid source_session_id: %v", err)
	}
	targetID, err := uuid.Parse(req.TargetSessionID)
	if err != nil {
		return nil, apierror.Validationf("invalid target_session_id: %v", err)
	}
	if sourceID == targetID {
		return nil, apierror.Validationf("source and target sessions must differ")
	}
	if !req.Amount.IsPositive() {
		return nil, apierror.Validationf("amount must be greater than zero")
	}

	ref := uuid.New()
	outgoing := &model.CashMovement{
		SessionID:   sourceID,
		Type:        model.MovementExpense,
		Category:    model.CategoryTransferOut,
		Amount:      req.Amount,
		Description: req.Description,
		TransferRef: &ref,
		CreatedBy:   actorID,
	}
	incoming := &model.CashMovement{
		SessionID:   targetID,
		Type:        model.MovementIncome,
		Category:    model.CategoryTransferIn,
		Amount:      req.Amount,
		Description: req.Description,
		TransferRef: &ref,
		CreatedBy:   actorID,
	}

	// Both legs commit or neither does. Session rows are locked in UUID order
	// so two crossing transfers cannot deadlock.
	err = s.sessionRepo.Transaction(ctx, func(tx *gorm.DB) error {
		first, second := sourceID, targetID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*model.CashSession, 2)
		for _, id := range []uuid.UUID{first, second} {
			session, err := s.sessionRepo.FindSessionForUpdate(tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apierror.NotFoundf("session %s not found", id)
				}
				return err
			}
			if session.Status != model.SessionOpen {
				return apierror.Conflictf("session %s is closed", id)
			}
			locked[id] = session
		}

		if err := s.checkRegisterTypes(ctx, locked[sourceID], locked[targetID]); err != nil {
			return err
		}

		if err := s.sessionRepo.CreateMovementTx(tx, outgoing); err != nil {
			return err
		}
		return s.sessionRepo.CreateMovementTx(tx, incoming)
	})
	if err != nil {
		return nil, err
	}

	return &dto.TransferResponse{
		TransferRef: ref.String(),
		Outgoing:    movementToResponse(outgoing),
		Incoming:    movementToResponse(incoming),
	}, nil
}

// checkRegisterTypes enforces the flow direction. Register types are fixed at
// creation, so reading them outside the row locks is safe.
func (s *transferService) checkRegisterTypes(ctx context.Context, source, target *model.CashSession) error {
	sourceReg, err := s.registerRepo.FindByID(ctx, source.RegisterID)
	if err != nil {
		return err
	}
	targetReg, err := s.registerRepo.FindByID(ctx, target.RegisterID)
	if err != nil {
		return err
	}
	if sourceReg.Type != model.RegisterSales && sourceReg.Type != model.RegisterDelivery {
		return apierror.Validationf("transfer source must be a sales or delivery register, got %q", sourceReg.Type)
	}
	if targetReg.Type != model.RegisterOperating {
		return apierror.Validationf("transfer target must be an operating register, got %q", targetReg.Type)
	}
	return nil
}

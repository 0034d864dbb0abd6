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

type RegisterService interface {
	Create(ctx context.Context, req dto.CreateRegisterRequest) (*dto.RegisterResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateRegisterRequest) (*dto.RegisterResponse, error)
	// List enriches each register with hasOpenSession/currentBalance, both
	// derived per request from the session and movement logs.
	List(ctx context.Context, includeInactive bool) ([]dto.RegisterResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.RegisterResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
}

type registerService struct {
	repo        repository.RegisterRepository
	sessionRepo repository.SessionRepository
}

func NewRegisterService(repo repository.RegisterRepository, sessionRepo repository.SessionRepository) RegisterService {
	return &registerService{repo: repo, sessionRepo: sessionRepo}
}

func (s *registerService) Create(ctx context.Context, req dto.CreateRegisterRequest) (*dto.RegisterResponse, error) {
	reg := &model.CashRegister{
		Name:     req.Name,
		Location: req.Location,
		Type:     model.RegisterType(req.Type),
		Active:   true,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflictf("a register named %q already exists", req.Name)
		}
		return nil, err
	}
	return s.enrich(ctx, reg)
}

func (s *registerService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateRegisterRequest) (*dto.RegisterResponse, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		reg.Name = req.Name
	}
	if req.Location != nil {
		reg.Location = req.Location
	}
	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, err
	}
	return s.enrich(ctx, reg)
}

func (s *registerService) List(ctx context.Context, includeInactive bool) ([]dto.RegisterResponse, error) {
	regs, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RegisterResponse, 0, len(regs))
	for i := range regs {
		resp, err := s.enrich(ctx, &regs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *registerService) Get(ctx context.Context, id uuid.UUID) (*dto.RegisterResponse, error) {
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, reg)
}

// Deactivate blocks new session opens; history stays intact. Registers are
// never hard-deleted while sessions reference them.
func (s *registerService) Deactivate(ctx context.Context, id uuid.UUID) error {
	reg, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.sessionRepo.FindOpenByRegister(ctx, id); err == nil {
		return apierror.Conflictf("register has an open session; close it first")
	}
	reg.Active = false
	return s.repo.Update(ctx, reg)
}

func (s *registerService) Reactivate(ctx context.Context, id uuid.UUID) error {
	reg, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	reg.Active = true
	return s.repo.Update(ctx, reg)
}

func (s *registerService) find(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("register %s not found", id)
		}
		return nil, err
	}
	return reg, nil
}

func (s *registerService) enrich(ctx context.Context, reg *model.CashRegister) (*dto.RegisterResponse, error) {
	resp := &dto.RegisterResponse{
		ID:       reg.ID.String(),
		Name:     reg.Name,
		Location: reg.Location,
		Type:     string(reg.Type),
		Active:   reg.Active,
	}

	open, err := s.sessionRepo.FindOpenByRegister(ctx, reg.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		return nil, err
	}

	sums, err := s.sessionRepo.SumMovements(ctx, open.ID)
	if err != nil {
		return nil, err
	}
	balance := open.OpeningBalance.Add(sums.Income).Sub(sums.Expense)
	sessionID := open.ID.String()
	resp.HasOpenSession = true
	resp.OpenSessionID = &sessionID
	resp.CurrentBalance = &balance
	return resp, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashledger/internal/apierror"
	"cashledger/internal/config"
	"cashledger/internal/dto"
	"cashledger/internal/model"
	"cashledger/internal/repository"
	"cashledger/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SessionService interface {
	Open(ctx context.Context, openerID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	// ListOpen backs the order-payment gate: "does this actor have an open
	// session on a register of the right type?"
	ListOpen(ctx context.Context, f repository.SessionFilter) ([]dto.SessionResponse, error)
	Detail(ctx context.Context, sessionID uuid.UUID) (*dto.SessionDetailResponse, error)
	Close(ctx context.Context, closerID uuid.UUID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error)
}

type sessionService struct {
	repo         repository.SessionRepository
	registerRepo repository.RegisterRepository
	counter      *DenominationCounter
	exports      ExportService
	dispatcher   *worker.Dispatcher
	cfg          *config.Config
}

func NewSessionService(
	repo repository.SessionRepository,
	registerRepo repository.RegisterRepository,
	counter *DenominationCounter,
	exports ExportService,
	dispatcher *worker.Dispatcher,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:         repo,
		registerRepo: registerRepo,
		counter:      counter,
		exports:      exports,
		dispatcher:   dispatcher,
		cfg:          cfg,
	}
}

// resolveBalance turns (direct amount, breakdown) into one opening/declared
// figure. Both present must agree; at least one is required.
func (s *sessionService) resolveBalance(direct *decimal.Decimal, breakdown map[string]int) (decimal.Decimal, error) {
	if breakdown != nil {
		counted, err := s.counter.Total(breakdown)
		if err != nil {
			return decimal.Zero, err
		}
		if direct != nil && !direct.Equal(counted) {
			return decimal.Zero, apierror.Validationf(
				"declared amount %s does not match counted breakdown total %s",
				direct.StringFixed(2), counted.StringFixed(2))
		}
		return counted, nil
	}
	if direct == nil {
		return decimal.Zero, apierror.Validationf("either a balance or a denomination breakdown is required")
	}
	if direct.IsNegative() {
		return decimal.Zero, apierror.Validationf("balance cannot be negative")
	}
	return *direct, nil
}

func (s *sessionService) Open(ctx context.Context, openerID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	registerID, err := uuid.Parse(req.RegisterID)
	if err != nil {
		return nil, apierror.Validationf("invalid register_id: %v", err)
	}

	register, err := s.registerRepo.FindByID(ctx, registerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("register %s not found", registerID)
		}
		return nil, err
	}
	if !register.Active {
		return nil, apierror.Inactivef("register %q is deactivated", register.Name)
	}

	opening, err := s.resolveBalance(req.OpeningBalance, req.OpeningBreakdown)
	if err != nil {
		return nil, err
	}

	session := &model.CashSession{
		RegisterID:       registerID,
		OpenedBy:         openerID,
		OpeningBalance:   opening,
		OpeningBreakdown: req.OpeningBreakdown,
		Status:           model.SessionOpen,
		OpenedAt:         time.Now(),
	}
	// Open is a compare-and-set on the register: the partial unique index on
	// (register_id) WHERE status='open' decides races, not a read-then-write.
	if err := s.repo.CreateSession(ctx, session); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflictf("a session is already open on register %q", register.Name)
		}
		return nil, err
	}
	session.Register = register

	resp := sessionToResponse(session, opening)
	return &resp, nil
}

func (s *sessionService) ListOpen(ctx context.Context, f repository.SessionFilter) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.ListOpen(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		sums, err := s.repo.SumMovements(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		expected := sessions[i].OpeningBalance.Add(sums.Income).Sub(sums.Expense)
		out = append(out, sessionToResponse(&sessions[i], expected))
	}
	return out, nil
}

func (s *sessionService) Detail(ctx context.Context, sessionID uuid.UUID) (*dto.SessionDetailResponse, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("session %s not found", sessionID)
		}
		return nil, err
	}

	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	movements := make([]dto.MovementResponse, 0, len(session.Movements))
	for i := range session.Movements {
		m := &session.Movements[i]
		if m.Type == model.MovementIncome {
			totalIncome = totalIncome.Add(m.Amount)
		} else {
			totalExpense = totalExpense.Add(m.Amount)
		}
		movements = append(movements, movementToResponse(m))
	}
	expected := session.OpeningBalance.Add(totalIncome).Sub(totalExpense)

	return &dto.SessionDetailResponse{
		SessionResponse: sessionToResponse(session, expected),
		TotalIncome:     totalIncome,
		TotalExpense:    totalExpense,
		Movements:       movements,
	}, nil
}

// Close is the sole transition out of open. The session row is locked FOR
// UPDATE and the expected balance is recomputed inside the same transaction,
// so a concurrent append either lands before the freeze (and is counted) or
// fails against the already-closed session.
func (s *sessionService) Close(ctx context.Context, closerID uuid.UUID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error) {
	declared, err := s.resolveBalance(req.DeclaredBalance, req.ClosingBreakdown)
	if err != nil {
		return nil, err
	}

	var session *model.CashSession
	var expected decimal.Decimal

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		session, err = s.repo.FindSessionForUpdate(tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFoundf("session %s not found", sessionID)
			}
			return err
		}
		if session.Status != model.SessionOpen {
			return apierror.Conflictf("session %s is already closed", sessionID)
		}

		sums, err := s.repo.SumMovementsTx(tx, sessionID)
		if err != nil {
			return err
		}
		expected = session.OpeningBalance.Add(sums.Income).Sub(sums.Expense)
		discrepancy := declared.Sub(expected)
		now := time.Now()
		// Safety net for the posting job: if the queued job is lost, the
		// retry cron re-enqueues from this timestamp.
		retryAt := now.Add(5 * time.Minute)

		session.Status = model.SessionClosed
		session.ClosedAt = &now
		session.ClosedBy = &closerID
		session.DeclaredBalance = &declared
		session.ExpectedBalance = &expected
		session.Discrepancy = &discrepancy
		session.ClosingBreakdown = req.ClosingBreakdown
		session.Notes = req.Notes
		session.NextPostRetryAt = &retryAt
		return s.repo.UpdateSessionTx(tx, session)
	})
	if err != nil {
		return nil, err
	}

	s.afterClose(ctx, session)

	resp := sessionToResponse(session, expected)
	return &resp, nil
}

// afterClose enqueues the formal journal posting and, when the discrepancy
// breaches the configured threshold, a supervisor alert. Both are
// fire-and-forget: the close itself already committed.
func (s *sessionService) afterClose(ctx context.Context, session *model.CashSession) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueuePosting(ctx, worker.PostingJobPayload{SessionID: session.ID.String()}); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to enqueue posting job")
	}

	if session.Discrepancy == nil || s.cfg == nil || s.cfg.AlertEmail == "" {
		return
	}
	if session.Discrepancy.Abs().LessThan(s.cfg.AlertThreshold()) {
		return
	}
	body := fmt.Sprintf(
		"Session %s closed with a discrepancy of %s (declared %s, expected %s). Manager review required.",
		session.ID, session.Discrepancy.StringFixed(2),
		session.DeclaredBalance.StringFixed(2), session.ExpectedBalance.StringFixed(2))
	payload := worker.AlertJobPayload{
		ToEmail: s.cfg.AlertEmail,
		Subject: fmt.Sprintf("Cash discrepancy on session %s", session.ID),
		Body:    body,
	}
	// The supervisor gets the full movement log alongside the numbers.
	if s.exports != nil && s.cfg.ExportStoragePath != "" {
		path, err := s.exports.WriteSessionJournal(ctx, session.ID, s.cfg.ExportStoragePath)
		if err != nil {
			log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("failed to write session journal for alert")
		} else {
			payload.AttachmentPath = path
		}
	}
	if err := s.dispatcher.EnqueueAlert(ctx, payload); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("failed to enqueue discrepancy alert")
	}
}

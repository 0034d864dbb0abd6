package worker

// posting_worker.go
// Processes journal posting jobs from QueuePosting: a closed session is
// formalized into one balanced accounting entry. Failures increment the
// session's retry counters so the retry cron can pick them up again;
// exhausted sessions land in the DLQ for manual inspection.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxPostAttempts bounds automatic posting retries per session.
const MaxPostAttempts = 5

// PostingWorker turns a closed session's movement log into a journal entry.
type PostingWorker struct {
	sessionRepo repository.SessionRepository
	accountRepo repository.AccountRepository
	entryRepo   repository.EntryRepository
	rdb         *redis.Client
	cfg         *config.Config
}

func NewPostingWorker(
	sessionRepo repository.SessionRepository,
	accountRepo repository.AccountRepository,
	entryRepo repository.EntryRepository,
	rdb *redis.Client,
	cfg *config.Config,
) *PostingWorker {
	return &PostingWorker{
		sessionRepo: sessionRepo,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		rdb:         rdb,
		cfg:         cfg,
	}
}

// Process handles a single posting job:
//  1. Parse PostingJobPayload from the job envelope
//  2. Fetch the closed session; skip if already posted (idempotent)
//  3. Aggregate the movement log per category
//  4. Build a balanced entry and create it with the next sequential number
//  5. Record the entry ID on the session, or schedule a retry on failure
func (w *PostingWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload PostingJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("posting_worker: invalid payload")
		return
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		log.Error().Str("session_id", payload.SessionID).Msg("posting_worker: invalid session_id")
		return
	}

	session, err := w.sessionRepo.FindSessionByID(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("posting_worker: session not found")
		return
	}
	if session.Status != model.SessionClosed {
		log.Warn().Str("session_id", payload.SessionID).Msg("posting_worker: session not closed, skipping")
		return
	}
	if session.PostedEntryID != nil {
		log.Debug().Str("session_id", payload.SessionID).Msg("posting_worker: already posted, skipping")
		return
	}

	if err := w.PostSession(ctx, session); err != nil {
		w.scheduleRetry(ctx, session, err)
	}
}

// PostSession builds and persists the journal entry for one closed session.
// Exported so the retry cron can drive the same logic.
func (w *PostingWorker) PostSession(ctx context.Context, session *model.CashSession) error {
	sums, err := w.sessionRepo.SumMovementsByCategory(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("aggregating movements: %w", err)
	}

	lines, err := w.buildLines(ctx, session, sums)
	if err != nil {
		return err
	}

	if len(lines) == 0 {
		// Nothing moved and the count matched: no entry to post.
		session.NextPostRetryAt = nil
		session.LastPostError = nil
		if err := w.sessionRepo.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("marking empty session: %w", err)
		}
		log.Info().Str("session_id", session.ID.String()).Msg("posting_worker: no activity, nothing to post")
		return nil
	}

	ref := session.ID.String()
	entry := &model.AccountingEntry{
		EntryDate:     entryDateFor(session),
		Description:   fmt.Sprintf("Cash session close %s", shortSessionID(session.ID)),
		Reference:     &ref,
		OperationType: "session_close",
		Validated:     true,
		CreatedBy:     closedByOrOpener(session),
		Lines:         lines,
	}

	// Entry and PostedEntryID commit together: a crash between them cannot
	// leave a posted entry on a session that still looks unposted. The row
	// lock plus the re-check stops a concurrent replica or a stale cron pick
	// from posting the same session twice.
	var alreadyPosted bool
	prevRetryAt, prevPostError := session.NextPostRetryAt, session.LastPostError
	err = w.sessionRepo.Transaction(ctx, func(tx *gorm.DB) error {
		locked, err := w.sessionRepo.FindSessionForUpdate(tx, session.ID)
		if err != nil {
			return fmt.Errorf("locking session: %w", err)
		}
		if locked.PostedEntryID != nil {
			alreadyPosted = true
			session.PostedEntryID = locked.PostedEntryID
			return nil
		}

		n, err := w.entryRepo.NextEntryNumberTx(tx)
		if err != nil {
			return err
		}
		entry.EntryNumber = n
		if err := w.entryRepo.CreateEntryTx(tx, entry); err != nil {
			return err
		}

		session.PostedEntryID = &entry.ID
		session.NextPostRetryAt = nil
		session.LastPostError = nil
		return w.sessionRepo.UpdateSessionTx(tx, session)
	})
	if err != nil {
		// Rolled back: the struct must not keep fields the database never saw.
		session.PostedEntryID = nil
		session.NextPostRetryAt = prevRetryAt
		session.LastPostError = prevPostError
		return fmt.Errorf("creating entry: %w", err)
	}
	if alreadyPosted {
		log.Debug().Str("session_id", session.ID.String()).Msg("posting_worker: already posted, skipping")
		return nil
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("entry_id", entry.ID.String()).
		Int64("entry_number", entry.EntryNumber).
		Msg("posting_worker: session posted to journal")
	return nil
}

// buildLines maps category aggregates onto chart-of-account lines.
// Income categories credit their account, expense categories debit theirs,
// the discrepancy (if any) hits surplus/shortfall, and a single cash line
// carries the net drawer change. Balanced by construction.
func (w *PostingWorker) buildLines(ctx context.Context, session *model.CashSession, sums []repository.CategorySum) ([]model.AccountingLine, error) {
	codes := []string{
		w.cfg.CashAccountCode,
		w.cfg.SalesAccountCode,
		w.cfg.ExpenseAccountCode,
		w.cfg.SurplusAccountCode,
		w.cfg.ShortfallAccountCode,
	}
	accounts, err := w.accountRepo.FindByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("resolving accounts: %w", err)
	}
	for _, code := range codes {
		if _, ok := accounts[code]; !ok {
			return nil, fmt.Errorf("chart of accounts missing code %s", code)
		}
	}

	var lines []model.AccountingLine
	position := 0
	addLine := func(code string, debit, credit decimal.Decimal, label string) {
		position++
		l := label
		lines = append(lines, model.AccountingLine{
			AccountID: accounts[code].ID,
			Debit:     debit,
			Credit:    credit,
			Label:     &l,
			Position:  position,
		})
	}

	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	for _, s := range sums {
		if s.Total.IsZero() {
			continue
		}
		code := w.accountFor(s.Type, s.Category)
		label := fmt.Sprintf("%s %s", s.Type, s.Category)
		if s.Type == model.MovementIncome {
			totalIncome = totalIncome.Add(s.Total)
			addLine(code, decimal.Zero, s.Total, label)
		} else {
			totalExpense = totalExpense.Add(s.Total)
			addLine(code, s.Total, decimal.Zero, label)
		}
	}

	discrepancy := decimal.Zero
	if session.Discrepancy != nil {
		discrepancy = *session.Discrepancy
	}
	switch {
	case discrepancy.IsPositive():
		addLine(w.cfg.SurplusAccountCode, decimal.Zero, discrepancy, "cash surplus at close")
	case discrepancy.IsNegative():
		addLine(w.cfg.ShortfallAccountCode, discrepancy.Abs(), decimal.Zero, "cash shortfall at close")
	}

	// Net drawer change, adjusted to the physically counted cash.
	cashDelta := totalIncome.Sub(totalExpense).Add(discrepancy)
	switch {
	case cashDelta.IsPositive():
		addLine(w.cfg.CashAccountCode, cashDelta, decimal.Zero, "net cash movement")
	case cashDelta.IsNegative():
		addLine(w.cfg.CashAccountCode, decimal.Zero, cashDelta.Abs(), "net cash movement")
	}

	return lines, nil
}

// accountFor maps a movement (type, category) to its account code.
func (w *PostingWorker) accountFor(t model.MovementType, c model.MovementCategory) string {
	switch c {
	case model.CategorySale:
		return w.cfg.SalesAccountCode
	case model.CategoryExpense:
		return w.cfg.ExpenseAccountCode
	case model.CategoryDeposit:
		return w.cfg.SurplusAccountCode
	case model.CategoryAdjustment:
		if t == model.MovementIncome {
			return w.cfg.SurplusAccountCode
		}
		return w.cfg.ShortfallAccountCode
	default:
		// transfer_in / transfer_out / change_given are cash-to-cash.
		return w.cfg.CashAccountCode
	}
}

func (w *PostingWorker) scheduleRetry(ctx context.Context, session *model.CashSession, cause error) {
	session.PostAttempts++
	errMsg := cause.Error()
	session.LastPostError = &errMsg

	if session.PostAttempts >= MaxPostAttempts {
		session.NextPostRetryAt = nil
		log.Error().
			Str("session_id", session.ID.String()).
			Int("attempts", session.PostAttempts).
			Err(cause).
			Msg("posting_worker: max attempts exceeded, moving to DLQ")

		payload, _ := json.Marshal(PostingJobPayload{SessionID: session.ID.String()})
		SendToDLQ(ctx, w.rdb, QueuePosting, "posting", payload,
			fmt.Sprintf("max attempts (%d) exceeded: %s", MaxPostAttempts, errMsg),
			session.PostAttempts)
	} else {
		next := time.Now().Add(computeRetryBackoff(session.PostAttempts))
		session.NextPostRetryAt = &next
		log.Warn().
			Str("session_id", session.ID.String()).
			Int("attempts", session.PostAttempts).
			Time("next_retry_at", next).
			Err(cause).
			Msg("posting_worker: posting failed, scheduled retry")
	}

	if err := w.sessionRepo.UpdateSession(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("posting_worker: failed to persist retry state")
	}
}

// computeRetryBackoff: 1m, 2m, 4m, 8m, capped at 30m.
func computeRetryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 5 {
		return 30 * time.Minute
	}
	d := time.Minute << uint(attempts-1)
	if d > 30*time.Minute {
		return 30 * time.Minute
	}
	return d
}

func entryDateFor(session *model.CashSession) time.Time {
	if session.ClosedAt != nil {
		return *session.ClosedAt
	}
	return time.Now()
}

func closedByOrOpener(session *model.CashSession) uuid.UUID {
	if session.ClosedBy != nil {
		return *session.ClosedBy
	}
	return session.OpenedBy
}

func shortSessionID(id uuid.UUID) string {
	return id.String()[:8]
}

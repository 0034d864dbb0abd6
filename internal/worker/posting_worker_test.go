package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubSessionRepo struct {
	sessions  map[uuid.UUID]*model.CashSession
	sums      []repository.CategorySum
	updateErr error
	// entryRepo, when set, gets its writes rolled back on a failed Transaction
	// the way the database would.
	entryRepo *stubEntryRepo
}

func newStubSessionRepo(s *model.CashSession, sums []repository.CategorySum) *stubSessionRepo {
	return &stubSessionRepo{
		sessions: map[uuid.UUID]*model.CashSession{s.ID: s},
		sums:     sums,
	}
}

func (r *stubSessionRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	var entries []*model.AccountingEntry
	var nextNumber int64
	if r.entryRepo != nil {
		entries = append([]*model.AccountingEntry(nil), r.entryRepo.entries...)
		nextNumber = r.entryRepo.nextNumber
	}
	if err := fn(nil); err != nil {
		if r.entryRepo != nil {
			r.entryRepo.entries = entries
			r.entryRepo.nextNumber = nextNumber
		}
		return err
	}
	return nil
}
func (r *stubSessionRepo) CreateSession(context.Context, *model.CashSession) error { return nil }
func (r *stubSessionRepo) FindSessionByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}
func (r *stubSessionRepo) FindSessionForUpdate(_ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	return r.FindSessionByID(context.Background(), id)
}
func (r *stubSessionRepo) FindOpenByRegister(context.Context, uuid.UUID) (*model.CashSession, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubSessionRepo) ListOpen(context.Context, repository.SessionFilter) ([]model.CashSession, error) {
	return nil, nil
}
func (r *stubSessionRepo) UpdateSessionTx(_ *gorm.DB, s *model.CashSession) error {
	return r.UpdateSession(context.Background(), s)
}
func (r *stubSessionRepo) UpdateSession(_ context.Context, s *model.CashSession) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.sessions[s.ID] = s
	return nil
}
func (r *stubSessionRepo) CreateMovementTx(*gorm.DB, *model.CashMovement) error { return nil }
func (r *stubSessionRepo) ListMovements(context.Context, uuid.UUID) ([]model.CashMovement, error) {
	return nil, nil
}
func (r *stubSessionRepo) SumMovements(context.Context, uuid.UUID) (repository.MovementSums, error) {
	return repository.MovementSums{}, nil
}
func (r *stubSessionRepo) SumMovementsTx(*gorm.DB, uuid.UUID) (repository.MovementSums, error) {
	return repository.MovementSums{}, nil
}
func (r *stubSessionRepo) SumMovementsByCategory(context.Context, uuid.UUID) ([]repository.CategorySum, error) {
	return r.sums, nil
}
func (r *stubSessionRepo) ListPendingPostings(context.Context, time.Time, int) ([]model.CashSession, error) {
	return nil, nil
}

var _ repository.SessionRepository = (*stubSessionRepo)(nil)

type stubAccountRepo struct {
	byCode map[string]*model.AccountingAccount
}

func newStubAccountRepo(codes ...string) *stubAccountRepo {
	r := &stubAccountRepo{byCode: make(map[string]*model.AccountingAccount, len(codes))}
	for _, code := range codes {
		r.byCode[code] = &model.AccountingAccount{ID: uuid.New(), Code: code}
	}
	return r
}

func (r *stubAccountRepo) Create(context.Context, *model.AccountingAccount) error { return nil }
func (r *stubAccountRepo) FindByID(context.Context, uuid.UUID) (*model.AccountingAccount, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubAccountRepo) FindByCode(_ context.Context, code string) (*model.AccountingAccount, error) {
	a, ok := r.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}
func (r *stubAccountRepo) FindByCodes(_ context.Context, codes []string) (map[string]*model.AccountingAccount, error) {
	out := make(map[string]*model.AccountingAccount)
	for _, code := range codes {
		if a, ok := r.byCode[code]; ok {
			out[code] = a
		}
	}
	return out, nil
}
func (r *stubAccountRepo) List(context.Context) ([]model.AccountingAccount, error) { return nil, nil }

var _ repository.AccountRepository = (*stubAccountRepo)(nil)

type stubEntryRepo struct {
	entries    []*model.AccountingEntry
	nextNumber int64
}

func (r *stubEntryRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
func (r *stubEntryRepo) NextEntryNumberTx(*gorm.DB) (int64, error) {
	r.nextNumber++
	return r.nextNumber, nil
}
func (r *stubEntryRepo) CreateEntryTx(_ *gorm.DB, e *model.AccountingEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries = append(r.entries, e)
	return nil
}
func (r *stubEntryRepo) FindByID(context.Context, string) (*model.AccountingEntry, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubEntryRepo) ListEntries(context.Context, time.Time, time.Time) ([]model.AccountingEntry, error) {
	return nil, nil
}
func (r *stubEntryRepo) LedgerRows(context.Context, time.Time, time.Time) ([]repository.LedgerRow, error) {
	return nil, nil
}
func (r *stubEntryRepo) TrialBalanceRows(context.Context, time.Time) ([]repository.LedgerRow, error) {
	return nil, nil
}

var _ repository.EntryRepository = (*stubEntryRepo)(nil)

// ── Fixtures ─────────────────────────────────────────────────────────────────

func testConfig() *config.Config {
	return &config.Config{
		CashAccountCode:      "531",
		SalesAccountCode:     "701",
		ExpenseAccountCode:   "601",
		SurplusAccountCode:   "758",
		ShortfallAccountCode: "658",
	}
}

func closedSession(discrepancy int64) *model.CashSession {
	now := time.Now()
	closer := uuid.New()
	d := decimal.NewFromInt(discrepancy)
	return &model.CashSession{
		ID:          uuid.New(),
		RegisterID:  uuid.New(),
		OpenedBy:    uuid.New(),
		Status:      model.SessionClosed,
		ClosedAt:    &now,
		ClosedBy:    &closer,
		Discrepancy: &d,
	}
}

func sum(t model.MovementType, c model.MovementCategory, amount int64) repository.CategorySum {
	return repository.CategorySum{Type: t, Category: c, Total: decimal.NewFromInt(amount)}
}

func entryTotals(e *model.AccountingEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPostSessionBalancedEntry(t *testing.T) {
	session := closedSession(500)
	sums := []repository.CategorySum{
		sum(model.MovementIncome, model.CategorySale, 5000),
		sum(model.MovementExpense, model.CategoryExpense, 2000),
	}
	sessionRepo := newStubSessionRepo(session, sums)
	entryRepo := &stubEntryRepo{}
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "701", "601", "758", "658"), entryRepo, nil, testConfig())

	require.NoError(t, w.PostSession(context.Background(), session))

	require.Len(t, entryRepo.entries, 1)
	entry := entryRepo.entries[0]
	assert.Equal(t, int64(1), entry.EntryNumber)
	assert.Equal(t, "session_close", entry.OperationType)
	require.NotNil(t, entry.Reference)
	assert.Equal(t, session.ID.String(), *entry.Reference)

	debit, credit := entryTotals(entry)
	assert.Equal(t, "5500", debit.String())
	assert.Equal(t, "5500", credit.String())
	assert.True(t, debit.Equal(credit))

	// Session carries the posted entry and no further retry is scheduled.
	assert.Equal(t, &entry.ID, session.PostedEntryID)
	assert.Nil(t, session.NextPostRetryAt)
	assert.Nil(t, session.LastPostError)
}

func TestPostSessionShortfall(t *testing.T) {
	// Declared under expected: the shortfall account takes the debit.
	session := closedSession(-300)
	sums := []repository.CategorySum{
		sum(model.MovementIncome, model.CategorySale, 1000),
	}
	sessionRepo := newStubSessionRepo(session, sums)
	entryRepo := &stubEntryRepo{}
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "701", "601", "758", "658"), entryRepo, nil, testConfig())

	require.NoError(t, w.PostSession(context.Background(), session))

	require.Len(t, entryRepo.entries, 1)
	debit, credit := entryTotals(entryRepo.entries[0])
	// Cash up 700, shortfall debit 300, sales credit 1000.
	assert.Equal(t, "1000", debit.String())
	assert.Equal(t, "1000", credit.String())
}

// A failed session update rolls the entry back with it; the retry then posts
// exactly once instead of duplicating the session close in the journal.
func TestPostSessionAtomicWithSessionUpdate(t *testing.T) {
	session := closedSession(0)
	sums := []repository.CategorySum{
		sum(model.MovementIncome, model.CategorySale, 1000),
	}
	sessionRepo := newStubSessionRepo(session, sums)
	entryRepo := &stubEntryRepo{}
	sessionRepo.entryRepo = entryRepo
	sessionRepo.updateErr = assert.AnError
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "701", "601", "758", "658"), entryRepo, nil, testConfig())

	err := w.PostSession(context.Background(), session)
	require.Error(t, err)
	assert.Empty(t, entryRepo.entries)
	assert.Nil(t, session.PostedEntryID)

	sessionRepo.updateErr = nil
	require.NoError(t, w.PostSession(context.Background(), session))
	require.Len(t, entryRepo.entries, 1)
	assert.Equal(t, int64(1), entryRepo.entries[0].EntryNumber)
	assert.Equal(t, &entryRepo.entries[0].ID, session.PostedEntryID)
}

// The row-lock re-check catches a stale cron pick or a concurrent replica
// working from a session copy that predates the posting.
func TestPostSessionRecheckUnderLock(t *testing.T) {
	session := closedSession(0)
	postedID := uuid.New()
	session.PostedEntryID = &postedID
	sums := []repository.CategorySum{
		sum(model.MovementIncome, model.CategorySale, 1000),
	}
	sessionRepo := newStubSessionRepo(session, sums)
	entryRepo := &stubEntryRepo{}
	sessionRepo.entryRepo = entryRepo
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "701", "601", "758", "658"), entryRepo, nil, testConfig())

	stale := *session
	stale.PostedEntryID = nil
	require.NoError(t, w.PostSession(context.Background(), &stale))

	assert.Empty(t, entryRepo.entries)
	assert.Equal(t, &postedID, stale.PostedEntryID)
}

func TestPostSessionNoActivity(t *testing.T) {
	session := closedSession(0)
	retryAt := time.Now().Add(5 * time.Minute)
	session.NextPostRetryAt = &retryAt

	sessionRepo := newStubSessionRepo(session, nil)
	entryRepo := &stubEntryRepo{}
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "701", "601", "758", "658"), entryRepo, nil, testConfig())

	require.NoError(t, w.PostSession(context.Background(), session))

	assert.Empty(t, entryRepo.entries)
	// Retry bookkeeping is cleared so the cron stops picking it up.
	assert.Nil(t, session.NextPostRetryAt)
	assert.Nil(t, session.PostedEntryID)
}

func TestPostSessionMissingAccount(t *testing.T) {
	session := closedSession(0)
	sums := []repository.CategorySum{sum(model.MovementIncome, model.CategorySale, 100)}
	sessionRepo := newStubSessionRepo(session, sums)
	// Chart without the sales account.
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "601", "758", "658"), &stubEntryRepo{}, nil, testConfig())

	err := w.PostSession(context.Background(), session)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing code 701")
}

func TestProcessSkipsPostedSession(t *testing.T) {
	session := closedSession(0)
	postedID := uuid.New()
	session.PostedEntryID = &postedID

	sessionRepo := newStubSessionRepo(session, []repository.CategorySum{
		sum(model.MovementIncome, model.CategorySale, 100),
	})
	entryRepo := &stubEntryRepo{}
	w := NewPostingWorker(sessionRepo, newStubAccountRepo("531", "701", "601", "758", "658"), entryRepo, nil, testConfig())

	payload, err := json.Marshal(PostingJobPayload{SessionID: session.ID.String()})
	require.NoError(t, err)
	w.Process(context.Background(), payload)

	assert.Empty(t, entryRepo.entries)
	assert.Equal(t, &postedID, session.PostedEntryID)
}

func TestScheduleRetryBackoff(t *testing.T) {
	session := closedSession(0)
	sessionRepo := newStubSessionRepo(session, nil)
	w := NewPostingWorker(sessionRepo, newStubAccountRepo(), &stubEntryRepo{}, nil, testConfig())

	before := time.Now()
	w.scheduleRetry(context.Background(), session, assert.AnError)

	assert.Equal(t, 1, session.PostAttempts)
	require.NotNil(t, session.LastPostError)
	assert.Equal(t, assert.AnError.Error(), *session.LastPostError)
	require.NotNil(t, session.NextPostRetryAt)
	assert.WithinDuration(t, before.Add(time.Minute), *session.NextPostRetryAt, 5*time.Second)
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, computeRetryBackoff(0))
	assert.Equal(t, time.Minute, computeRetryBackoff(1))
	assert.Equal(t, 2*time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(3))
	assert.Equal(t, 8*time.Minute, computeRetryBackoff(4))
	assert.Equal(t, 16*time.Minute, computeRetryBackoff(5))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(6))
}

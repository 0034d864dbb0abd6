package service_test

// In-memory repository stubs shared by the service tests. The Tx-flavored
// methods ignore the *gorm.DB handle; Transaction simply runs the callback.

import (
	"context"
	"time"

	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory SessionRepository ──────────────────────────────────────────────

type memSessionRepo struct {
	sessions  map[uuid.UUID]*model.CashSession
	movements []model.CashMovement
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*model.CashSession)}
}

func (r *memSessionRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *memSessionRepo) CreateSession(_ context.Context, s *model.CashSession) error {
	// Emulates the partial unique index: one open session per register.
	for _, existing := range r.sessions {
		if existing.RegisterID == s.RegisterID && existing.Status == model.SessionOpen {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessionRepo) FindSessionByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.Movements = nil
	for _, m := range r.movements {
		if m.SessionID == id {
			s.Movements = append(s.Movements, m)
		}
	}
	return s, nil
}

func (r *memSessionRepo) FindSessionForUpdate(_ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *memSessionRepo) FindOpenByRegister(_ context.Context, registerID uuid.UUID) (*model.CashSession, error) {
	for _, s := range r.sessions {
		if s.RegisterID == registerID && s.Status == model.SessionOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSessionRepo) ListOpen(_ context.Context, f repository.SessionFilter) ([]model.CashSession, error) {
	var out []model.CashSession
	for _, s := range r.sessions {
		if s.Status != model.SessionOpen {
			continue
		}
		if f.RegisterID != uuid.Nil && s.RegisterID != f.RegisterID {
			continue
		}
		if f.OpenedBy != uuid.Nil && s.OpenedBy != f.OpenedBy {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *memSessionRepo) UpdateSessionTx(_ *gorm.DB, s *model.CashSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessionRepo) UpdateSession(_ context.Context, s *model.CashSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessionRepo) CreateMovementTx(_ *gorm.DB, m *model.CashMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *memSessionRepo) ListMovements(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var out []model.CashMovement
	for _, m := range r.movements {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memSessionRepo) sum(sessionID uuid.UUID) repository.MovementSums {
	sums := repository.MovementSums{Income: decimal.Zero, Expense: decimal.Zero}
	for _, m := range r.movements {
		if m.SessionID != sessionID {
			continue
		}
		if m.Type == model.MovementIncome {
			sums.Income = sums.Income.Add(m.Amount)
		} else {
			sums.Expense = sums.Expense.Add(m.Amount)
		}
	}
	return sums
}

func (r *memSessionRepo) SumMovements(_ context.Context, sessionID uuid.UUID) (repository.MovementSums, error) {
	return r.sum(sessionID), nil
}

func (r *memSessionRepo) SumMovementsTx(_ *gorm.DB, sessionID uuid.UUID) (repository.MovementSums, error) {
	return r.sum(sessionID), nil
}

func (r *memSessionRepo) SumMovementsByCategory(_ context.Context, sessionID uuid.UUID) ([]repository.CategorySum, error) {
	type key struct {
		t model.MovementType
		c model.MovementCategory
	}
	totals := make(map[key]decimal.Decimal)
	for _, m := range r.movements {
		if m.SessionID != sessionID {
			continue
		}
		k := key{m.Type, m.Category}
		totals[k] = totals[k].Add(m.Amount)
	}
	out := make([]repository.CategorySum, 0, len(totals))
	for k, total := range totals {
		out = append(out, repository.CategorySum{Type: k.t, Category: k.c, Total: total})
	}
	return out, nil
}

func (r *memSessionRepo) ListPendingPostings(_ context.Context, now time.Time, limit int) ([]model.CashSession, error) {
	var out []model.CashSession
	for _, s := range r.sessions {
		if s.Status == model.SessionClosed && s.PostedEntryID == nil &&
			s.NextPostRetryAt != nil && !s.NextPostRetryAt.After(now) {
			out = append(out, *s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

// ── In-memory RegisterRepository ─────────────────────────────────────────────

type memRegisterRepo struct {
	registers map[uuid.UUID]*model.CashRegister
}

func newMemRegisterRepo() *memRegisterRepo {
	return &memRegisterRepo{registers: make(map[uuid.UUID]*model.CashRegister)}
}

func (r *memRegisterRepo) Create(_ context.Context, reg *model.CashRegister) error {
	for _, existing := range r.registers {
		if existing.Name == reg.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	r.registers[reg.ID] = reg
	return nil
}

func (r *memRegisterRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashRegister, error) {
	reg, ok := r.registers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return reg, nil
}

func (r *memRegisterRepo) List(_ context.Context, includeInactive bool) ([]model.CashRegister, error) {
	var out []model.CashRegister
	for _, reg := range r.registers {
		if !includeInactive && !reg.Active {
			continue
		}
		out = append(out, *reg)
	}
	return out, nil
}

func (r *memRegisterRepo) Update(_ context.Context, reg *model.CashRegister) error {
	r.registers[reg.ID] = reg
	return nil
}

var _ repository.RegisterRepository = (*memRegisterRepo)(nil)

// ── In-memory AccountRepository ──────────────────────────────────────────────

type memAccountRepo struct {
	accounts map[string]*model.AccountingAccount
}

func newMemAccountRepo(accounts ...*model.AccountingAccount) *memAccountRepo {
	r := &memAccountRepo{accounts: make(map[string]*model.AccountingAccount)}
	for _, a := range accounts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		r.accounts[a.Code] = a
	}
	return r
}

func (r *memAccountRepo) Create(_ context.Context, a *model.AccountingAccount) error {
	if _, exists := r.accounts[a.Code]; exists {
		return gorm.ErrDuplicatedKey
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.accounts[a.Code] = a
	return nil
}

func (r *memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*model.AccountingAccount, error) {
	for _, a := range r.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAccountRepo) FindByCode(_ context.Context, code string) (*model.AccountingAccount, error) {
	a, ok := r.accounts[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *memAccountRepo) FindByCodes(_ context.Context, codes []string) (map[string]*model.AccountingAccount, error) {
	out := make(map[string]*model.AccountingAccount)
	for _, code := range codes {
		if a, ok := r.accounts[code]; ok {
			out[code] = a
		}
	}
	return out, nil
}

func (r *memAccountRepo) List(_ context.Context) ([]model.AccountingAccount, error) {
	out := make([]model.AccountingAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)

// ── In-memory EntryRepository ────────────────────────────────────────────────

type memEntryRepo struct {
	entries    []*model.AccountingEntry
	accounts   *memAccountRepo
	nextNumber int64
}

func newMemEntryRepo(accounts *memAccountRepo) *memEntryRepo {
	return &memEntryRepo{accounts: accounts}
}

func (r *memEntryRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *memEntryRepo) NextEntryNumberTx(_ *gorm.DB) (int64, error) {
	r.nextNumber++
	return r.nextNumber, nil
}

func (r *memEntryRepo) CreateEntryTx(_ *gorm.DB, e *model.AccountingEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *memEntryRepo) FindByID(_ context.Context, id string) (*model.AccountingEntry, error) {
	for _, e := range r.entries {
		if e.ID.String() == id {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memEntryRepo) ListEntries(_ context.Context, from, to time.Time) ([]model.AccountingEntry, error) {
	var out []model.AccountingEntry
	for _, e := range r.entries {
		if e.EntryDate.Before(from) || e.EntryDate.After(to) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *memEntryRepo) ledgerRows(from, to time.Time) []repository.LedgerRow {
	rows := make(map[uuid.UUID]*repository.LedgerRow)
	for _, e := range r.entries {
		if e.EntryDate.Before(from) || e.EntryDate.After(to) {
			continue
		}
		for _, l := range e.Lines {
			row, ok := rows[l.AccountID]
			if !ok {
				account, _ := r.accounts.FindByID(context.Background(), l.AccountID)
				row = &repository.LedgerRow{
					TotalDebit:  decimal.Zero,
					TotalCredit: decimal.Zero,
				}
				if account != nil {
					row.AccountCode = account.Code
					row.AccountLabel = account.Label
					row.NormalBalance = account.NormalBalance
				}
				rows[l.AccountID] = row
			}
			row.TotalDebit = row.TotalDebit.Add(l.Debit)
			row.TotalCredit = row.TotalCredit.Add(l.Credit)
		}
	}
	out := make([]repository.LedgerRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out
}

func (r *memEntryRepo) LedgerRows(_ context.Context, from, to time.Time) ([]repository.LedgerRow, error) {
	return r.ledgerRows(from, to), nil
}

func (r *memEntryRepo) TrialBalanceRows(_ context.Context, asOf time.Time) ([]repository.LedgerRow, error) {
	return r.ledgerRows(time.Time{}, asOf), nil
}

var _ repository.EntryRepository = (*memEntryRepo)(nil)

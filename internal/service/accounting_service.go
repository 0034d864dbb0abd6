package service

import (
	"context"
	"time"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AccountingService interface {
	PostEntry(ctx context.Context, actorID uuid.UUID, req dto.PostEntryRequest) (*dto.EntryResponse, error)
	Journal(ctx context.Context, from, to time.Time) ([]dto.EntryResponse, error)
	Ledger(ctx context.Context, from, to time.Time) ([]dto.LedgerRowResponse, error)
	TrialBalance(ctx context.Context, asOf time.Time) (*dto.TrialBalanceResponse, error)
	ListAccounts(ctx context.Context) ([]dto.AccountResponse, error)
}

type accountingService struct {
	entryRepo   repository.EntryRepository
	accountRepo repository.AccountRepository
}

func NewAccountingService(entryRepo repository.EntryRepository, accountRepo repository.AccountRepository) AccountingService {
	return &accountingService{entryRepo: entryRepo, accountRepo: accountRepo}
}

// PostEntry validates and persists a balanced journal entry. An unbalanced
// entry never reaches the database: validation happens before the transaction
// and the entry plus its lines are written atomically inside it.
func (s *accountingService) PostEntry(ctx context.Context, actorID uuid.UUID, req dto.PostEntryRequest) (*dto.EntryResponse, error) {
	if len(req.Lines) < 2 {
		return nil, apierror.Validationf("an entry requires at least two lines")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	codes := make([]string, 0, len(req.Lines))
	for i, line := range req.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, apierror.Validationf("line %d: debit and credit must be non-negative", i+1)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return nil, apierror.Validationf("line %d: a line may not carry both a debit and a credit", i+1)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
		codes = append(codes, line.AccountCode)
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, apierror.Validationf("unbalanced entry: debits %s != credits %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2))
	}

	accounts, err := s.accountRepo.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		if _, ok := accounts[code]; !ok {
			return nil, apierror.NotFoundf("account %s not found", code)
		}
	}

	entryDate := time.Now()
	if req.EntryDate != nil {
		d, err := time.Parse("2006-01-02", *req.EntryDate)
		if err != nil {
			return nil, apierror.Validationf("invalid entry_date: %v", err)
		}
		entryDate = d
	}

	entry := &model.AccountingEntry{
		EntryDate:     entryDate,
		Description:   req.Description,
		Reference:     req.Reference,
		OperationType: req.OperationType,
		Validated:     true,
		CreatedBy:     actorID,
	}
	for i, line := range req.Lines {
		account := accounts[line.AccountCode]
		entry.Lines = append(entry.Lines, model.AccountingLine{
			AccountID: account.ID,
			Account:   account,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Label:     line.Label,
			Position:  i + 1,
		})
	}

	err = s.entryRepo.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := s.entryRepo.NextEntryNumberTx(tx)
		if err != nil {
			return err
		}
		entry.EntryNumber = n
		return s.entryRepo.CreateEntryTx(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	resp := entryToResponse(entry)
	return &resp, nil
}

func (s *accountingService) Journal(ctx context.Context, from, to time.Time) ([]dto.EntryResponse, error) {
	entries, err := s.entryRepo.ListEntries(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, entryToResponse(&entries[i]))
	}
	return out, nil
}

func (s *accountingService) Ledger(ctx context.Context, from, to time.Time) ([]dto.LedgerRowResponse, error) {
	rows, err := s.entryRepo.LedgerRows(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return ledgerRowsToResponse(rows), nil
}

// TrialBalance projects all posted lines up to asOf. Because every persisted
// entry balances, the totals must match; when they do not, the report carries
// a standing warning instead of blocking the read.
func (s *accountingService) TrialBalance(ctx context.Context, asOf time.Time) (*dto.TrialBalanceResponse, error) {
	rows, err := s.entryRepo.TrialBalanceRows(ctx, asOf)
	if err != nil {
		return nil, err
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, r := range rows {
		totalDebit = totalDebit.Add(r.TotalDebit)
		totalCredit = totalCredit.Add(r.TotalCredit)
	}

	resp := &dto.TrialBalanceResponse{
		AsOf:        asOf.Format("2006-01-02"),
		Rows:        ledgerRowsToResponse(rows),
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Balanced:    totalDebit.Equal(totalCredit),
	}
	if !resp.Balanced {
		integrity := apierror.Integrityf("trial balance out of balance: debits %s != credits %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2))
		warning := integrity.Msg
		resp.Warning = &warning
		log.Error().
			Str("total_debit", totalDebit.String()).
			Str("total_credit", totalCredit.String()).
			Msg("trial balance integrity check failed")
	}
	return resp, nil
}

func (s *accountingService) ListAccounts(ctx context.Context) ([]dto.AccountResponse, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, dto.AccountResponse{
			ID:            a.ID.String(),
			Code:          a.Code,
			Label:         a.Label,
			Class:         a.Class,
			Type:          a.Type,
			NormalBalance: string(a.NormalBalance),
		})
	}
	return out, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func entryToResponse(e *model.AccountingEntry) dto.EntryResponse {
	resp := dto.EntryResponse{
		ID:            e.ID.String(),
		EntryNumber:   e.EntryNumber,
		EntryDate:     e.EntryDate.Format("2006-01-02"),
		Description:   e.Description,
		Reference:     e.Reference,
		OperationType: e.OperationType,
		Validated:     e.Validated,
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
	}
	for i := range e.Lines {
		line := &e.Lines[i]
		lr := dto.EntryLineResponse{
			Debit:  line.Debit,
			Credit: line.Credit,
			Label:  line.Label,
		}
		if line.Account != nil {
			lr.AccountCode = line.Account.Code
			lr.AccountLabel = line.Account.Label
		}
		resp.TotalDebit = resp.TotalDebit.Add(line.Debit)
		resp.TotalCredit = resp.TotalCredit.Add(line.Credit)
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

func ledgerRowsToResponse(rows []repository.LedgerRow) []dto.LedgerRowResponse {
	out := make([]dto.LedgerRowResponse, 0, len(rows))
	for _, r := range rows {
		balance := r.TotalDebit.Sub(r.TotalCredit)
		if r.NormalBalance == model.NormalCredit {
			balance = r.TotalCredit.Sub(r.TotalDebit)
		}
		out = append(out, dto.LedgerRowResponse{
			AccountCode:   r.AccountCode,
			AccountLabel:  r.AccountLabel,
			NormalBalance: string(r.NormalBalance),
			TotalDebit:    r.TotalDebit,
			TotalCredit:   r.TotalCredit,
			Balance:       balance,
		})
	}
	return out
}

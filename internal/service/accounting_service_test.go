package service_test

import (
	"context"
	"testing"
	"time"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/model"
	"cashledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fixtures ─────────────────────────────────────────────────────────────────

func newAccountingFixture(t *testing.T) (service.AccountingService, *memEntryRepo) {
	t.Helper()
	accounts := newMemAccountRepo(
		&model.AccountingAccount{Code: "531", Label: "Cash on hand", Class: 5, Type: "asset", NormalBalance: model.NormalDebit},
		&model.AccountingAccount{Code: "601", Label: "Purchases and supplies", Class: 6, Type: "expense", NormalBalance: model.NormalDebit},
		&model.AccountingAccount{Code: "701", Label: "Sales revenue", Class: 7, Type: "revenue", NormalBalance: model.NormalCredit},
	)
	entries := newMemEntryRepo(accounts)
	return service.NewAccountingService(entries, accounts), entries
}

func line(code string, debit, credit int64) dto.EntryLineRequest {
	return dto.EntryLineRequest{
		AccountCode: code,
		Debit:       decimal.NewFromInt(debit),
		Credit:      decimal.NewFromInt(credit),
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPostEntryBalanced(t *testing.T) {
	svc, _ := newAccountingFixture(t)

	resp, err := svc.PostEntry(context.Background(), uuid.New(), dto.PostEntryRequest{
		Description:   "day sales",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			line("531", 1500, 0),
			line("701", 0, 1500),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.EntryNumber)
	assert.Equal(t, "1500", resp.TotalDebit.String())
	assert.Equal(t, "1500", resp.TotalCredit.String())
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "531", resp.Lines[0].AccountCode)
	assert.Equal(t, "Cash on hand", resp.Lines[0].AccountLabel)
	assert.True(t, resp.Validated)
}

func TestPostEntrySequentialNumbers(t *testing.T) {
	svc, _ := newAccountingFixture(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		resp, err := svc.PostEntry(ctx, uuid.New(), dto.PostEntryRequest{
			Description:   "entry",
			OperationType: "manual",
			Lines: []dto.EntryLineRequest{
				line("531", 100, 0),
				line("701", 0, 100),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, i, resp.EntryNumber)
	}
}

func TestPostEntryUnbalanced(t *testing.T) {
	svc, entries := newAccountingFixture(t)

	_, err := svc.PostEntry(context.Background(), uuid.New(), dto.PostEntryRequest{
		Description:   "slips by one cent",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			line("531", 1500, 0),
			line("701", 0, 1499),
		},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
	assert.Contains(t, err.Error(), "unbalanced entry")
	// Nothing persisted.
	assert.Empty(t, entries.entries)
}

func TestPostEntryRejectsTwoSidedLine(t *testing.T) {
	svc, _ := newAccountingFixture(t)

	_, err := svc.PostEntry(context.Background(), uuid.New(), dto.PostEntryRequest{
		Description:   "both sides on one line",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			{AccountCode: "531", Debit: decimal.NewFromInt(100), Credit: decimal.NewFromInt(100)},
			line("701", 0, 0),
		},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestPostEntryUnknownAccount(t *testing.T) {
	svc, _ := newAccountingFixture(t)

	_, err := svc.PostEntry(context.Background(), uuid.New(), dto.PostEntryRequest{
		Description:   "no such account",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			line("531", 100, 0),
			line("999", 0, 100),
		},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestPostEntryRequiresTwoLines(t *testing.T) {
	svc, _ := newAccountingFixture(t)

	_, err := svc.PostEntry(context.Background(), uuid.New(), dto.PostEntryRequest{
		Description:   "single leg",
		OperationType: "manual",
		Lines:         []dto.EntryLineRequest{line("531", 100, 0)},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestJournalDateRange(t *testing.T) {
	svc, _ := newAccountingFixture(t)
	ctx := context.Background()

	march := "2026-03-10"
	april := "2026-04-02"
	for _, day := range []string{march, april} {
		d := day
		_, err := svc.PostEntry(ctx, uuid.New(), dto.PostEntryRequest{
			Description:   "dated entry",
			OperationType: "manual",
			EntryDate:     &d,
			Lines: []dto.EntryLineRequest{
				line("531", 100, 0),
				line("701", 0, 100),
			},
		})
		require.NoError(t, err)
	}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	entries, err := svc.Journal(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, march, entries[0].EntryDate)
}

func TestLedgerBalancesByNormalSide(t *testing.T) {
	svc, _ := newAccountingFixture(t)
	ctx := context.Background()

	_, err := svc.PostEntry(ctx, uuid.New(), dto.PostEntryRequest{
		Description:   "day sales",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			line("531", 1500, 0),
			line("701", 0, 1500),
		},
	})
	require.NoError(t, err)

	rows, err := svc.Ledger(ctx, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byCode := make(map[string]dto.LedgerRowResponse, len(rows))
	for _, r := range rows {
		byCode[r.AccountCode] = r
	}
	// Debit-normal cash and credit-normal revenue both show a positive balance.
	assert.Equal(t, "1500", byCode["531"].Balance.String())
	assert.Equal(t, "1500", byCode["701"].Balance.String())
}

func TestTrialBalanceBalanced(t *testing.T) {
	svc, _ := newAccountingFixture(t)
	ctx := context.Background()

	_, err := svc.PostEntry(ctx, uuid.New(), dto.PostEntryRequest{
		Description:   "day sales",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			line("531", 1500, 0),
			line("701", 0, 1500),
		},
	})
	require.NoError(t, err)
	_, err = svc.PostEntry(ctx, uuid.New(), dto.PostEntryRequest{
		Description:   "stationery",
		OperationType: "manual",
		Lines: []dto.EntryLineRequest{
			line("601", 300, 0),
			line("531", 0, 300),
		},
	})
	require.NoError(t, err)

	tb, err := svc.TrialBalance(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "1800", tb.TotalDebit.String())
	assert.Equal(t, "1800", tb.TotalCredit.String())
	assert.True(t, tb.Balanced)
	assert.Nil(t, tb.Warning)
}

func TestTrialBalanceFlagsCorruption(t *testing.T) {
	svc, entries := newAccountingFixture(t)
	ctx := context.Background()

	// An unbalanced entry can only exist if something outside the service
	// wrote it; the report must surface that instead of hiding it.
	account, err := entries.accounts.FindByCode(ctx, "531")
	require.NoError(t, err)
	require.NoError(t, entries.CreateEntryTx(nil, &model.AccountingEntry{
		EntryNumber: 99,
		EntryDate:   time.Now(),
		Description: "hand-forged",
		Lines: []model.AccountingLine{
			{AccountID: account.ID, Debit: decimal.NewFromInt(500), Position: 1},
		},
	}))

	tb, err := svc.TrialBalance(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.False(t, tb.Balanced)
	require.NotNil(t, tb.Warning)
	assert.Contains(t, *tb.Warning, "out of balance")
}

package service_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cashledger/internal/apierror"
	"cashledger/internal/model"
	"cashledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixtureSession(t *testing.T, sessions *memSessionRepo) *model.CashSession {
	t.Helper()
	session := &model.CashSession{
		RegisterID:     uuid.New(),
		OpenedBy:       uuid.New(),
		OpeningBalance: decimal.NewFromInt(10000),
		Status:         model.SessionOpen,
		OpenedAt:       time.Now(),
	}
	require.NoError(t, sessions.CreateSession(context.Background(), session))
	require.NoError(t, sessions.CreateMovementTx(nil, &model.CashMovement{
		SessionID:   session.ID,
		Type:        model.MovementIncome,
		Category:    model.CategorySale,
		Amount:      decimal.NewFromInt(2500),
		Description: "counter sales",
		CreatedBy:   uuid.New(),
	}))
	return session
}

func TestSessionJournalPDF(t *testing.T) {
	sessions := newMemSessionRepo()
	session := exportFixtureSession(t, sessions)
	svc := service.NewExportService(sessions)

	result, err := svc.SessionJournal(context.Background(), session.ID, service.ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Contains(t, result.FileName, "session-journal-")
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestSessionJournalXLSX(t *testing.T) {
	sessions := newMemSessionRepo()
	session := exportFixtureSession(t, sessions)
	svc := service.NewExportService(sessions)

	result, err := svc.SessionJournal(context.Background(), session.ID, service.ExportXLSX)
	require.NoError(t, err)
	assert.Contains(t, result.ContentType, "spreadsheetml")
	assert.NotEmpty(t, result.Data)
}

func TestSessionJournalUnsupportedFormat(t *testing.T) {
	sessions := newMemSessionRepo()
	session := exportFixtureSession(t, sessions)
	svc := service.NewExportService(sessions)

	_, err := svc.SessionJournal(context.Background(), session.ID, service.ExportFormat("csv"))
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

// The alert path stores the journal on disk and hands the path to the mailer.
func TestWriteSessionJournal(t *testing.T) {
	sessions := newMemSessionRepo()
	session := exportFixtureSession(t, sessions)
	svc := service.NewExportService(sessions)

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := svc.WriteSessionJournal(context.Background(), session.ID, dir)
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(path), "session-journal-")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cashledger/internal/apierror"
	"cashledger/internal/infra"
	"cashledger/internal/model"
	"cashledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportFormat selects the rendering of a session journal export.
type ExportFormat string

const (
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type ExportService interface {
	SessionJournal(ctx context.Context, sessionID uuid.UUID, format ExportFormat) (*ExportResult, error)
	// WriteSessionJournal renders the PDF journal into dir and returns the
	// written path, for hand-off as an email attachment.
	WriteSessionJournal(ctx context.Context, sessionID uuid.UUID, dir string) (string, error)
}

type exportService struct {
	repo repository.SessionRepository
}

func NewExportService(repo repository.SessionRepository) ExportService {
	return &exportService{repo: repo}
}

// SessionJournal renders a session's full movement log for hand-off to an
// auditor. Works for open and closed sessions alike; the expected balance is
// recomputed from the log at render time.
func (s *exportService) SessionJournal(ctx context.Context, sessionID uuid.UUID, format ExportFormat) (*ExportResult, error) {
	start := time.Now()

	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("session %s not found", sessionID)
		}
		return nil, err
	}

	sums, err := s.repo.SumMovements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	expected := session.OpeningBalance.Add(sums.Income).Sub(sums.Expense)

	var result *ExportResult
	switch format {
	case ExportPDF:
		data, err := infra.SessionJournalPDF(session, session.Movements, expected)
		if err != nil {
			return nil, err
		}
		result = &ExportResult{
			FileName:    fmt.Sprintf("session-journal-%s.pdf", shortID(sessionID)),
			ContentType: "application/pdf",
			Data:        data,
		}
	case ExportXLSX:
		data, err := sessionJournalXLSX(session, expected)
		if err != nil {
			return nil, err
		}
		result = &ExportResult{
			FileName:    fmt.Sprintf("session-journal-%s.xlsx", shortID(sessionID)),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}
	default:
		return nil, apierror.Validationf("unsupported export format %q", format)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("format", string(format)).
		Int("movements", len(session.Movements)).
		Dur("elapsed", time.Since(start)).
		Msg("session journal exported")
	return result, nil
}

func (s *exportService) WriteSessionJournal(ctx context.Context, sessionID uuid.UUID, dir string) (string, error) {
	result, err := s.SessionJournal(ctx, sessionID, ExportPDF)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, result.FileName)
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func sessionJournalXLSX(session *model.CashSession, expected decimal.Decimal) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Session Journal"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	registerName := session.RegisterID.String()
	if session.Register != nil {
		registerName = session.Register.Name
	}
	write(1, 1, "Register")
	write(2, 1, registerName)
	write(1, 2, "Opened")
	write(2, 2, session.OpenedAt.Format("2006-01-02 15:04:05"))
	if session.ClosedAt != nil {
		write(1, 3, "Closed")
		write(2, 3, session.ClosedAt.Format("2006-01-02 15:04:05"))
	}

	headerRow := 5
	headers := []string{"Time", "Type", "Category", "Description", "Account", "Amount"}
	for i, h := range headers {
		write(i+1, headerRow, h)
	}

	row := headerRow + 1
	for i := range session.Movements {
		m := &session.Movements[i]
		write(1, row, m.CreatedAt.Format("2006-01-02 15:04:05"))
		write(2, row, string(m.Type))
		write(3, row, string(m.Category))
		write(4, row, m.Description)
		if m.AccountCode != nil {
			write(5, row, *m.AccountCode)
		}
		write(6, row, m.Signed().StringFixed(2))
		row++
	}

	row++
	write(5, row, "Opening balance")
	write(6, row, session.OpeningBalance.StringFixed(2))
	row++
	write(5, row, "Expected balance")
	write(6, row, expected.StringFixed(2))
	if session.DeclaredBalance != nil {
		row++
		write(5, row, "Declared balance")
		write(6, row, session.DeclaredBalance.StringFixed(2))
	}
	if session.Discrepancy != nil {
		row++
		write(5, row, "Discrepancy")
		write(6, row, session.Discrepancy.StringFixed(2))
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	_ = f.SetColWidth(sheet, "D", "D", 48)
	_ = f.SetColWidth(sheet, "E", "E", 10)
	_ = f.SetColWidth(sheet, "F", "F", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

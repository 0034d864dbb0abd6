package infra

// pdf.go — session journal PDF rendering using go-pdf/fpdf.
// One A4 page (flowing onto more as needed) with:
//   - Register name, session window, opener
//   - Movement table (time, type, category, description, signed amount)
//   - Opening / expected / declared / discrepancy summary block

import (
	"bytes"
	"fmt"

	"cashledger/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// SessionJournalPDF renders a session's movement log as PDF bytes.
// expected is the balance computed from the movement log at render time.
func SessionJournalPDF(session *model.CashSession, movements []model.CashMovement, expected decimal.Decimal) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 28

	registerName := session.RegisterID.String()
	if session.Register != nil {
		registerName = session.Register.Name
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Session Journal", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Register: %s", registerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Opened: %s", session.OpenedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	if session.ClosedAt != nil {
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Closed: %s", session.ClosedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Movement table ───────────────────────────────────────────────────────
	col1 := contentW * 0.14 // time
	col2 := contentW * 0.12 // type
	col3 := contentW * 0.16 // category
	col4 := contentW * 0.40 // description
	col5 := contentW * 0.18 // amount

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 6, "Time", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Category", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 6, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col5, 6, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for i := range movements {
		m := &movements[i]
		descr := truncateDescription(m.Description)
		pdf.CellFormat(col1, 5, m.CreatedAt.Format("15:04:05"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, string(m.Type), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, string(m.Category), "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, descr, "", 0, "L", false, 0, "")
		pdf.CellFormat(col5, 5, m.Signed().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(14, pdf.GetY(), pageW-14, pdf.GetY())
	pdf.Ln(2)

	// ── Summary ──────────────────────────────────────────────────────────────
	summary := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(col1+col2+col3+col4, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(col5, 6, v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	summary("Opening balance:", session.OpeningBalance, false)
	summary("Expected balance:", expected, true)
	if session.DeclaredBalance != nil {
		summary("Declared balance:", *session.DeclaredBalance, false)
	}
	if session.Discrepancy != nil {
		summary("Discrepancy:", *session.Discrepancy, true)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

// truncateDescription keeps a table row on one line. Rune-aware: multibyte
// text is never split mid-character.
func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= 48 {
		return s
	}
	return string(runes[:47]) + "…"
}

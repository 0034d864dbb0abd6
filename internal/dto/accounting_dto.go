package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type EntryLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required,max=10"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Label       *string         `json:"label" validate:"omitempty,max=200"`
}

type PostEntryRequest struct {
	Description   string             `json:"description"    validate:"required,min=3"`
	Reference     *string            `json:"reference"      validate:"omitempty,max=120"`
	OperationType string             `json:"operation_type" validate:"required,max=30"`
	EntryDate     *string            `json:"entry_date"     validate:"omitempty,datetime=2006-01-02"`
	Lines         []EntryLineRequest `json:"lines"          validate:"required,min=2,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AccountResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Label         string `json:"label"`
	Class         int    `json:"class"`
	Type          string `json:"type"`
	NormalBalance string `json:"normal_balance"`
}

type EntryLineResponse struct {
	AccountCode  string          `json:"account_code"`
	AccountLabel string          `json:"account_label"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Label        *string         `json:"label"`
}

type EntryResponse struct {
	ID            string              `json:"id"`
	EntryNumber   int64               `json:"entry_number"`
	EntryDate     string              `json:"entry_date"`
	Description   string              `json:"description"`
	Reference     *string             `json:"reference"`
	OperationType string              `json:"operation_type"`
	Validated     bool                `json:"validated"`
	TotalDebit    decimal.Decimal     `json:"total_debit"`
	TotalCredit   decimal.Decimal     `json:"total_credit"`
	Lines         []EntryLineResponse `json:"lines"`
}

// LedgerRowResponse is one account's aggregate over a date range.
type LedgerRowResponse struct {
	AccountCode   string          `json:"account_code"`
	AccountLabel  string          `json:"account_label"`
	NormalBalance string          `json:"normal_balance"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	// Balance is debit−credit or credit−debit depending on the normal side.
	Balance decimal.Decimal `json:"balance"`
}

type TrialBalanceResponse struct {
	AsOf        string              `json:"as_of"`
	Rows        []LedgerRowResponse `json:"rows"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
	// Warning is set when totals diverge so the report surfaces the problem.
	Warning *string `json:"warning"`
}

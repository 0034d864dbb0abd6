package handler

import (
	"net/http"
	"time"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/middleware"
	"cashledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AccountingHandler struct{ svc service.AccountingService }

func NewAccountingHandler(svc service.AccountingService) *AccountingHandler {
	return &AccountingHandler{svc: svc}
}

const dateLayout = "2006-01-02"

// parseDateRange reads from/to query params; defaults to the current month.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	if v := c.Query("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid from date, expected YYYY-MM-DD"))
			return from, to, false
		}
		from = d
	}
	if v := c.Query("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid to date, expected YYYY-MM-DD"))
			return from, to, false
		}
		// Inclusive end of day
		to = d.Add(24*time.Hour - time.Second)
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, apierror.New("to must not precede from"))
		return from, to, false
	}
	return from, to, true
}

// PostEntry godoc
// @Summary Post a balanced manual journal entry
// @Tags accounting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.PostEntryRequest true "Entry with at least two lines"
// @Success 201 {object} dto.EntryResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/accounting/entries [post]
func (h *AccountingHandler) PostEntry(c *gin.Context) {
	var req dto.PostEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user ID in token"))
		return
	}

	resp, err := h.svc.PostEntry(c.Request.Context(), actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Journal godoc
// @Summary List journal entries in chronological order
// @Tags accounting
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Success 200 {array} dto.EntryResponse
// @Router /v1/accounting/journal [get]
func (h *AccountingHandler) Journal(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	resp, err := h.svc.Journal(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ledger godoc
// @Summary Per-account debit/credit aggregates over a date range
// @Tags accounting
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Success 200 {array} dto.LedgerRowResponse
// @Router /v1/accounting/ledger [get]
func (h *AccountingHandler) Ledger(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	resp, err := h.svc.Ledger(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TrialBalance godoc
// @Summary Trial balance as of a date, with an integrity flag
// @Tags accounting
// @Produce json
// @Security BearerAuth
// @Param as_of query string false "As-of date YYYY-MM-DD (default today)"
// @Success 200 {object} dto.TrialBalanceResponse
// @Router /v1/accounting/trial-balance [get]
func (h *AccountingHandler) TrialBalance(c *gin.Context) {
	asOf := time.Now()
	if v := c.Query("as_of"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid as_of date, expected YYYY-MM-DD"))
			return
		}
		asOf = d.Add(24*time.Hour - time.Second)
	}
	resp, err := h.svc.TrialBalance(c.Request.Context(), asOf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListAccounts godoc
// @Summary List the chart of accounts
// @Tags accounting
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.AccountResponse
// @Router /v1/accounting/accounts [get]
func (h *AccountingHandler) ListAccounts(c *gin.Context) {
	resp, err := h.svc.ListAccounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

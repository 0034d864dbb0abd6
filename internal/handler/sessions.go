package handler

import (
	"fmt"
	"net/http"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/middleware"
	"cashledger/internal/repository"
	"cashledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessions  service.SessionService
	movements service.MovementService
	audits    service.AuditService
	exports   service.ExportService
}

func NewSessionHandler(
	sessions service.SessionService,
	movements service.MovementService,
	audits service.AuditService,
	exports service.ExportService,
) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		movements: movements,
		audits:    audits,
		exports:   exports,
	}
}

// Open godoc
// @Summary Open a cash session on a register
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening declaration"
// @Success 201 {object} dto.SessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	openerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user ID in token"))
		return
	}

	resp, err := h.sessions.Open(c.Request.Context(), openerID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListOpen godoc
// @Summary List open sessions, optionally filtered by register or opener
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param register_id query string false "Register ID"
// @Param opened_by query string false "Opener user ID"
// @Success 200 {array} dto.SessionResponse
// @Router /v1/sessions/open [get]
func (h *SessionHandler) ListOpen(c *gin.Context) {
	var f repository.SessionFilter
	if v := c.Query("register_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid register_id"))
			return
		}
		f.RegisterID = id
	}
	if v := c.Query("opened_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid opened_by"))
			return
		}
		f.OpenedBy = id
	}

	resp, err := h.sessions.ListOpen(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detail godoc
// @Summary Get a session with its full movement log and running totals
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id} [get]
func (h *SessionHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session ID"))
		return
	}
	resp, err := h.sessions.Detail(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Close godoc
// @Summary Close a session with the declared cash count
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.CloseSessionRequest true "Closing declaration"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session ID"))
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	closerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user ID in token"))
		return
	}

	resp, err := h.sessions.Close(c.Request.Context(), closerID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement godoc
// @Summary Append an income or expense movement to an open session
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.RecordMovementRequest true "Movement data"
// @Success 201 {object} dto.MovementResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/movements [post]
func (h *SessionHandler) RecordMovement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session ID"))
		return
	}
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user ID in token"))
		return
	}

	resp, err := h.movements.Record(c.Request.Context(), actorID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Audit godoc
// @Summary Reconcile an open session against a physical count
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.AuditRequest true "Counted cash declaration"
// @Success 200 {object} dto.AuditResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/sessions/{id}/audit [post]
func (h *SessionHandler) Audit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session ID"))
		return
	}
	var req dto.AuditRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user ID in token"))
		return
	}

	resp, err := h.audits.Audit(c.Request.Context(), actorID, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary Export a session's movement journal as PDF or XLSX
// @Tags sessions
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param format query string false "pdf (default) or xlsx"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id}/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session ID"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "pdf"))

	result, err := h.exports.SessionJournal(c.Request.Context(), id, format)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

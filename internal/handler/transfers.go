package handler

import (
	"net/http"

	"cashledger/internal/apierror"
	"cashledger/internal/dto"
	"cashledger/internal/middleware"
	"cashledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransferHandler struct{ svc service.TransferService }

func NewTransferHandler(svc service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// Create godoc
// @Summary Transfer cash between two open sessions atomically
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TransferRequest true "Transfer data"
// @Success 201 {object} dto.TransferResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.TransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user ID in token"))
		return
	}

	resp, err := h.svc.Transfer(c.Request.Context(), actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

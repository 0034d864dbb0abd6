package handler

import (
	"net/http"
	"strconv"

	"cashledger/internal/apierror"
	"cashledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// AdminHandler exposes operational views for administrators: dead letter
// queue inspection for failed posting and alert jobs.
type AdminHandler struct{ rdb *redis.Client }

func NewAdminHandler(rdb *redis.Client) *AdminHandler { return &AdminHandler{rdb: rdb} }

// DLQ godoc
// @Summary Inspect the dead letter queues
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Entries per queue (default 20)"
// @Success 200 {object} map[string]interface{}
// @Router /v1/admin/dlq [get]
func (h *AdminHandler) DLQ(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	queues := []string{worker.QueuePosting, worker.QueueAlert}
	out := gin.H{}
	for _, q := range queues {
		length, err := worker.DLQLength(c.Request.Context(), h.rdb, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, apierror.New("failed to read dead letter queue"))
			return
		}
		entries, err := worker.DLQPeek(c.Request.Context(), h.rdb, q, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, apierror.New("failed to read dead letter queue"))
			return
		}
		out[q] = gin.H{"length": length, "entries": entries}
	}
	c.JSON(http.StatusOK, out)
}

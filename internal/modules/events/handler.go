package events

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitdesk/internal/domain/events"
	"fitdesk/internal/pkg/response"
)

// Handler serves the lifecycle event feed for reporting and billing.
type Handler struct {
	store *events.Store
}

func NewHandler(store *events.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events", h.List)
}

func (h *Handler) List(c *gin.Context) {
	orgID := c.GetInt64("org_id")
	if orgID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing org scope")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, err := h.store.List(c.Request.Context(), orgID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "failed to load events")
		return
	}
	response.Success(c, http.StatusOK, rows)
}

package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitdesk/internal/domain/booking"
	"fitdesk/internal/domain/plan"
	"fitdesk/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/bookings", h.Create)
	r.POST("/bookings/:id/checkin", h.CheckIn)
}

func (h *Handler) Create(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	b, err := h.service.Create(c.Request.Context(), orgID, req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, bookingToResponse(b))
}

func (h *Handler) CheckIn(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	bookingID, ok := paramID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.CheckIn(c.Request.Context(), orgID, bookingID)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, bookingToResponse(b))
}

func writeBookingError(c *gin.Context, err error) {
	var quotaErr *plan.QuotaError
	switch {
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, plan.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, ErrNotBooked), errors.Is(err, ErrPlanNotUsable):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.As(err, &quotaErr):
		response.ErrorWithDetails(c, http.StatusConflict, "QUOTA_EXCEEDED", err.Error(), gin.H{
			"requested": quotaErr.Requested,
			"remaining": quotaErr.Remaining,
			"total":     quotaErr.Total,
		})
	case errors.Is(err, plan.ErrQuotaExceeded), errors.Is(err, plan.ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+name)
		return 0, false
	}
	return id, true
}

func mustOrgID(c *gin.Context) int64 {
	orgID := c.GetInt64("org_id")
	if orgID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing org scope")
	}
	return orgID
}

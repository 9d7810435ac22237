package hold

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/plan"
	"fitdesk/internal/pkg/response"
)

// Handler exposes hold scheduling over HTTP. Org scope comes from the
// auth middleware, never from the body.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/plans/:id/holds", h.Request)
	r.GET("/plans/:id/holds", h.ListByPlan)
	r.GET("/holds/:id", h.Get)
	r.POST("/holds/:id/cancel", h.Cancel)
}

func (h *Handler) Request(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req RequestHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	created, err := h.service.Request(c.Request.Context(), orgID, planID, RequestInput{
		MemberID:            req.MemberID,
		RequestedByMemberID: req.RequestedByMemberID,
		StartDateTime:       req.StartDateTime,
		EndDateTime:         req.EndDateTime,
		BehaviorOnHoldStart: hold.PreBookingBehavior(req.BehaviorOnHoldStart),
		BehaviorOnHoldEnd:   hold.PreBookingBehavior(req.BehaviorOnHoldEnd),
	})
	if err != nil {
		writeHoldError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, holdToResponse(created, time.Now()))
}

func (h *Handler) ListByPlan(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	holds, err := h.service.ListByPlan(c.Request.Context(), orgID, planID)
	if err != nil {
		writeHoldError(c, err)
		return
	}

	now := time.Now()
	resp := make([]HoldResponse, 0, len(holds))
	for _, item := range holds {
		resp = append(resp, holdToResponse(item, now))
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	holdID, ok := paramID(c, "id")
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), orgID, holdID)
	if err != nil {
		writeHoldError(c, err)
		return
	}
	response.Success(c, http.StatusOK, holdToResponse(found, time.Now()))
}

func (h *Handler) Cancel(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	holdID, ok := paramID(c, "id")
	if !ok {
		return
	}

	canceled, err := h.service.Cancel(c.Request.Context(), orgID, holdID)
	if err != nil {
		writeHoldError(c, err)
		return
	}
	response.Success(c, http.StatusOK, holdToResponse(canceled, time.Now()))
}

// writeHoldError maps hold and plan errors onto HTTP.
func writeHoldError(c *gin.Context, err error) {
	var overlapErr *hold.OverlapError
	switch {
	case errors.Is(err, hold.ErrNotFound), errors.Is(err, plan.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, hold.ErrInvalidWindow):
		response.Error(c, http.StatusBadRequest, "INVALID_WINDOW", err.Error())
	case errors.As(err, &overlapErr):
		response.ErrorWithDetails(c, http.StatusConflict, "HOLD_OVERLAP", err.Error(), gin.H{
			"hold_id": overlapErr.HoldID,
			"start":   overlapErr.Start,
			"end":     overlapErr.End,
		})
	case errors.Is(err, hold.ErrOverlap):
		response.Error(c, http.StatusConflict, "HOLD_OVERLAP", err.Error())
	case errors.Is(err, hold.ErrInvalidState), errors.Is(err, plan.ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, plan.ErrIneligibleTransition):
		response.Error(c, http.StatusUnprocessableEntity, "INELIGIBLE", err.Error())
	case errors.Is(err, plan.ErrInvariantViolation):
		response.Error(c, http.StatusInternalServerError, "INVARIANT_VIOLATION", err.Error())
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

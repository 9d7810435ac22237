package plan

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fitdesk/internal/domain/plan"
	"fitdesk/internal/middleware"
	"fitdesk/internal/pkg/response"
)

// Handler exposes the plan lifecycle operations over HTTP. All routes
// are org-scoped: the org comes from the authenticated staff token,
// never from the request body.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans/templates", h.ListTemplates)
	r.POST("/members/:memberID/plans", h.Purchase)
	r.GET("/members/:memberID/plans", h.ListMemberPlans)
	r.GET("/plans/:id", h.Get)
	r.POST("/plans/:id/cancel", h.Cancel)
	r.POST("/plans/:id/reinstate", h.Reinstate)
	r.POST("/plans/:id/transfer", h.Transfer)
	r.POST("/plans/:id/upgrade", h.Upgrade)
	r.POST("/plans/:id/consume", h.Consume)
	r.DELETE("/plans/:id", middleware.AdminOnly(), h.Delete)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}

	tpls, err := h.service.ListTemplates(c.Request.Context(), orgID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "failed to load templates")
		return
	}

	resp := make([]TemplateResponse, 0, len(tpls))
	for _, t := range tpls {
		resp = append(resp, templateToResponse(t))
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) Purchase(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	memberID, ok := paramID(c, "memberID")
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	in := PurchaseInput{
		MemberID:      memberID,
		TemplateID:    req.TemplateID,
		DiscountValue: req.DiscountValue,
		DiscountUnit:  plan.DiscountUnit(req.DiscountUnit),
	}
	if req.StartDate != "" {
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION", "start_date must be YYYY-MM-DD")
			return
		}
		in.StartDate = start
	}

	p, err := h.service.Activate(c.Request.Context(), orgID, in)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, planToResponse(p, time.Now()))
}

func (h *Handler) ListMemberPlans(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	memberID, ok := paramID(c, "memberID")
	if !ok {
		return
	}

	plans, err := h.service.ListByMember(c.Request.Context(), orgID, memberID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "failed to load plans")
		return
	}

	now := time.Now()
	resp := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, planToResponse(p, now))
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), orgID, planID)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, planToResponse(p, time.Now()))
}

func (h *Handler) Cancel(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	p, err := h.service.Cancel(c.Request.Context(), orgID, planID, req.Reason)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, planToResponse(p, time.Now()))
}

func (h *Handler) Reinstate(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Reinstate(c.Request.Context(), orgID, planID)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, planToResponse(p, time.Now()))
}

func (h *Handler) Transfer(c *gin.Context) {
	h.replace(c, h.service.Transfer)
}

func (h *Handler) Upgrade(c *gin.Context) {
	h.replace(c, h.service.Upgrade)
}

func (h *Handler) replace(c *gin.Context, op func(ctx context.Context, orgID, planID, targetTemplateID int64) (*plan.Plan, error)) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	p, err := op(c.Request.Context(), orgID, planID, req.TargetTemplateID)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, planToResponse(p, time.Now()))
}

func (h *Handler) Consume(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	p, err := h.service.ConsumeQuota(c.Request.Context(), orgID, planID, req.Sessions)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, planToResponse(p, time.Now()))
}

func (h *Handler) Delete(c *gin.Context) {
	orgID := mustOrgID(c)
	if orgID == 0 {
		return
	}
	planID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.service.Delete(c.Request.Context(), orgID, planID); err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// writeLifecycleError maps the lifecycle error taxonomy onto HTTP.
func writeLifecycleError(c *gin.Context, err error) {
	var quotaErr *plan.QuotaError
	switch {
	case errors.Is(err, plan.ErrNotFound), errors.Is(err, plan.ErrTemplateNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &quotaErr):
		response.ErrorWithDetails(c, http.StatusConflict, "QUOTA_EXCEEDED", err.Error(), gin.H{
			"requested": quotaErr.Requested,
			"remaining": quotaErr.Remaining,
			"total":     quotaErr.Total,
		})
	case errors.Is(err, plan.ErrQuotaExceeded):
		response.Error(c, http.StatusConflict, "QUOTA_EXCEEDED", err.Error())
	case errors.Is(err, plan.ErrInvalidState):
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

// mustOrgID extracts the org scope set by the auth middleware. Writes
// 401 and returns 0 when missing.
func mustOrgID(c *gin.Context) int64 {
	orgID := c.GetInt64("org_id")
	if orgID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing org scope")
	}
	return orgID
}

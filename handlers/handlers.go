package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"report-workflow-service/apperrors"
	"report-workflow-service/database"
	"report-workflow-service/middleware"
	"report-workflow-service/models"
	"report-workflow-service/service"
	"report-workflow-service/workflow"
)

// BrokerStatus reports whether the event broker connection is alive.
type BrokerStatus interface {
	IsConnected() bool
}

// Handlers handles HTTP requests for the report workflow service.
type Handlers struct {
	svc    *service.Service
	db     *database.WorkflowService
	broker BrokerStatus
}

// NewHandlers creates a new handlers instance. broker may be nil when no
// event broker is configured.
func NewHandlers(svc *service.Service, db *database.WorkflowService, broker BrokerStatus) *Handlers {
	return &Handlers{svc: svc, db: db, broker: broker}
}

// HealthCheck reports service liveness and, when an event broker is
// configured, its connection state.
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "report-workflow-service",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if h.broker != nil {
		resp["amqp_connected"] = h.broker.IsConnected()
	}
	c.JSON(http.StatusOK, resp)
}

// CreateReport handles report submission by citizens.
func (h *Handlers) CreateReport(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	report, err := h.db.CreateReport(c.Request.Context(), req, actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// GetReport returns a single report.
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.db.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetStatusHistory returns a report's audit trail, oldest first.
func (h *Handlers) GetStatusHistory(c *gin.Context) {
	reportID := c.Param("id")

	if _, err := h.db.GetReport(c.Request.Context(), reportID); err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.db.GetStatusHistory(c.Request.Context(), reportID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report_id": reportID, "history": entries})
}

// GetAllowedTransitions returns the statuses the calling actor may move the
// report to from its current status.
func (h *Handlers) GetAllowedTransitions(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	report, err := h.db.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	targets := workflow.AllowedTargets(report.Status, actor.Role)
	c.JSON(http.StatusOK, gin.H{
		"report_id":       report.ID,
		"current_status":  report.Status,
		"allowed_targets": targets,
	})
}

// UpdateStatus handles a single-report status transition.
func (h *Handlers) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.svc.UpdateReportStatus(c.Request.Context(), c.Param("id"), req.NewStatus, actor, req.Notes); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "status updated"})
}

// UpdatePriority handles a single-report priority change.
func (h *Handlers) UpdatePriority(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.svc.UpdateReportPriority(c.Request.Context(), c.Param("id"), req.Priority, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "priority updated"})
}

// AssignReport assigns or unassigns a worker.
func (h *Handlers) AssignReport(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.svc.AssignReport(c.Request.Context(), c.Param("id"), req.WorkerID, actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "assignment updated"})
}

// DeleteReport removes a report and its history.
func (h *Handlers) DeleteReport(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.svc.DeleteReport(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "report deleted"})
}

// ExecuteBulk applies one mutation to many reports. The response is always a
// well-formed aggregate result with HTTP 200; per-item failures live inside
// the body.
func (h *Handlers) ExecuteBulk(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req models.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	result := h.svc.ExecuteBulk(c.Request.Context(), req, actor)
	c.JSON(http.StatusOK, result)
}

// respondError maps service errors to HTTP responses. Business-rule
// rejections carry their own wording; store failures expose only the
// classified user message, the raw diagnostic goes to the log.
func respondError(c *gin.Context, err error) {
	var te *service.TransitionError
	if errors.As(err, &te) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: te.Reason})
		return
	}
	if errors.Is(err, service.ErrPermissionDenied) {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "you do not have permission to perform this operation"})
		return
	}
	if errors.Is(err, database.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "report not found"})
		return
	}
	if errors.Is(err, database.ErrStatusConflict) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "the report was modified concurrently, please refresh and try again"})
		return
	}

	ce := apperrors.Classify(err)
	log.WithField("code", string(ce.Code)).Errorf("Request failed: %v", err)

	status := http.StatusInternalServerError
	switch ce.Code {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeInvalidToken:
		status = http.StatusUnauthorized
	case apperrors.CodeRateLimited, apperrors.CodeCooldownActive:
		status = http.StatusTooManyRequests
	case apperrors.CodeTimeout, apperrors.CodeServiceUnavailable, apperrors.CodeNetworkError:
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, models.ErrorResponse{
		Error:     ce.UserMessage,
		Code:      string(ce.Code),
		Action:    string(ce.Action),
		Retryable: ce.Retryable,
	})
}

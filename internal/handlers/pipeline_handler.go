package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetwatch/internal/services"
)

// PipelineHandler serves endpoints called by external schedulers rather than users.
type PipelineHandler struct {
	coordinator  services.AlertCoordinator
	auditService services.AuditServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(coordinator services.AlertCoordinator, auditService services.AuditServicer) *PipelineHandler {
	return &PipelineHandler{coordinator: coordinator, auditService: auditService}
}

// EvaluateUserBudgets runs a budget evaluation for the user in the path.
// @Summary     Evaluate a user's budgets (pipeline)
// @Description Evaluate every budget of a user and dispatch alerts (pipeline endpoint)
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "User ID"
// @Success     200 {object} services.EvaluationReport "Budget statuses and alerts"
// @Failure     400 {object} ErrorResponse "Invalid user ID"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/users/{id}/budget-evaluations [post]
func (h *PipelineHandler) EvaluateUserBudgets(c *gin.Context) {
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.coordinator.EvaluateUser(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionEvaluate, services.AuditResourceEvaluation, userID, c.ClientIP(),
		evaluationAuditChanges(c, report))

	c.JSON(http.StatusOK, report)
}

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/dtos"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/services"
)

type InterviewHandler struct {
	Interview *services.InterviewService
	Billing   *services.BillingService
}

func NewInterviewHandler(interview *services.InterviewService, billing *services.BillingService) *InterviewHandler {
	return &InterviewHandler{Interview: interview, Billing: billing}
}

// Start is POST /api/interview/start.
func (h *InterviewHandler) Start(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.InterviewStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Billing.CheckAndConsume(ctx, user, models.FeatureInterviewSession); err != nil {
		respondError(c, err)
		return
	}
	session, err := h.Interview.Start(ctx, user.ID, req.Role, req.JobID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, session)
}

// SubmitAnswer is POST /api/interview/submit-answer.
func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	question, err := h.Interview.SubmitAnswer(c.Request.Context(), user.ID, req.SessionID, req.QuestionID, req.Answer)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, question)
}

// Finish is POST /api/interview/:id/finish.
func (h *InterviewHandler) Finish(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid session id"))
		return
	}
	session, err := h.Interview.Finish(c.Request.Context(), user.ID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

// Get is GET /api/interview/:id.
func (h *InterviewHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid session id"))
		return
	}
	session, err := h.Interview.Get(c.Request.Context(), user.ID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

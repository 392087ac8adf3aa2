package handlers

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/dtos"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/queue"
	"github.com/applypilot/applypilot/internal/services"
)

// Upload size cap for resume PDFs.
const maxResumeUploadBytes = 10 << 20

type ResumeHandler struct {
	Resume  *services.ResumeService
	Billing *services.BillingService
	Queue   *queue.Queue
}

func NewResumeHandler(resume *services.ResumeService, billing *services.BillingService, q *queue.Queue) *ResumeHandler {
	return &ResumeHandler{Resume: resume, Billing: billing, Queue: q}
}

// CreateStructured is POST /api/resume/structured.
func (h *ResumeHandler) CreateStructured(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.StructuredResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	resume, err := h.Resume.CreateStructured(c.Request.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, resume)
}

// ListStructured is GET /api/resume/structured.
func (h *ResumeHandler) ListStructured(c *gin.Context) {
	user := middleware.CurrentUser(c)
	resumes, err := h.Resume.ListStructured(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, resumes)
}

// GetStructured is GET /api/resume/structured/:id. The response carries a
// presigned link to the original upload when one exists.
func (h *ResumeHandler) GetStructured(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid resume id"))
		return
	}
	resume, err := h.Resume.GetStructured(c.Request.Context(), user.ID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.Resume.SourceFileURL(c.Request.Context(), resume)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"resume": resume, "source_file_url": url})
}

// Upload is POST /api/resume/upload: multipart PDF in, structured resume out.
func (h *ResumeHandler) Upload(c *gin.Context) {
	user := middleware.CurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, common.ValidationError("multipart field 'file' is required"))
		return
	}
	if fileHeader.Size > maxResumeUploadBytes {
		respondError(c, common.ValidationError("file exceeds the 10MB limit"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, common.InternalError("open upload", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxResumeUploadBytes+1))
	if err != nil {
		respondError(c, common.InternalError("read upload", err))
		return
	}
	if len(data) > maxResumeUploadBytes {
		respondError(c, common.ValidationError("file exceeds the 10MB limit"))
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}
	resume, err := h.Resume.ImportPDF(c.Request.Context(), user.ID, title, data)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, resume)
}

// Customize is POST /api/resume/customize: quota-checked, then queued for the
// worker since LLM tailoring is too slow to hold a request open for.
func (h *ResumeHandler) Customize(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.CustomizeResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Billing.CheckAndConsume(ctx, user, models.FeatureResumeCustomize); err != nil {
		respondError(c, err)
		return
	}
	job, err := h.Queue.Enqueue(ctx, models.JobTypeCustomizeResume, &user.ID,
		map[string]any{"job_id": req.JobID}, 5)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, job)
}

// GetCustomized is GET /api/resume/customized/:jobID.
func (h *ResumeHandler) GetCustomized(c *gin.Context) {
	user := middleware.CurrentUser(c)
	jobID, err := strconv.ParseUint(c.Param("jobID"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid job id"))
		return
	}
	customized, err := h.Resume.GetCustomized(c.Request.Context(), user.ID, uint(jobID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, customized)
}

// GenerateCoverLetter is POST /api/ai/generate-cover-letter. Runs inline: a
// single completion is fast enough to answer synchronously.
func (h *ResumeHandler) GenerateCoverLetter(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.CoverLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Billing.CheckAndConsume(ctx, user, models.FeatureCoverLetter); err != nil {
		respondError(c, err)
		return
	}
	letter, err := h.Resume.GenerateCoverLetter(ctx, user.ID, req.JobID, req.Tone)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"cover_letter": letter})
}

package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/models"
)

type ApplicationService struct {
	DB  *gorm.DB
	LLM llm.Generator
	log *zap.SugaredLogger
}

func NewApplicationService(db *gorm.DB, gen llm.Generator, log *zap.Logger) *ApplicationService {
	return &ApplicationService{DB: db, LLM: gen, log: log.Sugar()}
}

var validApplicationStatuses = map[string]bool{
	models.ApplicationStatusApplied:   true,
	models.ApplicationStatusInterview: true,
	models.ApplicationStatusOffer:     true,
	models.ApplicationStatusRejected:  true,
	models.ApplicationStatusWithdrawn: true,
}

// Create records an application. Applying twice to the same job is a conflict.
func (s *ApplicationService) Create(ctx context.Context, userID, jobID uint, notes string) (*models.Application, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundError("job not found")
		}
		return nil, common.WrapError(err, "load job")
	}

	var existing models.Application
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&existing).Error
	if err == nil {
		return nil, common.ConflictError("already applied to this job")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.WrapError(err, "check existing application")
	}

	now := time.Now()
	app := &models.Application{
		UserID:    userID,
		JobID:     jobID,
		Status:    models.ApplicationStatusApplied,
		Notes:     notes,
		AppliedAt: &now,
	}
	if err := s.DB.WithContext(ctx).Create(app).Error; err != nil {
		return nil, common.WrapError(err, "create application")
	}
	app.Job = job
	s.log.Infow("application.created", "user_id", userID, "job_id", jobID)
	return app, nil
}

func (s *ApplicationService) List(ctx context.Context, userID uint, status string) ([]models.Application, error) {
	tx := s.DB.WithContext(ctx).Preload("Job").Where("user_id = ?", userID)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var apps []models.Application
	if err := tx.Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, common.WrapError(err, "list applications")
	}
	return apps, nil
}

// Update changes status and/or notes.
func (s *ApplicationService) Update(ctx context.Context, userID, appID uint, status, notes string) (*models.Application, error) {
	app, err := s.get(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if status != "" {
		if !validApplicationStatuses[status] {
			return nil, common.ValidationError("unknown application status: " + status)
		}
		app.Status = status
	}
	if notes != "" {
		app.Notes = notes
	}
	err = s.DB.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", app.ID).
		Updates(map[string]any{"status": app.Status, "notes": app.Notes}).Error
	if err != nil {
		return nil, common.WrapError(err, "update application")
	}
	s.log.Infow("application.updated", "application_id", appID, "status", app.Status)
	return app, nil
}

// Review runs an LLM assessment of the user's latest customized (or
// structured) resume against the application's job and stores the result.
func (s *ApplicationService) Review(ctx context.Context, userID, appID uint) (*models.ApplicationReview, error) {
	app, err := s.get(ctx, userID, appID)
	if err != nil {
		return nil, err
	}

	resumeText, err := s.resumeTextForJob(ctx, userID, app.JobID)
	if err != nil {
		return nil, err
	}

	prompt := llm.ReviewApplicationPrompt(resumeText, app.Job.Title, app.Job.Company, app.Job.Description)
	resp, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, common.InternalError("application review failed", err)
	}
	var out struct {
		Score       int      `json:"score"`
		Strengths   []string `json:"strengths"`
		Gaps        []string `json:"gaps"`
		Suggestions []string `json:"suggestions"`
	}
	if err := llm.DecodeStrict(llm.ReviewSchema(), resp, &out); err != nil {
		return nil, common.InternalError("application review produced invalid output", err)
	}

	review := &models.ApplicationReview{
		ApplicationID: app.ID,
		Score:         out.Score,
		Strengths:     out.Strengths,
		Gaps:          out.Gaps,
		Suggestions:   out.Suggestions,
		ModelName:     s.LLM.ModelName(),
	}
	if err := s.DB.WithContext(ctx).Create(review).Error; err != nil {
		return nil, common.WrapError(err, "save review")
	}
	s.log.Infow("application.reviewed", "application_id", app.ID, "score", out.Score)
	return review, nil
}

// resumeTextForJob prefers the job-specific customized resume and falls back
// to the latest structured one.
func (s *ApplicationService) resumeTextForJob(ctx context.Context, userID, jobID uint) (string, error) {
	var customized models.CustomizedResume
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&customized).Error
	if err == nil {
		return customized.Content, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", common.WrapError(err, "load customized resume")
	}

	var structured models.StructuredResume
	err = s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&structured).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", common.NotFoundError("no resume on file to review")
		}
		return "", common.WrapError(err, "load structured resume")
	}
	return string(structured.Content), nil
}

func (s *ApplicationService) get(ctx context.Context, userID, appID uint) (*models.Application, error) {
	var app models.Application
	err := s.DB.WithContext(ctx).
		Preload("Job").
		Where("id = ? AND user_id = ?", appID, userID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundError("application not found")
		}
		return nil, common.WrapError(err, "load application")
	}
	return &app, nil
}

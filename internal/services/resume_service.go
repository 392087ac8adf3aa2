package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/storage"
)

type ResumeService struct {
	DB    *gorm.DB
	LLM   llm.Generator
	Store storage.FileStore
	log   *zap.SugaredLogger
}

func NewResumeService(db *gorm.DB, gen llm.Generator, store storage.FileStore, log *zap.Logger) *ResumeService {
	return &ResumeService{DB: db, LLM: gen, Store: store, log: log.Sugar()}
}

// CreateStructured validates the resume document against the schema and saves it.
func (s *ResumeService) CreateStructured(ctx context.Context, userID uint, title string, content json.RawMessage) (*models.StructuredResume, error) {
	if err := llm.ValidateJSONAgainstSchema(llm.ResumeSchema(), content); err != nil {
		return nil, common.ValidationError("resume document does not match schema: " + err.Error())
	}
	resume := &models.StructuredResume{
		UserID:  userID,
		Title:   title,
		Content: datatypes.JSON(content),
	}
	if err := s.DB.WithContext(ctx).Create(resume).Error; err != nil {
		return nil, common.WrapError(err, "create structured resume")
	}
	s.log.Infow("resume.structured.created", "user_id", userID, "resume_id", resume.ID)
	return resume, nil
}

func (s *ResumeService) ListStructured(ctx context.Context, userID uint) ([]models.StructuredResume, error) {
	var resumes []models.StructuredResume
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error
	if err != nil {
		return nil, common.WrapError(err, "list resumes")
	}
	return resumes, nil
}

func (s *ResumeService) GetStructured(ctx context.Context, userID, id uint) (*models.StructuredResume, error) {
	var resume models.StructuredResume
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&resume).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("resume not found")
		}
		return nil, common.WrapError(err, "load resume")
	}
	return &resume, nil
}

// latestStructured returns the user's newest resume, or a not-found error.
func (s *ResumeService) latestStructured(ctx context.Context, userID uint) (*models.StructuredResume, error) {
	var resume models.StructuredResume
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&resume).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("no structured resume on file")
		}
		return nil, common.WrapError(err, "load resume")
	}
	return &resume, nil
}

// ExtractPDFText pulls the plain text out of an uploaded PDF.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", common.ValidationError("file is not a readable PDF: " + err.Error())
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", common.ValidationError("could not extract text from PDF: " + err.Error())
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", common.WrapError(err, "read pdf text")
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return "", common.ValidationError("PDF contains no extractable text")
	}
	return string(text), nil
}

// ImportPDF uploads the file, extracts its text, and drafts a structured
// resume via the LLM. The upload happens first so the source file survives
// even if extraction fails and the user retries.
func (s *ResumeService) ImportPDF(ctx context.Context, userID uint, title string, data []byte) (*models.StructuredResume, error) {
	text, err := ExtractPDFText(data)
	if err != nil {
		return nil, err
	}

	var fileKey string
	if s.Store != nil {
		fileKey, err = s.Store.UploadResume(ctx, userID, data, "application/pdf")
		if err != nil {
			return nil, common.InternalError("resume upload failed", err)
		}
	}

	resp, err := s.LLM.Generate(ctx, llm.ExtractResumePrompt(text))
	if err != nil {
		return nil, common.InternalError("resume extraction failed", err)
	}
	var doc map[string]any
	if err := llm.DecodeStrict(llm.ResumeSchema(), resp, &doc); err != nil {
		return nil, common.InternalError("resume extraction produced invalid output", err)
	}
	content, err := json.Marshal(doc)
	if err != nil {
		return nil, common.WrapError(err, "marshal resume document")
	}

	resume := &models.StructuredResume{
		UserID:        userID,
		Title:         title,
		Content:       content,
		SourceFileKey: fileKey,
	}
	if err := s.DB.WithContext(ctx).Create(resume).Error; err != nil {
		return nil, common.WrapError(err, "save imported resume")
	}
	s.log.Infow("resume.imported", "user_id", userID, "resume_id", resume.ID, "file_key", fileKey)
	return resume, nil
}

// Customize tailors the user's latest structured resume to a job and upserts
// the result. Runs inside the CUSTOMIZE_RESUME queue handler.
func (s *ResumeService) Customize(ctx context.Context, userID, jobID uint) (*models.CustomizedResume, error) {
	resume, err := s.latestStructured(ctx, userID)
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("job not found")
		}
		return nil, common.WrapError(err, "load job")
	}

	prompt := llm.CustomizeResumePrompt(string(resume.Content), job.Title, job.Company, job.Description)
	content, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, common.InternalError("resume customization failed", err)
	}

	customized := models.CustomizedResume{
		UserID:    userID,
		JobID:     jobID,
		Content:   content,
		ModelName: s.LLM.ModelName(),
	}
	err = s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "model_name", "updated_at"}),
		}).
		Create(&customized).Error
	if err != nil {
		return nil, common.WrapError(err, "save customized resume")
	}
	s.log.Infow("resume.customized", "user_id", userID, "job_id", jobID)
	return &customized, nil
}

func (s *ResumeService) GetCustomized(ctx context.Context, userID, jobID uint) (*models.CustomizedResume, error) {
	var customized models.CustomizedResume
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&customized).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("no customized resume for this job")
		}
		return nil, common.WrapError(err, "load customized resume")
	}
	return &customized, nil
}

// GenerateCoverLetter writes a letter from the user's latest structured
// resume targeted at the given job.
func (s *ResumeService) GenerateCoverLetter(ctx context.Context, userID, jobID uint, tone string) (string, error) {
	resume, err := s.latestStructured(ctx, userID)
	if err != nil {
		return "", err
	}
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", common.NotFoundError("job not found")
		}
		return "", common.WrapError(err, "load job")
	}

	prompt := llm.CoverLetterPrompt(string(resume.Content), job.Title, job.Company, job.Description, tone)
	letter, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", common.InternalError("cover letter generation failed", err)
	}
	s.log.Infow("resume.cover_letter", "user_id", userID, "job_id", jobID)
	return letter, nil
}

// SourceFileURL returns a presigned link to the original uploaded PDF.
func (s *ResumeService) SourceFileURL(ctx context.Context, resume *models.StructuredResume) (string, error) {
	if resume.SourceFileKey == "" || s.Store == nil {
		return "", nil
	}
	return s.Store.PresignedURL(ctx, resume.SourceFileKey)
}

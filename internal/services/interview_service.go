package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/models"
)

const questionsPerSession = 5

type InterviewService struct {
	DB  *gorm.DB
	LLM llm.Generator
	log *zap.SugaredLogger
}

func NewInterviewService(db *gorm.DB, gen llm.Generator, log *zap.Logger) *InterviewService {
	return &InterviewService{DB: db, LLM: gen, log: log.Sugar()}
}

// Start creates a session with LLM-generated questions for the role. When a
// job ID is given its description steers the questions.
func (s *InterviewService) Start(ctx context.Context, userID uint, role string, jobID *uint) (*models.InterviewSession, error) {
	var jobDescription string
	if jobID != nil {
		var job models.Job
		if err := s.DB.WithContext(ctx).First(&job, *jobID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, common.NotFoundError("job not found")
			}
			return nil, common.WrapError(err, "load job")
		}
		jobDescription = job.Description
		if role == "" {
			role = job.Title
		}
	}
	if role == "" {
		return nil, common.ValidationError("role is required when no job is given")
	}

	resp, err := s.LLM.Generate(ctx, llm.InterviewQuestionsPrompt(role, jobDescription, questionsPerSession))
	if err != nil {
		return nil, common.InternalError("question generation failed", err)
	}
	var out struct {
		Questions []string `json:"questions"`
	}
	if err := llm.DecodeStrict(llm.QuestionsSchema(), resp, &out); err != nil {
		return nil, common.InternalError("question generation produced invalid output", err)
	}

	session := &models.InterviewSession{
		UserID: userID,
		JobID:  jobID,
		Role:   role,
		Status: models.InterviewStatusActive,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i, q := range out.Questions {
			question := models.InterviewQuestion{
				SessionID: session.ID,
				Position:  i + 1,
				Question:  q,
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
			session.Questions = append(session.Questions, question)
		}
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "create interview session")
	}
	s.log.Infow("interview.started", "user_id", userID, "session_id", session.ID, "questions", len(session.Questions))
	return session, nil
}

// SubmitAnswer stores the answer and the LLM's feedback for one question.
func (s *InterviewService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID uint, answer string) (*models.InterviewQuestion, error) {
	session, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.InterviewStatusActive {
		return nil, common.ConflictError("session is already completed")
	}

	var question models.InterviewQuestion
	err = s.DB.WithContext(ctx).
		Where("id = ? AND session_id = ?", questionID, sessionID).
		First(&question).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("question not found in this session")
		}
		return nil, common.WrapError(err, "load question")
	}
	if question.Answer != "" {
		return nil, common.ConflictError("question already answered")
	}

	resp, err := s.LLM.Generate(ctx, llm.AnswerFeedbackPrompt(session.Role, question.Question, answer))
	if err != nil {
		return nil, common.InternalError("feedback generation failed", err)
	}
	var fb struct {
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
	}
	if err := llm.DecodeStrict(llm.FeedbackSchema(), resp, &fb); err != nil {
		return nil, common.InternalError("feedback generation produced invalid output", err)
	}

	question.Answer = answer
	question.Feedback = fb.Feedback
	question.Score = &fb.Score
	if err := s.DB.WithContext(ctx).Save(&question).Error; err != nil {
		return nil, common.WrapError(err, "save answer")
	}
	s.log.Infow("interview.answer", "session_id", sessionID, "question_id", questionID, "score", fb.Score)
	return &question, nil
}

// Finish closes the session and aggregates per-question scores into a
// 0-100 session score plus a short summary.
func (s *InterviewService) Finish(ctx context.Context, userID, sessionID uint) (*models.InterviewSession, error) {
	session, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.InterviewStatusActive {
		return nil, common.ConflictError("session is already completed")
	}

	answered, total := 0, len(session.Questions)
	scoreSum := 0
	for _, q := range session.Questions {
		if q.Answer != "" {
			answered++
			if q.Score != nil {
				scoreSum += *q.Score
			}
		}
	}
	if answered == 0 {
		return nil, common.ConflictError("no answers submitted yet")
	}

	// Per-question scores are 0-10; scale the average to 0-100.
	score := scoreSum * 10 / answered
	summary := fmt.Sprintf("Answered %d of %d questions with an average score of %d/100.", answered, total, score)
	var weak []string
	for _, q := range session.Questions {
		if q.Score != nil && *q.Score <= 5 {
			weak = append(weak, fmt.Sprintf("question %d", q.Position))
		}
	}
	if len(weak) > 0 {
		summary += " Revisit " + strings.Join(weak, ", ") + "."
	}

	session.Status = models.InterviewStatusCompleted
	session.Score = &score
	session.Summary = summary
	err = s.DB.WithContext(ctx).Model(&models.InterviewSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{"status": session.Status, "score": score, "summary": summary}).Error
	if err != nil {
		return nil, common.WrapError(err, "finish session")
	}
	s.log.Infow("interview.finished", "session_id", sessionID, "score", score)
	return session, nil
}

func (s *InterviewService) Get(ctx context.Context, userID, sessionID uint) (*models.InterviewSession, error) {
	return s.get(ctx, userID, sessionID)
}

func (s *InterviewService) get(ctx context.Context, userID, sessionID uint) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := s.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("interview session not found")
		}
		return nil, common.WrapError(err, "load session")
	}
	return &session, nil
}

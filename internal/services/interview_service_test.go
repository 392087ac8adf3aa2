package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/models"
)

const questionsJSON = `{"questions": ["Tell me about a Go service you built.",
	"How do you handle database migrations?",
	"Describe a production incident you debugged."]}`

func startTestSession(t *testing.T, env *testInterviewEnv) *models.InterviewSession {
	t.Helper()
	env.llm.resp = questionsJSON
	session, err := env.svc.Start(context.Background(), env.user.ID, "Backend Engineer", nil)
	require.NoError(t, err)
	return session
}

type testInterviewEnv struct {
	svc  *InterviewService
	llm  *fakeLLM
	user *models.User
}

func newInterviewEnv(t *testing.T) *testInterviewEnv {
	t.Helper()
	db := newTestDB(t)
	gen := &fakeLLM{}
	return &testInterviewEnv{
		svc:  NewInterviewService(db, gen, zap.NewNop()),
		llm:  gen,
		user: createTestUser(t, db, "candidate@example.com"),
	}
}

func TestInterviewStartCreatesQuestions(t *testing.T) {
	env := newInterviewEnv(t)
	session := startTestSession(t, env)

	assert.Equal(t, models.InterviewStatusActive, session.Status)
	assert.Equal(t, "Backend Engineer", session.Role)
	require.Len(t, session.Questions, 3)
	assert.Equal(t, 1, session.Questions[0].Position)
	assert.Equal(t, 3, session.Questions[2].Position)
}

func TestInterviewStartRequiresRoleOrJob(t *testing.T) {
	env := newInterviewEnv(t)
	_, err := env.svc.Start(context.Background(), env.user.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err))
}

func TestInterviewStartRejectsMalformedModelOutput(t *testing.T) {
	env := newInterviewEnv(t)
	env.llm.resp = `{"questions": []}`

	_, err := env.svc.Start(context.Background(), env.user.ID, "Backend Engineer", nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeInternal, common.ErrorCode(err))
}

func TestSubmitAnswerStoresFeedback(t *testing.T) {
	env := newInterviewEnv(t)
	session := startTestSession(t, env)
	ctx := context.Background()

	env.llm.resp = `{"score": 8, "feedback": "Clear structure, add metrics."}`
	question, err := env.svc.SubmitAnswer(ctx, env.user.ID, session.ID, session.Questions[0].ID, "I built a payments API.")
	require.NoError(t, err)

	assert.Equal(t, "I built a payments API.", question.Answer)
	assert.Equal(t, "Clear structure, add metrics.", question.Feedback)
	require.NotNil(t, question.Score)
	assert.Equal(t, 8, *question.Score)

	// The same question can't be answered twice.
	_, err = env.svc.SubmitAnswer(ctx, env.user.ID, session.ID, session.Questions[0].ID, "again")
	require.Error(t, err)
	assert.Equal(t, common.CodeConflict, common.ErrorCode(err))
}

func TestFinishAggregatesScores(t *testing.T) {
	env := newInterviewEnv(t)
	session := startTestSession(t, env)
	ctx := context.Background()

	env.llm.resp = `{"score": 8, "feedback": "ok"}`
	_, err := env.svc.SubmitAnswer(ctx, env.user.ID, session.ID, session.Questions[0].ID, "answer one")
	require.NoError(t, err)
	env.llm.resp = `{"score": 4, "feedback": "thin"}`
	_, err = env.svc.SubmitAnswer(ctx, env.user.ID, session.ID, session.Questions[1].ID, "answer two")
	require.NoError(t, err)

	finished, err := env.svc.Finish(ctx, env.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewStatusCompleted, finished.Status)
	require.NotNil(t, finished.Score)
	// (8+4)*10/2 = 60.
	assert.Equal(t, 60, *finished.Score)
	assert.Contains(t, finished.Summary, "2 of 3")

	// Finishing twice conflicts.
	_, err = env.svc.Finish(ctx, env.user.ID, session.ID)
	require.Error(t, err)
	assert.Equal(t, common.CodeConflict, common.ErrorCode(err))
}

func TestFinishWithoutAnswers(t *testing.T) {
	env := newInterviewEnv(t)
	session := startTestSession(t, env)

	_, err := env.svc.Finish(context.Background(), env.user.ID, session.ID)
	require.Error(t, err)
	assert.Equal(t, common.CodeConflict, common.ErrorCode(err))
}

func TestInterviewSessionOwnership(t *testing.T) {
	env := newInterviewEnv(t)
	session := startTestSession(t, env)

	stranger := createTestUser(t, env.svc.DB, "other@example.com")
	_, err := env.svc.Get(context.Background(), stranger.ID, session.ID)
	require.Error(t, err)
	assert.Equal(t, common.CodeNotFound, common.ErrorCode(err))
}

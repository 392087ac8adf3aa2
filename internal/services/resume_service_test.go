package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/models"
)

const validResumeJSON = `{
	"basics": {"name": "Pat Doe", "email": "pat@example.com", "headline": "Backend engineer"},
	"skills": ["Go", "PostgreSQL"],
	"experience": [{"company": "Acme", "title": "Engineer", "highlights": ["Built the billing API"]}]
}`

func TestCreateStructuredValidatesSchema(t *testing.T) {
	db := newTestDB(t)
	s := NewResumeService(db, &fakeLLM{}, nil, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "pat@example.com")

	resume, err := s.CreateStructured(ctx, user.ID, "main", json.RawMessage(validResumeJSON))
	require.NoError(t, err)
	assert.Equal(t, "main", resume.Title)

	// Missing the required basics block.
	_, err = s.CreateStructured(ctx, user.ID, "bad", json.RawMessage(`{"skills": ["Go"]}`))
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err))

	// Not JSON at all.
	_, err = s.CreateStructured(ctx, user.ID, "bad", json.RawMessage(`resume.docx`))
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err))
}

func TestCustomizeUpserts(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeLLM{resp: "TAILORED RESUME v1"}
	s := NewResumeService(db, gen, nil, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "pat@example.com")
	job := createTestJob(t, db, "c1", "Backend Engineer")

	// No structured resume yet.
	_, err := s.Customize(ctx, user.ID, job.ID)
	require.Error(t, err)
	assert.Equal(t, common.CodeNotFound, common.ErrorCode(err))

	_, err = s.CreateStructured(ctx, user.ID, "main", json.RawMessage(validResumeJSON))
	require.NoError(t, err)

	first, err := s.Customize(ctx, user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "TAILORED RESUME v1", first.Content)
	assert.Equal(t, "fake-model", first.ModelName)

	// Customizing again overwrites the same row.
	gen.resp = "TAILORED RESUME v2"
	_, err = s.Customize(ctx, user.ID, job.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.CustomizedResume{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := s.GetCustomized(ctx, user.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "TAILORED RESUME v2", stored.Content)
}

func TestCustomizeUnknownJob(t *testing.T) {
	db := newTestDB(t)
	s := NewResumeService(db, &fakeLLM{resp: "x"}, nil, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "pat@example.com")
	_, err := s.CreateStructured(ctx, user.ID, "main", json.RawMessage(validResumeJSON))
	require.NoError(t, err)

	_, err = s.Customize(ctx, user.ID, 9999)
	require.Error(t, err)
	assert.Equal(t, common.CodeNotFound, common.ErrorCode(err))
}

func TestGenerateCoverLetter(t *testing.T) {
	db := newTestDB(t)
	gen := &fakeLLM{resp: "Dear hiring team at Acme, ..."}
	s := NewResumeService(db, gen, nil, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "pat@example.com")
	job := createTestJob(t, db, "c1", "Backend Engineer")
	_, err := s.CreateStructured(ctx, user.ID, "main", json.RawMessage(validResumeJSON))
	require.NoError(t, err)

	letter, err := s.GenerateCoverLetter(ctx, user.ID, job.ID, "enthusiastic")
	require.NoError(t, err)
	assert.Contains(t, letter, "Acme")

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Pat Doe")
	assert.Contains(t, gen.prompts[0], "Backend Engineer")
	assert.Contains(t, gen.prompts[0], "enthusiastic")
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	_, err := ExtractPDFText([]byte("this is not a pdf"))
	require.Error(t, err)
	assert.Equal(t, common.CodeValidation, common.ErrorCode(err))
}

func TestLatestStructuredPicksNewest(t *testing.T) {
	db := newTestDB(t)
	s := NewResumeService(db, &fakeLLM{}, nil, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "pat@example.com")
	_, err := s.CreateStructured(ctx, user.ID, "older", json.RawMessage(validResumeJSON))
	require.NoError(t, err)
	newer, err := s.CreateStructured(ctx, user.ID, "newer", json.RawMessage(validResumeJSON))
	require.NoError(t, err)

	latest, err := s.latestStructured(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}

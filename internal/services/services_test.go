package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "services.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeLLM answers every prompt with a canned response (or error).
type fakeLLM struct {
	resp    string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

func (f *fakeLLM) ModelName() string { return "fake-model" }

// fakeSearcher returns a fixed set of postings.
type fakeSearcher struct {
	postings []jobsearch.Posting
	err      error
	queries  []jobsearch.Query
}

func (f *fakeSearcher) Search(_ context.Context, q jobsearch.Query) ([]jobsearch.Posting, error) {
	f.queries = append(f.queries, q)
	return f.postings, f.err
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		APIToken:     "token-" + email,
		Plan:         models.PlanFree,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestJob(t *testing.T, db *gorm.DB, externalID, title string) *models.Job {
	t.Helper()
	job := &models.Job{
		Source:      "testboard",
		ExternalID:  externalID,
		Title:       title,
		Company:     "Acme",
		Location:    "Berlin",
		Remote:      true,
		Description: "Build Go services with PostgreSQL on AWS.",
		SalaryMin:   70000,
		SalaryMax:   95000,
		URL:         "https://example.com/" + externalID,
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

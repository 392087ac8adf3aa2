package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/models"
)

type JobService struct {
	DB       *gorm.DB
	searcher jobsearch.Searcher
	log      *zap.SugaredLogger
}

func NewJobService(db *gorm.DB, searcher jobsearch.Searcher, log *zap.Logger) *JobService {
	return &JobService{DB: db, searcher: searcher, log: log.Sugar()}
}

// SearchAndStore queries the aggregator and upserts every posting, returning
// the persisted jobs in aggregator order.
func (s *JobService) SearchAndStore(ctx context.Context, q jobsearch.Query) ([]models.Job, error) {
	postings, err := s.searcher.Search(ctx, q)
	if err != nil {
		return nil, common.InternalError("job search failed", err)
	}

	jobs := make([]models.Job, 0, len(postings))
	for _, p := range postings {
		job, err := s.upsertPosting(ctx, p)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	s.log.Infow("jobs.search.stored", "keywords", q.Keywords, "count", len(jobs))
	return jobs, nil
}

func (s *JobService) upsertPosting(ctx context.Context, p jobsearch.Posting) (*models.Job, error) {
	source := p.Source
	if source == "" {
		source = "aggregator"
	}
	job := models.Job{
		Source:      source,
		ExternalID:  p.ID,
		Title:       p.Title,
		Company:     p.Company,
		Location:    p.Location,
		Remote:      p.Remote,
		Description: p.Description,
		SalaryMin:   p.SalaryMin,
		SalaryMax:   p.SalaryMax,
		URL:         p.URL,
		Tags:        p.Tags,
		PostedAt:    p.PostedAt,
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "company", "location", "remote", "description",
				"salary_min", "salary_max", "url", "tags", "posted_at", "updated_at",
			}),
		}).
		Create(&job).Error
	if err != nil {
		return nil, common.WrapError(err, "upsert job")
	}
	// The upsert path does not refresh the ID on conflict; reload by key.
	if err := s.DB.WithContext(ctx).
		Where("source = ? AND external_id = ?", job.Source, job.ExternalID).
		First(&job).Error; err != nil {
		return nil, common.WrapError(err, "reload job")
	}
	return &job, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Company    string
	Remote     *bool
	Keyword    string
	PostedFrom *time.Time
	Limit      int
	Offset     int
}

func (s *JobService) List(ctx context.Context, f ListFilter) ([]models.Job, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	tx := s.DB.WithContext(ctx).Model(&models.Job{})
	if f.Company != "" {
		tx = tx.Where("company = ?", f.Company)
	}
	if f.Remote != nil {
		tx = tx.Where("remote = ?", *f.Remote)
	}
	if f.Keyword != "" {
		like := "%" + f.Keyword + "%"
		tx = tx.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if f.PostedFrom != nil {
		tx = tx.Where("posted_at >= ?", *f.PostedFrom)
	}
	var jobs []models.Job
	err := tx.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&jobs).Error
	if err != nil {
		return nil, common.WrapError(err, "list jobs")
	}
	return jobs, nil
}

func (s *JobService) Get(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, common.NotFoundError("job not found")
		}
		return nil, common.WrapError(err, "load job")
	}
	return &job, nil
}

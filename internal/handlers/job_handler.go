package handlers

import (
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/dtos"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/middleware"
	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/queue"
	"github.com/applypilot/applypilot/internal/services"
)

type JobHandler struct {
	Jobs    *services.JobService
	Matcher *services.MatcherService
	Profile *services.ProfileService
	Queue   *queue.Queue
}

func NewJobHandler(jobs *services.JobService, matcher *services.MatcherService,
	profile *services.ProfileService, q *queue.Queue) *JobHandler {
	return &JobHandler{Jobs: jobs, Matcher: matcher, Profile: profile, Queue: q}
}

// Search is POST /api/jobs/search: query the aggregator and persist results.
func (h *JobHandler) Search(c *gin.Context) {
	var req dtos.JobSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	jobs, err := h.Jobs.SearchAndStore(c.Request.Context(), jobsearch.Query{
		Keywords:  req.Keywords,
		Locations: req.Locations,
		Remote:    req.Remote,
		MinSalary: req.MinSalary,
		Limit:     req.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, jobs)
}

// List is GET /api/jobs.
func (h *JobHandler) List(c *gin.Context) {
	var remote *bool
	if v := c.Query("remote"); v != "" {
		b := v == "true" || v == "1"
		remote = &b
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := h.Jobs.List(c.Request.Context(), services.ListFilter{
		Company: c.Query("company"),
		Keyword: c.Query("q"),
		Remote:  remote,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, jobs)
}

// Get is GET /api/jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, common.ValidationError("invalid job id"))
		return
	}
	job, err := h.Jobs.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}

type scoredJob struct {
	Job    models.Job `json:"job"`
	Score  float64    `json:"score"`
	Reason string     `json:"reason"`
}

// Matches is GET /api/jobs/matches: live-score every stored job against the
// caller's profile without persisting notifications.
func (h *JobHandler) Matches(c *gin.Context) {
	user := middleware.CurrentUser(c)

	profile, err := h.Profile.Get(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	jobs, err := h.Jobs.List(c.Request.Context(), services.ListFilter{Limit: 100})
	if err != nil {
		respondError(c, err)
		return
	}

	matches := make([]scoredJob, 0, len(jobs))
	for i := range jobs {
		score, reason := h.Matcher.ScoreJob(profile, &jobs[i])
		if score <= 0 {
			continue
		}
		matches = append(matches, scoredJob{Job: jobs[i], Score: score, Reason: reason})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	respondOK(c, matches)
}

// QueueStatus is GET /api/jobs/queue/status.
func (h *JobHandler) QueueStatus(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	counts, err := h.Queue.StatusCounts(ctx, &user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	recent, err := h.Queue.Recent(ctx, user.ID, 20)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"counts": counts, "recent": recent})
}

// QueueAction is POST /api/jobs/queue/status: retry a failed row or cancel a
// pending one.
func (h *JobHandler) QueueAction(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req dtos.QueueActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var (
		job *models.QueueJob
		err error
	)
	switch req.Action {
	case "retry":
		job, err = h.Queue.Retry(c.Request.Context(), req.JobID, user.ID)
	case "cancel":
		job, err = h.Queue.Cancel(c.Request.Context(), req.JobID, user.ID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}

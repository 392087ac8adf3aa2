package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	// Opaque bearer token issued at register/login. Rotated on every login.
	APIToken string `gorm:"uniqueIndex" json:"-"`
	Plan     string `gorm:"default:'FREE'" json:"plan"`

	AutoApplyEnabled bool       `json:"auto_apply_enabled"`
	LastScanAt       *time.Time `json:"last_scan_at,omitempty"`

	Profile *Profile `json:"profile,omitempty"`
}

type Profile struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	FullName     string                      `json:"full_name"`
	Headline     string                      `json:"headline"`
	Summary      string                      `gorm:"type:text" json:"summary"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
	Locations    datatypes.JSONSlice[string] `json:"locations"`
	RemoteOnly   bool                        `json:"remote_only"`
	MinSalary    int                         `json:"min_salary"`
	YearsOfExp   int                         `json:"years_of_experience"`
	DesiredRoles datatypes.JSONSlice[string] `json:"desired_roles"`
}

// Job is an external listing pulled from the aggregator (or created manually).
// Unique per (source, external_id) so repeated scans upsert instead of duplicating.
type Job struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Source     string `gorm:"uniqueIndex:idx_jobs_source_external;not null" json:"source"`
	ExternalID string `gorm:"uniqueIndex:idx_jobs_source_external;not null" json:"external_id"`

	Title       string                      `gorm:"not null" json:"title"`
	Company     string                      `gorm:"index" json:"company"`
	Location    string                      `json:"location"`
	Remote      bool                        `json:"remote"`
	Description string                      `gorm:"type:text" json:"description"`
	SalaryMin   int                         `json:"salary_min"`
	SalaryMax   int                         `json:"salary_max"`
	URL         string                      `json:"url"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	PostedAt    *time.Time                  `json:"posted_at,omitempty"`
}

// QueueJob is a persisted unit of work polled by the worker process.
type QueueJob struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Type     string `gorm:"index;not null" json:"type"`
	Status   string `gorm:"index;default:'PENDING'" json:"status"`
	Priority int    `gorm:"default:0" json:"priority"`

	Attempts    int `gorm:"default:0" json:"attempts"`
	MaxAttempts int `gorm:"default:3" json:"max_attempts"`

	// Nil for system-wide jobs (e.g. CLEANUP).
	UserID *uint `gorm:"index" json:"user_id,omitempty"`

	Payload      datatypes.JSONMap `json:"payload"`
	ErrorMessage string            `gorm:"type:text" json:"error_message,omitempty"`

	ScheduledAt time.Time  `gorm:"index" json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type Application struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"uniqueIndex:idx_applications_user_job;not null" json:"user_id"`
	JobID  uint `gorm:"uniqueIndex:idx_applications_user_job;not null" json:"job_id"`
	Job    Job  `json:"job"`

	Status    string     `gorm:"default:'APPLIED'" json:"status"`
	Notes     string     `gorm:"type:text" json:"notes"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// CustomizedResume is the LLM-tailored resume text for one user/job pair.
type CustomizedResume struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"uniqueIndex:idx_customized_user_job;not null" json:"user_id"`
	JobID  uint `gorm:"uniqueIndex:idx_customized_user_job;not null" json:"job_id"`

	Content   string `gorm:"type:text" json:"content"`
	ModelName string `json:"model_name"`
}

type StructuredResume struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint   `gorm:"index;not null" json:"user_id"`
	Title  string `json:"title"`

	// Resume document as validated JSON (basics, experience, education, skills).
	Content datatypes.JSON `json:"content"`

	// S3 object key of the uploaded source file, if the resume came from a PDF.
	SourceFileKey string `json:"source_file_key,omitempty"`
}

type InterviewSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"index;not null" json:"user_id"`
	JobID  *uint `json:"job_id,omitempty"`

	Role    string `json:"role"`
	Status  string `gorm:"default:'ACTIVE'" json:"status"`
	Summary string `gorm:"type:text" json:"summary,omitempty"`
	Score   *int   `json:"score,omitempty"`

	Questions []InterviewQuestion `gorm:"foreignKey:SessionID" json:"questions,omitempty"`
}

type InterviewQuestion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SessionID uint `gorm:"index;not null" json:"session_id"`
	Position  int  `json:"position"`

	Question string `gorm:"type:text" json:"question"`
	Answer   string `gorm:"type:text" json:"answer,omitempty"`
	Feedback string `gorm:"type:text" json:"feedback,omitempty"`
	Score    *int   `json:"score,omitempty"`
}

type JobNotification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"uniqueIndex:idx_notifications_user_job;not null" json:"user_id"`
	JobID  uint `gorm:"uniqueIndex:idx_notifications_user_job;not null" json:"job_id"`
	Job    Job  `json:"job"`

	Score  float64 `json:"score"`
	Reason string  `gorm:"type:text" json:"reason"`

	Read    bool `gorm:"default:false" json:"read"`
	Emailed bool `gorm:"default:false" json:"emailed"`
}

type ApplicationReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ApplicationID uint `gorm:"index;not null" json:"application_id"`

	Score       int                         `json:"score"`
	Strengths   datatypes.JSONSlice[string] `json:"strengths"`
	Gaps        datatypes.JSONSlice[string] `json:"gaps"`
	Suggestions datatypes.JSONSlice[string] `json:"suggestions"`
	ModelName   string                      `json:"model_name"`
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
}

// UsageRecord counts metered feature usage per calendar month ("2026-08").
type UsageRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint   `gorm:"uniqueIndex:idx_usage_user_feature_period;not null" json:"user_id"`
	Feature string `gorm:"uniqueIndex:idx_usage_user_feature_period;not null" json:"feature"`
	Period  string `gorm:"uniqueIndex:idx_usage_user_feature_period;not null" json:"period"`
	Count   int    `gorm:"default:0" json:"count"`
}

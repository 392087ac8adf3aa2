package dtos

type JobSearchRequest struct {
	Keywords  string   `json:"keywords" binding:"required"`
	Locations []string `json:"locations"`
	Remote    bool     `json:"remote"`
	MinSalary int      `json:"min_salary"`
	Limit     int      `json:"limit"`
}

// QueueActionRequest drives POST /api/jobs/queue/status.
type QueueActionRequest struct {
	JobID  uint   `json:"job_id" binding:"required"`
	Action string `json:"action" binding:"required,oneof=retry cancel"`
}

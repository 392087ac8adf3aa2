package dtos

type ApplicationCreateRequest struct {
	JobID uint   `json:"job_id" binding:"required"`
	Notes string `json:"notes"`
}

type ApplicationUpdateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

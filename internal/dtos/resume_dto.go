package dtos

import "encoding/json"

type StructuredResumeRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content" binding:"required"`
}

type CustomizeResumeRequest struct {
	JobID uint `json:"job_id" binding:"required"`
}

type CoverLetterRequest struct {
	JobID uint   `json:"job_id" binding:"required"`
	Tone  string `json:"tone"`
}

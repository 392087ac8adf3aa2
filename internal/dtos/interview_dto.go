package dtos

type InterviewStartRequest struct {
	Role  string `json:"role"`
	JobID *uint  `json:"job_id"`
}

type SubmitAnswerRequest struct {
	SessionID  uint   `json:"session_id" binding:"required"`
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

package models

// QueueJob lifecycle. Stable values, stored verbatim in the DB.
const (
	QueueStatusPending    = "PENDING"
	QueueStatusProcessing = "PROCESSING"
	QueueStatusCompleted  = "COMPLETED"
	QueueStatusFailed     = "FAILED"
)

// Queue job types dispatched by the worker.
const (
	JobTypeScan             = "SCAN"
	JobTypeMatchJobs        = "MATCH_JOBS"
	JobTypeCustomizeResume  = "CUSTOMIZE_RESUME"
	JobTypeSendNotification = "SEND_NOTIFICATIONS"
	JobTypeCleanup          = "CLEANUP"
)

// Application lifecycle.
const (
	ApplicationStatusApplied   = "APPLIED"
	ApplicationStatusInterview = "INTERVIEW"
	ApplicationStatusOffer     = "OFFER"
	ApplicationStatusRejected  = "REJECTED"
	ApplicationStatusWithdrawn = "WITHDRAWN"
)

// Interview session lifecycle.
const (
	InterviewStatusActive    = "ACTIVE"
	InterviewStatusCompleted = "COMPLETED"
)

// Subscription plans. Quotas per plan live in the billing service.
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

// Metered features counted by UsageRecord.
const (
	FeatureCoverLetter       = "cover_letter"
	FeatureResumeCustomize   = "resume_customize"
	FeatureInterviewSession  = "interview_session"
	FeatureScan              = "scan"
	FeatureApplicationReview = "application_review"
)

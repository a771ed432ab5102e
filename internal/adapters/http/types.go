package httpadapter

import (
	"time"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

// Wire shapes for the admin API.

type validationResponse struct {
	ProjectID        string                  `json:"projectId"`
	ScamCheck        domain.ValidationResult `json:"scamCheck"`
	SanctionsCheck   domain.ValidationResult `json:"sanctionsCheck"`
	AuditCheck       domain.ValidationResult `json:"auditCheck"`
	RiskLevel        domain.RiskLevel        `json:"riskLevel"`
	OverallPassed    bool                    `json:"overallPassed"`
	ManuallyReviewed bool                    `json:"manuallyReviewed"`
	ReviewedBy       string                  `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time              `json:"reviewedAt,omitempty"`
	ValidatedAt      time.Time               `json:"validatedAt"`
}

func toValidationResponse(v domain.ProjectValidation) validationResponse {
	return validationResponse{
		ProjectID:        v.ProjectID,
		ScamCheck:        v.ScamCheck,
		SanctionsCheck:   v.SanctionsCheck,
		AuditCheck:       v.AuditCheck,
		RiskLevel:        v.RiskLevel,
		OverallPassed:    v.OverallPassed,
		ManuallyReviewed: v.ManuallyReviewed,
		ReviewedBy:       v.ReviewedBy,
		ReviewedAt:       v.ReviewedAt,
		ValidatedAt:      v.ValidatedAt,
	}
}

type overrideRequest struct {
	Check  string `json:"check"`
	Passed *bool  `json:"passed"`
	Notes  string `json:"notes"`
}

type jobAccepted struct {
	JobID string `json:"jobId"`
}

type jobResponse struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"projectId"`
	Status     ports.JobStatus `json:"status"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"lastError,omitempty"`
	QueuedAt   time.Time       `json:"queuedAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

func toJobResponse(j ports.ValidationJob) jobResponse {
	return jobResponse(j)
}

type errorResponse struct {
	Error string `json:"error"`
}

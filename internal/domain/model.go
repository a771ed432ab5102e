package domain

import (
	"errors"
	"time"
)

// Core domain models used internally. Transport and storage shapes sit in
// their adapters; keep these decoupled where helpful.

// Project is the submitted listing as read from the project store. It is
// owned by the submission workflow and never written by this service.
type Project struct {
	ID                string
	Name              string
	Description       string
	Website           string
	ROI               *float64 // percent
	AuditDocumentPath string
	AuditURL          string
}

// ValidationResult is the verdict of a single check.
type ValidationResult struct {
	Passed         bool   `json:"passed"`
	Details        string `json:"details"`
	ManualOverride bool   `json:"manualOverride,omitempty"`
	ManualNotes    string `json:"manualNotes,omitempty"`
	// Inconclusive marks a default pass reached while at least one reference
	// service could not be consulted.
	Inconclusive bool `json:"inconclusive,omitempty"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ProjectValidation is the latest validation snapshot for a project.
type ProjectValidation struct {
	ProjectID        string
	ScamCheck        ValidationResult
	SanctionsCheck   ValidationResult
	AuditCheck       ValidationResult
	RiskLevel        RiskLevel
	OverallPassed    bool
	ManuallyReviewed bool
	ReviewedBy       string
	ReviewedAt       *time.Time
	ValidatedAt      time.Time
}

var (
	ErrNotFound              = errors.New("not found")
	ErrUnknownCheck          = errors.New("unknown check")
	ErrOverrideNotesRequired = errors.New("override notes required")
	ErrReviewerRequired      = errors.New("reviewer id required")
)

package domain

import (
	"fmt"
	"strings"
	"time"
)

// MinOverrideNotesLen is the shortest justification accepted for an override
// that flips a verdict.
const MinOverrideNotesLen = 3

// NewProjectValidation builds a fresh, unreviewed snapshot from automated results.
func NewProjectValidation(projectID string, scam, sanctions, audit ValidationResult, at time.Time) ProjectValidation {
	v := ProjectValidation{
		ProjectID:      projectID,
		ScamCheck:      scam,
		SanctionsCheck: sanctions,
		AuditCheck:     audit,
		ValidatedAt:    at,
	}
	v.Recompute()
	return v
}

// Recompute derives OverallPassed and RiskLevel from the three checks.
// Audit never affects OverallPassed.
func (v *ProjectValidation) Recompute() {
	v.OverallPassed = v.ScamCheck.Passed && v.SanctionsCheck.Passed
	v.RiskLevel = ClassifyRisk(v.ScamCheck.Passed, v.SanctionsCheck.Passed, v.AuditCheck.Passed)
}

// ClassifyRisk maps check outcomes to a risk level.
func ClassifyRisk(scamPassed, sanctionsPassed, auditPassed bool) RiskLevel {
	switch {
	case !scamPassed || !sanctionsPassed:
		return RiskHigh
	case !auditPassed:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Override is a reviewer's correction of one check's verdict.
type Override struct {
	Check      CheckKind
	Passed     bool
	Notes      string
	ReviewerID string
	At         time.Time
}

// ApplyManualOverride returns a copy of current with the override applied,
// the aggregate recomputed and the reviewer attribution stamped. current is
// never modified; on error the zero value is returned.
func ApplyManualOverride(current ProjectValidation, o Override) (ProjectValidation, error) {
	if strings.TrimSpace(o.ReviewerID) == "" {
		return ProjectValidation{}, ErrReviewerRequired
	}
	next := current
	res, err := next.Result(o.Check)
	if err != nil {
		return ProjectValidation{}, err
	}
	notes := strings.TrimSpace(o.Notes)
	if res.Passed != o.Passed && len([]rune(notes)) < MinOverrideNotesLen {
		return ProjectValidation{}, fmt.Errorf("%w: at least %d characters needed to change %s",
			ErrOverrideNotesRequired, MinOverrideNotesLen, o.Check)
	}

	res.Passed = o.Passed
	res.ManualOverride = true
	res.Inconclusive = false
	// An unchanged verdict with no new notes keeps the earlier justification.
	if notes != "" {
		res.ManualNotes = notes
	}

	next.Recompute()
	at := o.At
	next.ManuallyReviewed = true
	next.ReviewedBy = o.ReviewerID
	next.ReviewedAt = &at
	return next, nil
}

// ApprovalDecision tells the approval workflow whether a project may be approved.
type ApprovalDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// EvaluateApproval applies the approval gate to a validation snapshot.
func EvaluateApproval(v ProjectValidation) ApprovalDecision {
	if !v.OverallPassed {
		var failed []string
		if !v.ScamCheck.Passed {
			failed = append(failed, CheckScam.String())
		}
		if !v.SanctionsCheck.Passed {
			failed = append(failed, CheckSanctions.String())
		}
		return ApprovalDecision{Reason: "critical checks failed: " + strings.Join(failed, ", ")}
	}
	if !v.AuditCheck.Passed && !v.ManuallyReviewed {
		return ApprovalDecision{Reason: "audit check failed; manual review required before approval"}
	}
	return ApprovalDecision{Allowed: true, Reason: fmt.Sprintf("validation passed (%s risk)", v.RiskLevel)}
}

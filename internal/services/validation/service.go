package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/metrics"
	"rwadirectory/internal/ports"
	"rwadirectory/internal/services/checks"
)

// Service runs project validations, applies reviewer overrides and answers
// approval-gate queries.
type Service struct {
	projects ports.ProjectRepository
	records  ports.ValidationRepository
	checkers map[domain.CheckKind]checks.Checker
	now      func() time.Time
	logger   *zap.Logger
}

// Deps contains dependencies for Service.
type Deps struct {
	Projects ports.ProjectRepository
	Records  ports.ValidationRepository
	// Checkers must provide exactly one checker per domain.CheckKind.
	Checkers []checks.Checker
	Now      func() time.Time // optional, defaults to time.Now
	Logger   *zap.Logger
}

func New(deps Deps) (*Service, error) {
	byKind := make(map[domain.CheckKind]checks.Checker, len(deps.Checkers))
	for _, c := range deps.Checkers {
		if _, dup := byKind[c.Kind()]; dup {
			return nil, fmt.Errorf("duplicate checker for %s", c.Kind())
		}
		byKind[c.Kind()] = c
	}
	for _, k := range domain.AllChecks {
		if _, ok := byKind[k]; !ok {
			return nil, fmt.Errorf("no checker for %s", k)
		}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects: deps.Projects,
		records:  deps.Records,
		checkers: byKind,
		now:      now,
		logger:   logger.Named("validation"),
	}, nil
}

// Validate runs every checker concurrently and combines their verdicts into
// a fresh, unreviewed snapshot. It never fails.
func (s *Service) Validate(ctx context.Context, p domain.Project) domain.ProjectValidation {
	start := s.now()
	results := make(map[domain.CheckKind]domain.ValidationResult, len(s.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for kind, checker := range s.checkers {
		wg.Add(1)
		go func(kind domain.CheckKind, checker checks.Checker) {
			defer wg.Done()
			res := s.runChecker(ctx, checker, p)
			mu.Lock()
			results[kind] = res
			mu.Unlock()
		}(kind, checker)
	}
	wg.Wait()

	v := domain.NewProjectValidation(p.ID,
		results[domain.CheckScam], results[domain.CheckSanctions], results[domain.CheckAudit], s.now())

	for _, k := range domain.AllChecks {
		metrics.RecordCheck(k.String(), outcomeLabel(results[k]))
	}
	metrics.RecordValidation(string(v.RiskLevel), s.now().Sub(start))
	s.logger.Info("project validated",
		zap.String("project_id", p.ID),
		zap.String("risk_level", string(v.RiskLevel)),
		zap.Bool("overall_passed", v.OverallPassed),
		zap.Bool("scam_passed", v.ScamCheck.Passed),
		zap.Bool("sanctions_passed", v.SanctionsCheck.Passed),
		zap.Bool("audit_passed", v.AuditCheck.Passed))
	return v
}

func (s *Service) runChecker(ctx context.Context, c checks.Checker, p domain.Project) (res domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("checker panicked", zap.Stringer("check", c.Kind()), zap.Any("panic", r))
			res = domain.ValidationResult{Passed: false, Details: "Unable to verify: internal error"}
		}
	}()
	return c.Check(ctx, p)
}

func outcomeLabel(r domain.ValidationResult) string {
	switch {
	case !r.Passed:
		return "fail"
	case r.Inconclusive:
		return "inconclusive"
	default:
		return "pass"
	}
}

// Revalidate fetches the project, validates it and replaces the stored
// record. Manual overrides on the previous record are discarded.
func (s *Service) Revalidate(ctx context.Context, projectID string) (domain.ProjectValidation, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return domain.ProjectValidation{}, fmt.Errorf("get project %s: %w", projectID, err)
	}

	v := s.Validate(ctx, project)

	prev, err := s.records.GetValidation(ctx, projectID)
	if err != nil {
		return domain.ProjectValidation{}, fmt.Errorf("get previous validation: %w", err)
	}
	if prev != nil && prev.ManuallyReviewed {
		metrics.RecordDiscardedOverride()
		s.logger.Warn("re-validation discards manual review",
			zap.String("project_id", projectID),
			zap.String("previous_reviewer", prev.ReviewedBy),
			zap.Timep("previous_reviewed_at", prev.ReviewedAt))
	}

	if err := s.records.UpsertValidation(ctx, projectID, v); err != nil {
		return domain.ProjectValidation{}, fmt.Errorf("save validation: %w", err)
	}
	return v, nil
}

// Get returns the stored record or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, projectID string) (domain.ProjectValidation, error) {
	rec, err := s.records.GetValidation(ctx, projectID)
	if err != nil {
		return domain.ProjectValidation{}, fmt.Errorf("get validation: %w", err)
	}
	if rec == nil {
		return domain.ProjectValidation{}, domain.ErrNotFound
	}
	return *rec, nil
}

// Override applies a reviewer's correction to the stored record and saves it.
// Nothing is written when the override is rejected.
func (s *Service) Override(ctx context.Context, projectID string, o domain.Override) (domain.ProjectValidation, error) {
	if o.At.IsZero() {
		o.At = s.now()
	}
	current, err := s.Get(ctx, projectID)
	if err != nil {
		return domain.ProjectValidation{}, err
	}
	next, err := domain.ApplyManualOverride(current, o)
	if err != nil {
		return domain.ProjectValidation{}, err
	}
	if err := s.records.UpsertValidation(ctx, projectID, next); err != nil {
		return domain.ProjectValidation{}, fmt.Errorf("save validation: %w", err)
	}

	metrics.RecordOverride(o.Check.String())
	s.logger.Info("manual override applied",
		zap.String("project_id", projectID),
		zap.Stringer("check", o.Check),
		zap.Bool("passed", o.Passed),
		zap.String("reviewer", o.ReviewerID),
		zap.String("risk_level", string(next.RiskLevel)))
	return next, nil
}

// Approval evaluates the approval gate against the stored record.
func (s *Service) Approval(ctx context.Context, projectID string) (domain.ApprovalDecision, error) {
	v, err := s.Get(ctx, projectID)
	if err != nil {
		return domain.ApprovalDecision{}, err
	}
	return domain.EvaluateApproval(v), nil
}

package validation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
	"rwadirectory/internal/services/checks"
)

// Mock implementations for testing

type mockProjects struct {
	projects map[string]domain.Project
}

func (m *mockProjects) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return p, nil
}

type mockRecords struct {
	mu        sync.Mutex
	records   map[string]domain.ProjectValidation
	upserts   int
	getErr    error
	upsertErr error
}

func newMockRecords() *mockRecords {
	return &mockRecords{records: make(map[string]domain.ProjectValidation)}
}

func (m *mockRecords) GetValidation(ctx context.Context, projectID string) (*domain.ProjectValidation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.records[projectID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *mockRecords) UpsertValidation(ctx context.Context, projectID string, v domain.ProjectValidation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.records[projectID] = v
	return nil
}

type stubChecker struct {
	kind   domain.CheckKind
	result domain.ValidationResult
	delay  time.Duration
	panics bool
}

func (c stubChecker) Kind() domain.CheckKind { return c.kind }

func (c stubChecker) Check(ctx context.Context, p domain.Project) domain.ValidationResult {
	if c.panics {
		panic("checker bug")
	}
	time.Sleep(c.delay)
	return c.result
}

func stubs(scam, sanctions, audit bool) []checks.Checker {
	return []checks.Checker{
		stubChecker{kind: domain.CheckScam, result: domain.ValidationResult{Passed: scam, Details: "scam"}},
		stubChecker{kind: domain.CheckSanctions, result: domain.ValidationResult{Passed: sanctions, Details: "sanctions"}},
		stubChecker{kind: domain.CheckAudit, result: domain.ValidationResult{Passed: audit, Details: "audit"}},
	}
}

func fixedNow() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func newTestService(t *testing.T, checkers []checks.Checker, records *mockRecords) *Service {
	t.Helper()
	svc, err := New(Deps{
		Projects: &mockProjects{projects: map[string]domain.Project{
			"p1": {ID: "p1", Name: "Example REIT", Description: "Berlin offices", Website: "https://example-reit.com"},
		}},
		Records:  records,
		Checkers: checkers,
		Now:      fixedNow,
	})
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresOneCheckerPerKind(t *testing.T) {
	_, err := New(Deps{Checkers: stubs(true, true, true)[:2]})
	assert.ErrorContains(t, err, "auditCheck")

	dup := append(stubs(true, true, true), stubChecker{kind: domain.CheckScam})
	_, err = New(Deps{Checkers: dup})
	assert.ErrorContains(t, err, "duplicate")
}

func TestValidate_RunsCheckersConcurrently(t *testing.T) {
	delay := 150 * time.Millisecond
	checkers := []checks.Checker{
		stubChecker{kind: domain.CheckScam, result: domain.ValidationResult{Passed: true}, delay: delay},
		stubChecker{kind: domain.CheckSanctions, result: domain.ValidationResult{Passed: true}, delay: delay},
		stubChecker{kind: domain.CheckAudit, result: domain.ValidationResult{Passed: false}, delay: delay},
	}
	svc := newTestService(t, checkers, newMockRecords())

	start := time.Now()
	v := svc.Validate(context.Background(), domain.Project{ID: "p1"})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 3*delay, "checkers should not run sequentially")
	assert.True(t, v.OverallPassed)
	assert.Equal(t, domain.RiskMedium, v.RiskLevel)
	assert.Equal(t, fixedNow(), v.ValidatedAt)
}

func TestValidate_CheckerPanicIsContained(t *testing.T) {
	checkers := stubs(true, true, true)
	checkers[1] = stubChecker{kind: domain.CheckSanctions, panics: true}
	svc := newTestService(t, checkers, newMockRecords())

	v := svc.Validate(context.Background(), domain.Project{ID: "p1"})
	assert.False(t, v.SanctionsCheck.Passed)
	assert.Contains(t, v.SanctionsCheck.Details, "Unable to verify")
	assert.False(t, v.OverallPassed)
	assert.Equal(t, domain.RiskHigh, v.RiskLevel)
}

func TestRevalidate_ReplacesRecordAndDiscardsOverrides(t *testing.T) {
	records := newMockRecords()
	svc := newTestService(t, stubs(true, true, false), records)
	ctx := context.Background()

	_, err := svc.Revalidate(ctx, "p1")
	require.NoError(t, err)
	reviewed, err := svc.Override(ctx, "p1", domain.Override{Check: domain.CheckAudit, Passed: true, Notes: "Checked the PDF", ReviewerID: "r1"})
	require.NoError(t, err)
	require.True(t, reviewed.ManuallyReviewed)

	again, err := svc.Revalidate(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, again.ManuallyReviewed)
	assert.False(t, again.AuditCheck.Passed)
	assert.False(t, again.AuditCheck.ManualOverride)
	assert.Empty(t, again.ReviewedBy)
	assert.Len(t, records.records, 1)
	assert.Equal(t, again, records.records["p1"])
}

func TestRevalidate_Errors(t *testing.T) {
	records := newMockRecords()
	svc := newTestService(t, stubs(true, true, true), records)

	_, err := svc.Revalidate(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records.upsertErr = errors.New("connection reset")
	_, err = svc.Revalidate(context.Background(), "p1")
	assert.ErrorContains(t, err, "connection reset")
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, stubs(true, true, true), newMockRecords())
	_, err := svc.Get(context.Background(), "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Approval(context.Background(), "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverride_RejectedLeavesRecordUntouched(t *testing.T) {
	records := newMockRecords()
	svc := newTestService(t, stubs(true, true, false), records)
	ctx := context.Background()

	before, err := svc.Revalidate(ctx, "p1")
	require.NoError(t, err)

	_, err = svc.Override(ctx, "p1", domain.Override{Check: domain.CheckAudit, Passed: true, Notes: "ok", ReviewerID: "r1"})
	assert.ErrorIs(t, err, domain.ErrOverrideNotesRequired)
	assert.Equal(t, 1, records.upserts)
	assert.Equal(t, before, records.records["p1"])
}

func TestOverride_MissingRecord(t *testing.T) {
	svc := newTestService(t, stubs(true, true, true), newMockRecords())
	_, err := svc.Override(context.Background(), "p1", domain.Override{Check: domain.CheckAudit, Passed: true, Notes: "Verified", ReviewerID: "r1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Unverifiable upload, then a reviewer signs off on the audit.
func TestFullOverrideFlow(t *testing.T) {
	storage := &memStorage{sizes: map[string]int64{"audit-documents/p2/report-final.pdf": 64 * 1024}}
	checkers := []checks.Checker{
		checks.NewScamChecker(checks.ScamCheckerDeps{}),
		checks.NewSanctionsChecker(checks.SanctionsCheckerDeps{}),
		checks.NewAuditChecker(checks.AuditCheckerDeps{Storage: storage}),
	}
	records := newMockRecords()
	svc, err := New(Deps{
		Projects: &mockProjects{projects: map[string]domain.Project{
			"p2": {
				ID:                "p2",
				Name:              "Example REIT",
				Description:       "A tokenized commercial real estate fund in Berlin",
				Website:           "https://example-reit.com",
				AuditDocumentPath: "p2/report-final.pdf",
			},
		}},
		Records:  records,
		Checkers: checkers,
	})
	require.NoError(t, err)
	ctx := context.Background()

	v, err := svc.Revalidate(ctx, "p2")
	require.NoError(t, err)
	require.False(t, v.AuditCheck.Passed)
	assert.Contains(t, v.AuditCheck.Details, "manual review")
	require.True(t, v.OverallPassed)
	assert.Equal(t, domain.RiskMedium, v.RiskLevel)

	gate, err := svc.Approval(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, gate.Allowed)

	requested := time.Now()
	after, err := svc.Override(ctx, "p2", domain.Override{
		Check:      domain.CheckAudit,
		Passed:     true,
		Notes:      "Verified manually against PDF content",
		ReviewerID: "reviewer-42",
	})
	require.NoError(t, err)

	assert.True(t, after.AuditCheck.Passed)
	assert.True(t, after.AuditCheck.ManualOverride)
	assert.Equal(t, "Verified manually against PDF content", after.AuditCheck.ManualNotes)
	assert.True(t, after.ManuallyReviewed)
	assert.Equal(t, "reviewer-42", after.ReviewedBy)
	require.NotNil(t, after.ReviewedAt)
	assert.False(t, after.ReviewedAt.Before(requested))
	assert.Equal(t, v.OverallPassed, after.OverallPassed)
	assert.Equal(t, domain.RiskLow, after.RiskLevel)

	stored, err := svc.Get(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, after, stored)

	gate, err = svc.Approval(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, gate.Allowed)
}

type memStorage struct {
	sizes map[string]int64
}

func (m *memStorage) Exists(ctx context.Context, bucket, path string) (bool, error) {
	_, ok := m.sizes[bucket+"/"+path]
	return ok, nil
}

func (m *memStorage) Stat(ctx context.Context, bucket, path string) (ports.FileInfo, error) {
	return ports.FileInfo{Name: path, Size: m.sizes[bucket+"/"+path], ContentType: "application/pdf"}, nil
}

func (m *memStorage) Download(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("%PDF-1.4")), nil
}

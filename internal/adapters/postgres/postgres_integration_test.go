//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

var (
	sharedDB     *DB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// getTestDB starts one PostgreSQL container per test run and applies migrations.
func getTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupTestDB()
	})
	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}
	return sharedDB
}

func setupTestDB() (*DB, error) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "rwa_test",
				"POSTGRES_USER":     "rwa",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf("postgres://rwa:test_password@%s:%s/rwa_test?sslmode=disable", host, port.Port())
	db, err := Connect(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func insertProject(t *testing.T, db *DB, p domain.Project) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO projects (id, name, description, website, roi, audit_document_path, audit_url)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Name, p.Description, p.Website, p.ROI, p.AuditDocumentPath, p.AuditURL)
	require.NoError(t, err)
}

func TestGetProject(t *testing.T) {
	db := getTestDB(t)
	roi := 12.5
	want := domain.Project{ID: "proj-get", Name: "Example REIT", Description: "Berlin offices", Website: "https://example-reit.com", ROI: &roi, AuditURL: "https://certik.com/projects/example"}
	insertProject(t, db, want)

	got, err := db.GetProject(context.Background(), "proj-get")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = db.GetProject(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidationUpsertRoundTrip(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	insertProject(t, db, domain.Project{ID: "proj-val", Name: "Example REIT"})

	rec, err := db.GetValidation(ctx, "proj-val")
	require.NoError(t, err)
	assert.Nil(t, rec)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := domain.NewProjectValidation("proj-val",
		domain.ValidationResult{Passed: true, Details: "No suspicious patterns detected"},
		domain.ValidationResult{Passed: true, Details: "No sanctions concerns detected", Inconclusive: true},
		domain.ValidationResult{Passed: false, Details: "Audit document not found"},
		at)
	require.NoError(t, db.UpsertValidation(ctx, "proj-val", v))

	reviewed, err := domain.ApplyManualOverride(v, domain.Override{
		Check: domain.CheckAudit, Passed: true, Notes: "Verified manually", ReviewerID: "reviewer-1", At: at.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, db.UpsertValidation(ctx, "proj-val", reviewed))

	got, err := db.GetValidation(ctx, "proj-val")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, reviewed.AuditCheck, got.AuditCheck)
	assert.Equal(t, reviewed.SanctionsCheck, got.SanctionsCheck)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.True(t, got.ManuallyReviewed)
	assert.Equal(t, "reviewer-1", got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, reviewed.ReviewedAt.Equal(*got.ReviewedAt))
	assert.True(t, at.Equal(got.ValidatedAt))

	var rows int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM project_validations WHERE project_id = 'proj-val'`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestConcurrentUpsertsKeepOneRecord(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	insertProject(t, db, domain.Project{ID: "proj-race", Name: "Race"})

	v := domain.NewProjectValidation("proj-race", domain.ValidationResult{Passed: true}, domain.ValidationResult{Passed: true}, domain.ValidationResult{Passed: true}, time.Now())
	require.NoError(t, db.UpsertValidation(ctx, "proj-race", v))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.UpsertValidation(ctx, "proj-race", v))
		}()
	}
	wg.Wait()

	var rows int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM project_validations WHERE project_id = 'proj-race'`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestConcurrentFirstUpsertsLastWriteWins(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	insertProject(t, db, domain.Project{ID: "proj-first-race", Name: "First Race"})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := domain.NewProjectValidation("proj-first-race",
				domain.ValidationResult{Passed: true},
				domain.ValidationResult{Passed: true},
				domain.ValidationResult{Passed: i%2 == 0},
				time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC))
			<-start
			assert.NoError(t, db.UpsertValidation(ctx, "proj-first-race", v))
		}(i)
	}
	close(start)
	wg.Wait()

	var rows int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM project_validations WHERE project_id = 'proj-first-race'`).Scan(&rows))
	assert.Equal(t, 1, rows)

	got, err := db.GetValidation(ctx, "proj-first-race")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, got.AuditCheck.Passed, got.RiskLevel == domain.RiskLow)
}

func TestJobQueue(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	insertProject(t, db, domain.Project{ID: "proj-job", Name: "Jobs"})

	_, err := db.Enqueue(ctx, "missing-project")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := db.Enqueue(ctx, "proj-job")
	require.NoError(t, err)
	second, err := db.Enqueue(ctx, "proj-job")
	require.NoError(t, err)

	job, found, err := db.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, job.ID)
	assert.Equal(t, 1, job.Attempts)
	require.NoError(t, db.MarkCompleted(ctx, job.ID))

	job, found, err = db.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, job.ID)
	require.NoError(t, db.MarkFailed(ctx, job.ID, "get project: boom"))

	_, found, err = db.ClaimNext(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	done, err := db.GetJob(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, ports.JobCompleted, done.Status)
	assert.NotNil(t, done.FinishedAt)

	failed, err := db.GetJob(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, ports.JobFailed, failed.Status)
	assert.Equal(t, "get project: boom", failed.LastError)

	_, err = db.GetJob(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

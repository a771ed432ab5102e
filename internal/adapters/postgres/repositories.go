package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

var (
	_ ports.ProjectRepository    = (*DB)(nil)
	_ ports.ValidationRepository = (*DB)(nil)
)

// ProjectRepository
func (db *DB) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	var p domain.Project
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, description, website, roi,
		       COALESCE(audit_document_path, ''), COALESCE(audit_url, '')
		FROM projects
		WHERE id = $1
	`, projectID).Scan(&p.ID, &p.Name, &p.Description, &p.Website, &p.ROI, &p.AuditDocumentPath, &p.AuditURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, domain.ErrNotFound
	}
	return p, err
}

// ValidationRepository
func (db *DB) GetValidation(ctx context.Context, projectID string) (*domain.ProjectValidation, error) {
	v := domain.ProjectValidation{ProjectID: projectID}
	var risk string
	err := db.Pool.QueryRow(ctx, `
		SELECT scam_check, sanctions_check, audit_check, risk_level, overall_passed,
		       manually_reviewed, COALESCE(reviewed_by, ''), reviewed_at, validated_at
		FROM project_validations
		WHERE project_id = $1
	`, projectID).Scan(&v.ScamCheck, &v.SanctionsCheck, &v.AuditCheck, &risk, &v.OverallPassed,
		&v.ManuallyReviewed, &v.ReviewedBy, &v.ReviewedAt, &v.ValidatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.RiskLevel = domain.RiskLevel(risk)
	return &v, nil
}

// UpsertValidation locks the existing row, if any, and updates it in place;
// otherwise it inserts a new one. A concurrent first insert for the same
// project lands on the unique index and is applied as an update instead.
func (db *DB) UpsertValidation(ctx context.Context, projectID string, v domain.ProjectValidation) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM project_validations WHERE project_id = $1 FOR UPDATE`, projectID).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
			INSERT INTO project_validations (
				project_id, scam_check, sanctions_check, audit_check, risk_level, overall_passed,
				manually_reviewed, reviewed_by, reviewed_at, validated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
			ON CONFLICT (project_id) DO UPDATE SET
				scam_check = EXCLUDED.scam_check, sanctions_check = EXCLUDED.sanctions_check,
				audit_check = EXCLUDED.audit_check, risk_level = EXCLUDED.risk_level,
				overall_passed = EXCLUDED.overall_passed, manually_reviewed = EXCLUDED.manually_reviewed,
				reviewed_by = EXCLUDED.reviewed_by, reviewed_at = EXCLUDED.reviewed_at,
				validated_at = EXCLUDED.validated_at, updated_at = now()
		`, projectID, v.ScamCheck, v.SanctionsCheck, v.AuditCheck, string(v.RiskLevel), v.OverallPassed,
			v.ManuallyReviewed, v.ReviewedBy, v.ReviewedAt, v.ValidatedAt)
		if err != nil {
			return fmt.Errorf("insert validation: %w", err)
		}
	case err != nil:
		return err
	default:
		_, err = tx.Exec(ctx, `
			UPDATE project_validations SET
				scam_check = $2, sanctions_check = $3, audit_check = $4, risk_level = $5,
				overall_passed = $6, manually_reviewed = $7, reviewed_by = NULLIF($8, ''),
				reviewed_at = $9, validated_at = $10, updated_at = now()
			WHERE id = $1
		`, id, v.ScamCheck, v.SanctionsCheck, v.AuditCheck, string(v.RiskLevel),
			v.OverallPassed, v.ManuallyReviewed, v.ReviewedBy, v.ReviewedAt, v.ValidatedAt)
		if err != nil {
			return fmt.Errorf("update validation: %w", err)
		}
	}
	return nil
}

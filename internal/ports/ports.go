package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"rwadirectory/internal/domain"
)

// ErrServiceUnavailable marks a reference or storage call that could not give
// an answer: missing credentials, network failure, timeout or a 5xx.
var ErrServiceUnavailable = errors.New("service unavailable")

// PhishingVerdict is the answer of a phishing-intelligence lookup.
type PhishingVerdict struct {
	Listed  bool
	PhishID string
}

// PhishingLookup checks a domain against a known-phishing database.
type PhishingLookup interface {
	LookupDomain(ctx context.Context, domain string) (PhishingVerdict, error)
}

// ThreatVerdict is the answer of a URL-reputation lookup.
type ThreatVerdict struct {
	Matched    bool
	ThreatType string
}

// URLReputation matches a URL against malware and social-engineering lists.
type URLReputation interface {
	CheckURL(ctx context.Context, rawURL string) (ThreatVerdict, error)
}

// SanctionsMatch is the best hit of a sanctions-list search.
type SanctionsMatch struct {
	Matched bool
	Name    string
	List    string
	Score   float64
}

// SanctionsSearch queries a sanctions-list service by name and by address.
type SanctionsSearch interface {
	SearchName(ctx context.Context, name string) (SanctionsMatch, error)
	SearchAddress(ctx context.Context, address string) (SanctionsMatch, error)
}

// FileInfo is storage metadata for an object.
type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// FileStorage is the subset of object storage the audit check needs.
type FileStorage interface {
	Exists(ctx context.Context, bucket, path string) (bool, error)
	Stat(ctx context.Context, bucket, path string) (FileInfo, error)
	Download(ctx context.Context, bucket, path string) (io.ReadCloser, error)
}

// Validator runs validations and manual overrides for the admin API.
type Validator interface {
	Revalidate(ctx context.Context, projectID string) (domain.ProjectValidation, error)
	Get(ctx context.Context, projectID string) (domain.ProjectValidation, error)
	Override(ctx context.Context, projectID string, o domain.Override) (domain.ProjectValidation, error)
	Approval(ctx context.Context, projectID string) (domain.ApprovalDecision, error)
}

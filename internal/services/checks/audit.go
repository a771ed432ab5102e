package checks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

const (
	// MinAuditFileSize is the size below which an uploaded report is rejected.
	MinAuditFileSize int64 = 10 * 1024
	// BasicCheckMinSize is the size a PDF without a recognizable firm name
	// must reach to pass on the basic check.
	BasicCheckMinSize int64 = 500 * 1024

	DefaultAuditBucket = "audit-documents"
)

var pdfMagic = []byte("%PDF-")

// AuditChecker verifies the provenance of a project's security audit, either
// an uploaded document or an external report URL.
type AuditChecker struct {
	storage ports.FileStorage
	bucket  string
	links   *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

type AuditCheckerDeps struct {
	Storage ports.FileStorage
	Bucket  string
	// LinkClient issues the best-effort reachability request for report URLs; nil disables it.
	LinkClient  *http.Client
	CallTimeout time.Duration
	Logger      *zap.Logger
}

func NewAuditChecker(deps AuditCheckerDeps) *AuditChecker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bucket := deps.Bucket
	if bucket == "" {
		bucket = DefaultAuditBucket
	}
	return &AuditChecker{
		storage: deps.Storage,
		bucket:  bucket,
		links:   deps.LinkClient,
		timeout: deps.CallTimeout,
		logger:  logger.Named("audit-check"),
	}
}

func (c *AuditChecker) Kind() domain.CheckKind { return domain.CheckAudit }

func (c *AuditChecker) Check(ctx context.Context, p domain.Project) domain.ValidationResult {
	docPath := strings.TrimSpace(p.AuditDocumentPath)
	auditURL := strings.TrimSpace(p.AuditURL)
	switch {
	case docPath != "":
		return c.checkDocument(ctx, docPath)
	case auditURL != "":
		return c.checkURL(ctx, auditURL)
	default:
		return domain.ValidationResult{Passed: false, Details: "No audit document or URL provided"}
	}
}

func (c *AuditChecker) checkDocument(ctx context.Context, docPath string) domain.ValidationResult {
	var info ports.FileInfo
	fileName := path.Base(docPath)

	return pipeline{
		kind: domain.CheckAudit,
		sources: []Source{
			{Name: "document exists", Eval: func(ctx context.Context) Evidence {
				if c.storage == nil {
					return errored(errors.New("file storage not configured"))
				}
				ok, err := callWithTimeout(ctx, c.timeout, func(ctx context.Context) (bool, error) {
					return c.storage.Exists(ctx, c.bucket, docPath)
				})
				if err != nil {
					return errored(err)
				}
				if !ok {
					return failed("Audit document %s not found in storage", fileName)
				}
				return noEvidence()
			}},
			{Name: "document size", Eval: func(ctx context.Context) Evidence {
				var err error
				info, err = callWithTimeout(ctx, c.timeout, func(ctx context.Context) (ports.FileInfo, error) {
					return c.storage.Stat(ctx, c.bucket, docPath)
				})
				if err != nil {
					return errored(err)
				}
				if info.Size < MinAuditFileSize {
					return failed("Audit document is suspiciously small (%d bytes)", info.Size)
				}
				return noEvidence()
			}},
			{Name: "firm in filename", Eval: func(context.Context) Evidence {
				if firm, ok := firmInText(fileName); ok {
					return passed("Audit document issued by recognized security firm %s", firm.Name)
				}
				return noEvidence()
			}},
			{Name: "basic document check", Eval: func(ctx context.Context) Evidence {
				if info.Size < BasicCheckMinSize || !looksLikePDF(fileName, info.ContentType) {
					return noEvidence()
				}
				isPDF, err := c.hasPDFMagic(ctx, docPath)
				if err != nil {
					c.logger.Debug("audit document download failed", zap.String("path", docPath), zap.Error(err))
					return noEvidence()
				}
				if !isPDF {
					return noEvidence()
				}
				return passed("Audit document passed basic check (PDF, %d KB); issuing firm not identified", info.Size/1024)
			}},
		},
		fallback: domain.ValidationResult{
			Passed:  false,
			Details: "Could not verify the security firm; manual review recommended",
		},
		unableDetail: "Unable to verify audit document",
		logger:       c.logger,
	}.run(ctx)
}

func looksLikePDF(name, contentType string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf") || strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}

func (c *AuditChecker) hasPDFMagic(ctx context.Context, docPath string) (bool, error) {
	return callWithTimeout(ctx, c.timeout, func(ctx context.Context) (bool, error) {
		rc, err := c.storage.Download(ctx, c.bucket, docPath)
		if err != nil {
			return false, err
		}
		defer rc.Close()
		head := make([]byte, len(pdfMagic))
		if _, err := io.ReadFull(rc, head); err != nil {
			return false, nil
		}
		return bytes.Equal(head, pdfMagic), nil
	})
}

func (c *AuditChecker) checkURL(ctx context.Context, raw string) domain.ValidationResult {
	// Scheme-less links ("certik.com/projects/x") are normalized like project websites.
	s, err := parseSite(raw)
	if err != nil {
		return domain.ValidationResult{Passed: false, Details: "Audit URL is not a valid URL; manual verification required"}
	}
	host := strings.TrimPrefix(s.Host, "www.")
	link := s.URL.String()

	return pipeline{
		kind: domain.CheckAudit,
		sources: []Source{
			{Name: "firm in url", Eval: func(ctx context.Context) Evidence {
				firm, ok := firmInText(raw)
				if !ok {
					return noEvidence()
				}
				if !c.reachable(ctx, link) {
					return passed("Audit report from recognized security firm %s (link could not be reached)", firm.Name)
				}
				return passed("Audit report from recognized security firm %s", firm.Name)
			}},
			{Name: "firm domain", Eval: func(context.Context) Evidence {
				if firm, ok := firmForHost(host); ok {
					return passed("Audit report hosted on %s domain of %s", host, firm.Name)
				}
				return noEvidence()
			}},
			{Name: "sharing platform", Eval: func(context.Context) Evidence {
				for _, d := range sharingPlatforms {
					if hostMatches(host, d) {
						return failed("Audit report hosted on sharing platform %s, manual review recommended", d)
					}
				}
				return noEvidence()
			}},
		},
		fallback: domain.ValidationResult{
			Passed:  false,
			Details: fmt.Sprintf("Audit report at %s is not from a recognized security firm; manual verification required", host),
		},
		unableDetail: "Unable to verify audit URL",
		logger:       c.logger,
	}.run(ctx)
}

// reachable requests the report URL. An unreachable link never fails the check.
func (c *AuditChecker) reachable(ctx context.Context, raw string) bool {
	if c.links == nil {
		return true
	}
	ok, err := callWithTimeout(ctx, c.timeout, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
		if err != nil {
			return false, err
		}
		resp, err := c.links.Do(req)
		if err != nil {
			return false, err
		}
		resp.Body.Close()
		return resp.StatusCode < http.StatusBadRequest, nil
	})
	if err != nil {
		c.logger.Debug("audit url unreachable", zap.String("url", raw), zap.Error(err))
	}
	return ok
}

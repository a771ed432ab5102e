package checks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

func pdfFile(size int64, name string) fakeFile {
	content := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 64)...)
	return fakeFile{info: ports.FileInfo{Name: name, Size: size, ContentType: "application/pdf"}, content: content}
}

func TestAuditChecker_NothingProvided(t *testing.T) {
	c := NewAuditChecker(AuditCheckerDeps{})
	res := c.Check(context.Background(), domain.Project{Name: "x"})
	assert.False(t, res.Passed)
	assert.Equal(t, "No audit document or URL provided", res.Details)
}

func TestAuditChecker_Document(t *testing.T) {
	storage := &fakeStorage{files: map[string]fakeFile{
		"audit-documents/p1/CertiK_Audit_Report.pdf": pdfFile(2<<20, "CertiK_Audit_Report.pdf"),
		"audit-documents/p1/trail-of-bits-2025.pdf":  pdfFile(80*1024, "trail-of-bits-2025.pdf"),
		"audit-documents/p1/tiny.pdf":                pdfFile(2048, "tiny.pdf"),
		"audit-documents/p1/security-review.pdf":     pdfFile(1<<20, "security-review.pdf"),
		"audit-documents/p1/report-final.pdf":        pdfFile(64*1024, "report-final.pdf"),
		"audit-documents/p1/fake.pdf": {
			info:    ports.FileInfo{Size: 1 << 20, ContentType: "application/pdf"},
			content: []byte("<html>not a pdf</html>"),
		},
	}}

	tests := []struct {
		path        string
		wantPassed  bool
		wantDetails string
	}{
		{"p1/CertiK_Audit_Report.pdf", true, "CertiK"},
		{"p1/trail-of-bits-2025.pdf", true, "Trail of Bits"},
		{"p1/missing.pdf", false, "not found"},
		{"p1/tiny.pdf", false, "suspiciously small"},
		{"p1/security-review.pdf", true, "basic check"},
		{"p1/report-final.pdf", false, "manual review recommended"},
		{"p1/fake.pdf", false, "manual review recommended"},
	}

	c := NewAuditChecker(AuditCheckerDeps{Storage: storage})
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := c.Check(context.Background(), domain.Project{AuditDocumentPath: tt.path})
			assert.Equal(t, tt.wantPassed, res.Passed, res.Details)
			assert.Contains(t, res.Details, tt.wantDetails)
		})
	}
}

func TestAuditChecker_DocumentTakesPrecedenceOverURL(t *testing.T) {
	c := NewAuditChecker(AuditCheckerDeps{Storage: &fakeStorage{}})
	res := c.Check(context.Background(), domain.Project{
		AuditDocumentPath: "p1/missing.pdf",
		AuditURL:          "https://certik.com/projects/example",
	})
	assert.False(t, res.Passed)
	assert.Contains(t, res.Details, "not found")
}

func TestAuditChecker_StorageErrorIsUnableToVerify(t *testing.T) {
	c := NewAuditChecker(AuditCheckerDeps{Storage: &fakeStorage{err: errors.New("502 bad gateway")}})
	res := c.Check(context.Background(), domain.Project{AuditDocumentPath: "p1/report.pdf"})
	assert.False(t, res.Passed)
	assert.Contains(t, res.Details, "Unable to verify audit document")
}

func TestAuditChecker_URL(t *testing.T) {
	tests := []struct {
		url         string
		wantPassed  bool
		wantDetails string
	}{
		{"https://certik.com/projects/example", true, "certik"},
		{"https://skynet.certik.com/projects/example", true, "certik"},
		{"certik.com/projects/example", true, "certik"},
		{"www.certik.com/projects/example", true, "certik"},
		{"drive.google.com/file/d/abc/view", false, "sharing platform"},
		{"https://github.com/hacken-io/reports/blob/main/audit.pdf", true, "hacken"},
		{"https://github.com/acme/audits/blob/main/audit.pdf", false, "sharing platform github.com"},
		{"https://drive.google.com/file/d/abc/view", false, "sharing platform"},
		{"https://ipfs.io/ipfs/QmXyz", false, "sharing platform"},
		{"https://acme-security.dev/report/123", false, "not from a recognized security firm"},
		{"::not a url", false, "not a valid URL"},
	}

	c := NewAuditChecker(AuditCheckerDeps{})
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			res := c.Check(context.Background(), domain.Project{AuditURL: tt.url})
			assert.Equal(t, tt.wantPassed, res.Passed, res.Details)
			assert.Contains(t, strings.ToLower(res.Details), strings.ToLower(tt.wantDetails))
		})
	}
}

func TestAuditChecker_UnreachableURLStillPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewAuditChecker(AuditCheckerDeps{LinkClient: srv.Client()})
	res := c.Check(context.Background(), domain.Project{AuditURL: srv.URL + "/reports/quantstamp-2025.pdf"})
	assert.True(t, res.Passed)
	assert.Contains(t, res.Details, "Quantstamp")
	assert.Contains(t, res.Details, "could not be reached")
}

func TestAuditChecker_Idempotent(t *testing.T) {
	storage := &fakeStorage{files: map[string]fakeFile{"audit-documents/p/x.pdf": pdfFile(64*1024, "x.pdf")}}
	c := NewAuditChecker(AuditCheckerDeps{Storage: storage})
	p := domain.Project{AuditDocumentPath: "p/x.pdf"}
	assert.Equal(t, c.Check(context.Background(), p), c.Check(context.Background(), p))
}

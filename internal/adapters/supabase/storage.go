// Package supabase reads audit documents from Supabase Storage.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/metrics"
	"rwadirectory/internal/ports"
	"rwadirectory/internal/retry"
)

// Config configures the storage client.
type Config struct {
	ProjectURL string
	// APIKey is sent both as the apikey header and as a bearer token.
	APIKey     string
	HTTPClient *http.Client
	Retry      *retry.Config
	Logger     *zap.Logger
}

// Storage is a ports.FileStorage backed by the Supabase Storage REST API.
type Storage struct {
	prefix string
	apiKey string
	http   *http.Client
	retry  *retry.Config
	logger *zap.Logger
}

var _ ports.FileStorage = (*Storage)(nil)

func New(cfg Config) (*Storage, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		prefix: strings.TrimRight(cfg.ProjectURL, "/") + "/storage/v1",
		apiKey: cfg.APIKey,
		http:   httpClient,
		retry:  cfg.Retry,
		logger: logger.Named("supabase-storage"),
	}, nil
}

// Exists reports whether bucket/objectPath is present.
func (s *Storage) Exists(ctx context.Context, bucket, objectPath string) (bool, error) {
	_, found, err := s.find(ctx, bucket, objectPath)
	return found, err
}

// Stat returns object metadata or an error wrapping domain.ErrNotFound.
func (s *Storage) Stat(ctx context.Context, bucket, objectPath string) (ports.FileInfo, error) {
	info, found, err := s.find(ctx, bucket, objectPath)
	if err != nil {
		return ports.FileInfo{}, err
	}
	if !found {
		return ports.FileInfo{}, fmt.Errorf("%s/%s: %w", bucket, objectPath, domain.ErrNotFound)
	}
	return info, nil
}

// listPageSize is the page size used when listing a folder.
const listPageSize = 100

// find lists the object's folder filtered by its file name. The list API
// matches by prefix, so pages are walked until the exact name shows up.
func (s *Storage) find(ctx context.Context, bucket, objectPath string) (ports.FileInfo, bool, error) {
	dir, name := path.Split(strings.TrimPrefix(objectPath, "/"))
	endpoint := s.prefix + "/object/list/" + url.PathEscape(bucket)

	for offset := 0; ; offset += listPageSize {
		body, err := json.Marshal(map[string]any{
			"prefix": strings.TrimSuffix(dir, "/"),
			"search": name,
			"limit":  listPageSize,
			"offset": offset,
		})
		if err != nil {
			return ports.FileInfo{}, false, err
		}
		data, err := s.send(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			return ports.FileInfo{}, false, err
		}

		list := gjson.ParseBytes(data)
		if !list.IsArray() {
			return ports.FileInfo{}, false, fmt.Errorf("%w: storage list returned an unexpected payload", ports.ErrServiceUnavailable)
		}
		if info, ok := matchObject(list, name); ok {
			return info, true, nil
		}
		if len(list.Array()) < listPageSize {
			return ports.FileInfo{}, false, nil
		}
	}
}

func matchObject(list gjson.Result, name string) (ports.FileInfo, bool) {
	var (
		info  ports.FileInfo
		found bool
	)
	list.ForEach(func(_, obj gjson.Result) bool {
		if obj.Get("name").String() != name || !obj.Get("id").Exists() {
			return true
		}
		found = true
		info = ports.FileInfo{
			Name:        name,
			Size:        obj.Get("metadata.size").Int(),
			ContentType: obj.Get("metadata.mimetype").String(),
		}
		if ts, err := time.Parse(time.RFC3339Nano, obj.Get("updated_at").String()); err == nil {
			info.UpdatedAt = ts
		}
		return false
	})
	return info, found
}

// Download streams the object content. The caller closes the reader.
func (s *Storage) Download(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	endpoint := s.prefix + "/object/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		metrics.RecordReferenceCall("supabase", "unavailable")
		return nil, fmt.Errorf("%w: download %s/%s: %v", ports.ErrServiceUnavailable, bucket, objectPath, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		resp.Body.Close()
		metrics.RecordReferenceCall("supabase", "ok")
		return nil, fmt.Errorf("%s/%s: %w", bucket, objectPath, domain.ErrNotFound)
	case resp.StatusCode >= http.StatusMultipleChoices:
		resp.Body.Close()
		metrics.RecordReferenceCall("supabase", "unavailable")
		return nil, fmt.Errorf("%w: download %s/%s: status %d", ports.ErrServiceUnavailable, bucket, objectPath, resp.StatusCode)
	}
	metrics.RecordReferenceCall("supabase", "ok")
	return resp.Body, nil
}

func (s *Storage) send(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	data, err := retry.Do(ctx, s.retry, func() ([]byte, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		s.authorize(req)
		resp, err := s.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, retry.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, gjson.GetBytes(data, "message").String()))
		}
		return data, nil
	})
	if err != nil {
		metrics.RecordReferenceCall("supabase", "unavailable")
		s.logger.Debug("storage call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: supabase storage: %v", ports.ErrServiceUnavailable, err)
	}
	metrics.RecordReferenceCall("supabase", "ok")
	return data, nil
}

func (s *Storage) authorize(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

package reference

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"rwadirectory/internal/ports"
)

// DefaultMinScore is the fuzzy-match score at which a hit counts as a match.
const DefaultMinScore = 0.85

// SanctionsAPI queries a sanctions-list screening service exposing
// /search/name and /search/address endpoints. Results are ordered by score:
//
//	{"results": [{"name": "...", "score": 0.97, "source_list": "SDN"}]}
type SanctionsAPI struct {
	base     clientBase
	baseURL  string
	apiKey   string
	minScore float64
}

var _ ports.SanctionsSearch = (*SanctionsAPI)(nil)

func NewSanctionsAPI(baseURL, apiKey string, minScore float64, opts Options) *SanctionsAPI {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &SanctionsAPI{
		base:     newClientBase("sanctions", opts),
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		minScore: minScore,
	}
}

func (s *SanctionsAPI) SearchName(ctx context.Context, name string) (ports.SanctionsMatch, error) {
	return s.search(ctx, "name", name)
}

func (s *SanctionsAPI) SearchAddress(ctx context.Context, address string) (ports.SanctionsMatch, error) {
	return s.search(ctx, "address", address)
}

func (s *SanctionsAPI) search(ctx context.Context, kind, query string) (ports.SanctionsMatch, error) {
	if s.apiKey == "" || s.baseURL == "" {
		return ports.SanctionsMatch{}, missingCredentials(s.base.service)
	}
	endpoint := fmt.Sprintf("%s/search/%s?%s", s.baseURL, kind, url.Values{
		"q":         {query},
		"min_score": {fmt.Sprintf("%.2f", s.minScore)},
	}.Encode())

	body, err := s.base.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		return req, nil
	})
	if err != nil {
		return ports.SanctionsMatch{}, err
	}

	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return ports.SanctionsMatch{}, unexpectedPayload(s.base.service)
	}
	top := results.Get("0")
	if !top.Exists() || top.Get("score").Float() < s.minScore {
		return ports.SanctionsMatch{}, nil
	}
	return ports.SanctionsMatch{
		Matched: true,
		Name:    top.Get("name").String(),
		List:    top.Get("source_list").String(),
		Score:   top.Get("score").Float(),
	}, nil
}

func unexpectedPayload(service string) error {
	return fmt.Errorf("%w: %s returned an unexpected payload", ports.ErrServiceUnavailable, service)
}

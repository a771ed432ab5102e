package reference

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"rwadirectory/internal/ports"
)

const DefaultSafeBrowsingURL = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

var threatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}

// SafeBrowsing matches URLs with the Google Safe Browsing v4 Lookup API.
type SafeBrowsing struct {
	base     clientBase
	endpoint string
	apiKey   string
}

var _ ports.URLReputation = (*SafeBrowsing)(nil)

func NewSafeBrowsing(endpoint, apiKey string, opts Options) *SafeBrowsing {
	if endpoint == "" {
		endpoint = DefaultSafeBrowsingURL
	}
	return &SafeBrowsing{base: newClientBase("safebrowsing", opts), endpoint: endpoint, apiKey: apiKey}
}

type sbThreatEntry struct {
	URL string `json:"url"`
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string        `json:"threatTypes"`
		PlatformTypes    []string        `json:"platformTypes"`
		ThreatEntryTypes []string        `json:"threatEntryTypes"`
		ThreatEntries    []sbThreatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

func (s *SafeBrowsing) CheckURL(ctx context.Context, rawURL string) (ports.ThreatVerdict, error) {
	if s.apiKey == "" {
		return ports.ThreatVerdict{}, missingCredentials(s.base.service)
	}
	var payload sbRequest
	payload.Client.ClientID = "rwa-directory"
	payload.Client.ClientVersion = "1.0"
	payload.ThreatInfo.ThreatTypes = threatTypes
	payload.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	payload.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	payload.ThreatInfo.ThreatEntries = []sbThreatEntry{{URL: rawURL}}
	data, err := json.Marshal(payload)
	if err != nil {
		return ports.ThreatVerdict{}, err
	}

	endpoint := s.endpoint + "?key=" + url.QueryEscape(s.apiKey)
	body, err := s.base.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return ports.ThreatVerdict{}, err
	}

	// An empty object means no match.
	match := gjson.GetBytes(body, "matches.0")
	if !match.Exists() {
		return ports.ThreatVerdict{}, nil
	}
	return ports.ThreatVerdict{Matched: true, ThreatType: match.Get("threatType").String()}, nil
}

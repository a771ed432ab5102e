package reference

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"rwadirectory/internal/ports"
)

const DefaultPhishTankURL = "https://checkurl.phishtank.com/checkurl/"

// PhishTank looks domains up in the PhishTank known-phishing database.
type PhishTank struct {
	base     clientBase
	endpoint string
	appKey   string
}

var _ ports.PhishingLookup = (*PhishTank)(nil)

func NewPhishTank(endpoint, appKey string, opts Options) *PhishTank {
	if endpoint == "" {
		endpoint = DefaultPhishTankURL
	}
	return &PhishTank{base: newClientBase("phishtank", opts), endpoint: endpoint, appKey: appKey}
}

func (p *PhishTank) LookupDomain(ctx context.Context, domain string) (ports.PhishingVerdict, error) {
	if p.appKey == "" {
		return ports.PhishingVerdict{}, missingCredentials(p.base.service)
	}
	form := url.Values{
		"url":     {"https://" + domain + "/"},
		"format":  {"json"},
		"app_key": {p.appKey},
	}
	body, err := p.base.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", "phishtank/rwa-directory")
		return req, nil
	})
	if err != nil {
		return ports.PhishingVerdict{}, err
	}

	res := gjson.GetBytes(body, "results")
	if !res.Exists() {
		return ports.PhishingVerdict{}, unexpectedPayload(p.base.service)
	}
	listed := res.Get("in_database").Bool() && res.Get("valid").Bool()
	return ports.PhishingVerdict{Listed: listed, PhishID: res.Get("phish_id").String()}, nil
}

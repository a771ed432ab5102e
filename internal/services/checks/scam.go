package checks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

// ScamChecker looks for phishing listings, malicious-URL matches, scam
// marketing language and implausible returns.
type ScamChecker struct {
	phishing   ports.PhishingLookup
	reputation ports.URLReputation
	phrases    []phrasePattern
	maxROI     float64
	timeout    time.Duration
	logger     *zap.Logger
}

// ScamCheckerDeps contains dependencies for ScamChecker. Nil services are
// treated as unavailable.
type ScamCheckerDeps struct {
	Phishing    ports.PhishingLookup
	Reputation  ports.URLReputation
	CallTimeout time.Duration
	Logger      *zap.Logger
}

func NewScamChecker(deps ScamCheckerDeps) *ScamChecker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScamChecker{
		phishing:   deps.Phishing,
		reputation: deps.Reputation,
		phrases:    compilePhrases(scamPhrases),
		maxROI:     MaxPlausibleROI,
		timeout:    deps.CallTimeout,
		logger:     logger.Named("scam-check"),
	}
}

func (c *ScamChecker) Kind() domain.CheckKind { return domain.CheckScam }

func (c *ScamChecker) Check(ctx context.Context, p domain.Project) domain.ValidationResult {
	s, siteErr := parseSite(p.Website)
	if siteErr != nil && p.Website != "" {
		c.logger.Debug("website not parseable, skipping domain lookups",
			zap.String("project_id", p.ID), zap.Error(siteErr))
	}
	hasSite := siteErr == nil
	text := p.Name + " " + p.Description

	return pipeline{
		kind: domain.CheckScam,
		sources: []Source{
			{Name: "phishing database", Eval: func(ctx context.Context) Evidence {
				if !hasSite {
					return noEvidence()
				}
				if c.phishing == nil {
					return unavailable(nil)
				}
				v, err := callWithTimeout(ctx, c.timeout, func(ctx context.Context) (ports.PhishingVerdict, error) {
					return c.phishing.LookupDomain(ctx, s.Registrable)
				})
				if err != nil {
					return unavailable(err)
				}
				if v.Listed {
					return failed("Website domain %s is listed as a known phishing site (phish id %s)", s.Registrable, v.PhishID)
				}
				return noEvidence()
			}},
			{Name: "URL reputation service", Eval: func(ctx context.Context) Evidence {
				if !hasSite {
					return noEvidence()
				}
				if c.reputation == nil {
					return unavailable(nil)
				}
				v, err := callWithTimeout(ctx, c.timeout, func(ctx context.Context) (ports.ThreatVerdict, error) {
					return c.reputation.CheckURL(ctx, s.URL.String())
				})
				if err != nil {
					return unavailable(err)
				}
				if v.Matched {
					return failed("Website flagged by URL reputation service as %s", v.ThreatType)
				}
				return noEvidence()
			}},
			{Name: "scam phrases", Eval: func(context.Context) Evidence {
				for _, pp := range c.phrases {
					if pp.re.MatchString(text) {
						return failed("Suspicious marketing phrase detected: %q", pp.phrase)
					}
				}
				return noEvidence()
			}},
			{Name: "roi threshold", Eval: func(context.Context) Evidence {
				if p.ROI != nil && *p.ROI > c.maxROI {
					return failed("Unrealistic ROI of %s%% exceeds the %s%% threshold", formatPercent(*p.ROI), formatPercent(c.maxROI))
				}
				return noEvidence()
			}},
		},
		fallback:     domain.ValidationResult{Passed: true, Details: "No suspicious patterns detected"},
		unableDetail: "Unable to verify project safety",
		logger:       c.logger,
	}.run(ctx)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%g", v)
}

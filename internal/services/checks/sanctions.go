package checks

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"rwadirectory/internal/domain"
	"rwadirectory/internal/ports"
)

// SanctionsChecker screens a project against sanctions lists, sanctioned
// jurisdictions and prohibited topics.
type SanctionsChecker struct {
	search  ports.SanctionsSearch
	timeout time.Duration
	logger  *zap.Logger
}

type SanctionsCheckerDeps struct {
	Search      ports.SanctionsSearch // optional
	CallTimeout time.Duration
	Logger      *zap.Logger
}

func NewSanctionsChecker(deps SanctionsCheckerDeps) *SanctionsChecker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SanctionsChecker{
		search:  deps.Search,
		timeout: deps.CallTimeout,
		logger:  logger.Named("sanctions-check"),
	}
}

func (c *SanctionsChecker) Kind() domain.CheckKind { return domain.CheckSanctions }

func (c *SanctionsChecker) Check(ctx context.Context, p domain.Project) domain.ValidationResult {
	s, siteErr := parseSite(p.Website)
	hasSite := siteErr == nil
	text := strings.ToLower(p.Name + " " + p.Description)

	return pipeline{
		kind: domain.CheckSanctions,
		sources: []Source{
			{Name: "sanctions name search", Eval: func(ctx context.Context) Evidence {
				if strings.TrimSpace(p.Name) == "" {
					return noEvidence()
				}
				if c.search == nil {
					return unavailable(nil)
				}
				m, err := callWithTimeout(ctx, c.timeout, func(ctx context.Context) (ports.SanctionsMatch, error) {
					return c.search.SearchName(ctx, p.Name)
				})
				if err != nil {
					return unavailable(err)
				}
				if m.Matched {
					return failed("Project name matches sanctioned entity %q%s", m.Name, listSuffix(m.List))
				}
				return noEvidence()
			}},
			{Name: "sanctions address search", Eval: func(ctx context.Context) Evidence {
				if !hasSite {
					return noEvidence()
				}
				if c.search == nil {
					return unavailable(nil)
				}
				m, err := callWithTimeout(ctx, c.timeout, func(ctx context.Context) (ports.SanctionsMatch, error) {
					return c.search.SearchAddress(ctx, s.Registrable)
				})
				if err != nil {
					return unavailable(err)
				}
				if m.Matched {
					return failed("Website domain %s matches sanctioned entity %q%s", s.Registrable, m.Name, listSuffix(m.List))
				}
				return noEvidence()
			}},
			{Name: "sanctioned country domain", Eval: func(context.Context) Evidence {
				if !hasSite {
					return noEvidence()
				}
				if country, ok := sanctionedTLDs[s.TLD]; ok {
					return failed("Website uses the .%s domain of sanctioned country %s", s.TLD, country)
				}
				return noEvidence()
			}},
			{Name: "high-risk domain patterns", Eval: func(context.Context) Evidence {
				if !hasSite {
					return noEvidence()
				}
				for _, dp := range highRiskDomainPatterns {
					if dp.re.MatchString(s.Host) {
						return failed("Website domain %s references high-risk region %q", s.Host, dp.label)
					}
				}
				return noEvidence()
			}},
			{Name: "sanctioned terms", Eval: func(context.Context) Evidence {
				for _, term := range sanctionedTerms {
					if strings.Contains(text, term) {
						return failed("Project mentions sanctioned entity or prohibited topic %q", term)
					}
				}
				return noEvidence()
			}},
		},
		fallback:     domain.ValidationResult{Passed: true, Details: "No sanctions concerns detected"},
		unableDetail: "Unable to verify sanctions status",
		logger:       c.logger,
	}.run(ctx)
}

func listSuffix(list string) string {
	if list == "" {
		return ""
	}
	return " (" + list + ")"
}

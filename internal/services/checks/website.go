package checks

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var errNoHost = errors.New("url has no host")

// site is a parsed project website.
type site struct {
	URL         *url.URL
	Host        string
	Registrable string // eTLD+1, falls back to Host
	TLD         string // last label of Host
}

func parseSite(raw string) (site, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return site{}, errNoHost
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return site{}, err
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || strings.ContainsAny(host, " _") {
		return site{}, errNoHost
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	tld := host
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		tld = host[i+1:]
	}
	return site{URL: u, Host: host, Registrable: registrable, TLD: tld}, nil
}

// hostMatches reports whether host is domain or one of its subdomains.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

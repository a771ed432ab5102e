package checks

import (
	"regexp"
	"strings"
)

// Reference data for the heuristic sources. Lists are matched case-insensitively.

var scamPhrases = []string{
	"guaranteed returns",
	"guaranteed return",
	"guaranteed profit",
	"guaranteed profits",
	"guaranteed income",
	"risk-free",
	"risk free",
	"zero risk",
	"no risk",
	"double your investment",
	"double your money",
	"triple your investment",
	"get rich quick",
	"100% safe",
	"instant profit",
	"instant profits",
	"high yield investment program",
	"hyip",
	"ponzi",
	"pyramid scheme",
	"multi-level marketing",
	"recruit your friends",
	"limited time offer",
	"act now",
	"cannot lose",
	"can't lose",
}

// MaxPlausibleROI is the annual ROI percentage above which a project is flagged.
const MaxPlausibleROI = 30.0

type phrasePattern struct {
	phrase string
	re     *regexp.Regexp
}

// compilePhrases builds whole-word, case-insensitive matchers. Boundaries are
// only asserted next to word characters so phrases like "100% safe" still match.
func compilePhrases(phrases []string) []phrasePattern {
	out := make([]phrasePattern, 0, len(phrases))
	for _, p := range phrases {
		body := strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
		var b strings.Builder
		b.WriteString(`(?i)`)
		if isWordByte(p[0]) {
			b.WriteString(`\b`)
		}
		b.WriteString(body)
		if isWordByte(p[len(p)-1]) {
			b.WriteString(`\b`)
		}
		out = append(out, phrasePattern{phrase: p, re: regexp.MustCompile(b.String())})
	}
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// sanctionedTLDs maps country-code TLDs of sanctioned jurisdictions to country names.
var sanctionedTLDs = map[string]string{
	"ir": "Iran",
	"kp": "North Korea",
	"cu": "Cuba",
	"sy": "Syria",
	"ru": "Russia",
	"by": "Belarus",
	"ve": "Venezuela",
	"mm": "Myanmar",
}

type domainPattern struct {
	label string
	re    *regexp.Regexp
}

func labelled(label, expr string) domainPattern {
	return domainPattern{label: label, re: regexp.MustCompile(`(?i)` + expr)}
}

// highRiskDomainPatterns match country and region names inside a domain.
// Short names are anchored on label separators.
var highRiskDomainPatterns = []domainPattern{
	labelled("iran", `(^|[.-])iran([.-]|$)`),
	labelled("tehran", `tehran`),
	labelled("syria", `(^|[.-])syria([.-]|$)`),
	labelled("damascus", `damascus`),
	labelled("cuba", `(^|[.-])cuba([.-]|$)`),
	labelled("havana", `havana`),
	labelled("north korea", `north-?korea|nkorea|dprk`),
	labelled("pyongyang", `pyongyang`),
	labelled("crimea", `crimea|krym`),
	labelled("donetsk", `donetsk|donbas`),
	labelled("luhansk", `luhansk|lugansk`),
	labelled("belarus", `belarus`),
	labelled("myanmar", `myanmar`),
}

// sanctionedTerms are sanctioned organizations, embargoed regions and
// prohibited topics matched as substrings of the project's name and description.
var sanctionedTerms = []string{
	"north korea",
	"dprk",
	"pyongyang",
	"crimea",
	"donetsk",
	"luhansk",
	"hezbollah",
	"islamic state",
	"al-qaeda",
	"al qaeda",
	"taliban",
	"wagner group",
	"lazarus group",
	"tornado cash",
	"garantex",
	"hydra market",
	"sanctions evasion",
	"evade sanctions",
	"bypass sanctions",
	"avoid sanctions",
	"sanction-free",
	"embargoed",
	"irgc",
}

// AuditFirm is a recognized blockchain security-audit brand.
type AuditFirm struct {
	Name    string
	Tokens  []string // normalized (lowercase alphanumerics only)
	Domains []string
}

var recognizedFirms = []AuditFirm{
	{Name: "CertiK", Tokens: []string{"certik"}, Domains: []string{"certik.com", "certik.io"}},
	{Name: "Hacken", Tokens: []string{"hacken"}, Domains: []string{"hacken.io"}},
	{Name: "Quantstamp", Tokens: []string{"quantstamp"}, Domains: []string{"quantstamp.com"}},
	{Name: "Trail of Bits", Tokens: []string{"trailofbits"}, Domains: []string{"trailofbits.com"}},
	{Name: "OpenZeppelin", Tokens: []string{"openzeppelin"}, Domains: []string{"openzeppelin.com"}},
	{Name: "ConsenSys Diligence", Tokens: []string{"consensysdiligence", "consensys"}, Domains: []string{"consensys.io", "consensys.net"}},
	{Name: "PeckShield", Tokens: []string{"peckshield"}, Domains: []string{"peckshield.com"}},
	{Name: "SlowMist", Tokens: []string{"slowmist"}, Domains: []string{"slowmist.com", "slowmist.io"}},
	{Name: "Halborn", Tokens: []string{"halborn"}, Domains: []string{"halborn.com"}},
	{Name: "ChainSecurity", Tokens: []string{"chainsecurity"}, Domains: []string{"chainsecurity.com"}},
	{Name: "Least Authority", Tokens: []string{"leastauthority"}, Domains: []string{"leastauthority.com"}},
	{Name: "Runtime Verification", Tokens: []string{"runtimeverification"}, Domains: []string{"runtimeverification.com"}},
	{Name: "Sigma Prime", Tokens: []string{"sigmaprime"}, Domains: []string{"sigmaprime.io"}},
	{Name: "Zokyo", Tokens: []string{"zokyo"}, Domains: []string{"zokyo.io"}},
	{Name: "SolidProof", Tokens: []string{"solidproof"}, Domains: []string{"solidproof.io"}},
	{Name: "Cyberscope", Tokens: []string{"cyberscope"}, Domains: []string{"cyberscope.io"}},
	{Name: "Beosin", Tokens: []string{"beosin"}, Domains: []string{"beosin.com"}},
	{Name: "Code4rena", Tokens: []string{"code4rena"}, Domains: []string{"code4rena.com"}},
	{Name: "Sherlock", Tokens: []string{"sherlock"}, Domains: []string{"sherlock.xyz"}},
	{Name: "Spearbit", Tokens: []string{"spearbit"}, Domains: []string{"spearbit.com"}},
	{Name: "Zellic", Tokens: []string{"zellic"}, Domains: []string{"zellic.io"}},
	{Name: "Hashlock", Tokens: []string{"hashlock"}, Domains: []string{"hashlock.com"}},
	{Name: "Omniscia", Tokens: []string{"omniscia"}, Domains: []string{"omniscia.io"}},
	{Name: "Veridise", Tokens: []string{"veridise"}, Domains: []string{"veridise.com"}},
	{Name: "Dedaub", Tokens: []string{"dedaub"}, Domains: []string{"dedaub.com"}},
	{Name: "Nethermind", Tokens: []string{"nethermind"}, Domains: []string{"nethermind.io"}},
	{Name: "BlockSec", Tokens: []string{"blocksec"}, Domains: []string{"blocksec.com"}},
}

// sharingPlatforms host arbitrary user documents, so authorship cannot be attributed.
var sharingPlatforms = []string{
	"github.com",
	"raw.githubusercontent.com",
	"gitlab.com",
	"bitbucket.org",
	"gitbook.io",
	"docs.google.com",
	"drive.google.com",
	"dropbox.com",
	"onedrive.live.com",
	"ipfs.io",
	"cloudflare-ipfs.com",
	"pinata.cloud",
	"notion.site",
	"notion.so",
	"medium.com",
	"scribd.com",
	"mega.nz",
	"wetransfer.com",
}

// normalizeToken lowercases s and drops everything but letters and digits so
// "Trail_of-Bits" and "trailofbits" compare equal.
func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firmInText(text string) (AuditFirm, bool) {
	norm := normalizeToken(text)
	for _, f := range recognizedFirms {
		for _, tok := range f.Tokens {
			if strings.Contains(norm, tok) {
				return f, true
			}
		}
	}
	return AuditFirm{}, false
}

func firmForHost(host string) (AuditFirm, bool) {
	for _, f := range recognizedFirms {
		for _, d := range f.Domains {
			if hostMatches(host, d) {
				return f, true
			}
		}
	}
	return AuditFirm{}, false
}

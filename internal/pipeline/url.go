package pipeline

import (
	"net/url"
	"strings"
)

// Verdict is the validation outcome for one input line.
type Verdict struct {
	Original   string `json:"original"`
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Hostnames that are placeholders rather than real destinations.
var placeholderHosts = map[string]struct{}{
	"localhost":   {},
	"invalid-url": {},
	"example.com": {},
	"test.com":    {},
}

const maxURLLength = 2048

// ParseLines splits raw multi-line input into trimmed, non-blank lines.
func ParseLines(raw string) []string {
	if raw == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ValidateURL checks a single raw URL and returns its verdict. The normalized
// form is the canonical re-serialization: https scheme prepended when absent,
// scheme and host lowercased, and an explicit "/" path when the input had none.
// Fully deterministic, no network access.
func ValidateURL(raw string) Verdict {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Verdict{Original: raw, Reason: "url is empty"}
	}

	withScheme := trimmed
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		withScheme = "https://" + trimmed
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return Verdict{Original: raw, Reason: "not a parseable url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Verdict{Original: raw, Reason: "only http/https allowed"}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Verdict{Original: raw, Reason: "missing hostname"}
	}
	if _, bad := placeholderHosts[host]; bad ||
		strings.Contains(host, "invalid") || strings.Contains(host, "example") {
		return Verdict{Original: raw, Reason: "placeholder hostname: " + host}
	}
	if !strings.Contains(host, ".") {
		return Verdict{Original: raw, Reason: "hostname has no dot: " + host}
	}
	if tld := host[strings.LastIndex(host, ".")+1:]; len(tld) < 2 {
		return Verdict{Original: raw, Reason: "top-level label under 2 characters"}
	}
	if len(withScheme) > maxURLLength {
		return Verdict{Original: raw, Reason: "url exceeds 2048 characters"}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return Verdict{Original: raw, Valid: true, Normalized: u.String()}
}

// ValidateLines runs ValidateURL on every non-blank line of raw input. When
// allowedDomains is non-empty, accepted URLs outside the allow-list are
// re-marked invalid.
func ValidateLines(raw string, allowedDomains []string) []Verdict {
	lines := ParseLines(raw)
	verdicts := make([]Verdict, 0, len(lines))
	for _, line := range lines {
		v := ValidateURL(line)
		if v.Valid && !AllowedDomain(v.Normalized, allowedDomains) {
			v = Verdict{Original: line, Reason: "domain not allowed"}
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// AcceptedURLs deduplicates valid verdicts by normalized form, preserving
// first-occurrence order.
func AcceptedURLs(verdicts []Verdict) []string {
	seen := make(map[string]struct{}, len(verdicts))
	var urls []string
	for _, v := range verdicts {
		if !v.Valid {
			continue
		}
		if _, dup := seen[v.Normalized]; dup {
			continue
		}
		seen[v.Normalized] = struct{}{}
		urls = append(urls, v.Normalized)
	}
	return urls
}

// AllowedDomain reports whether the URL's host matches the allow-list. An
// empty list allows everything. Entries match exactly or, with a "*." prefix,
// the bare suffix and any subdomain of it.
func AllowedDomain(normalized string, allowedDomains []string) bool {
	if len(allowedDomains) == 0 {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if suffix, ok := strings.CutPrefix(domain, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == domain {
			return true
		}
	}
	return false
}

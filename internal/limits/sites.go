package limits

import (
	"net/url"
	"strings"
)

// SiteMatcher pairs a site id with its normalized domain set.
type SiteMatcher struct {
	ID      string
	Domains []string
}

// NormalizeDomain lowercases a configured domain and strips a leading
// "*." or "." wildcard prefix. Returns "" for an unusable value.
func NormalizeDomain(raw string) string {
	domain := strings.ToLower(strings.TrimSpace(raw))
	domain = strings.TrimPrefix(domain, "*.")
	domain = strings.TrimPrefix(domain, ".")
	return domain
}

// CompileMatchers builds the matcher list from site configuration,
// keeping only enabled sites with at least one usable domain. Matcher
// order follows configuration order; resolution is first-match-wins, so
// overlapping domains across sites must be guarded against upstream.
func CompileMatchers(sites []SiteConfig) []SiteMatcher {
	matchers := make([]SiteMatcher, 0, len(sites))

	for _, site := range sites {
		if !site.Enabled {
			continue
		}

		domains := make([]string, 0, len(site.Domains))
		for _, raw := range site.Domains {
			if domain := NormalizeDomain(raw); domain != "" {
				domains = append(domains, domain)
			}
		}
		if len(domains) == 0 {
			continue
		}

		matchers = append(matchers, SiteMatcher{ID: site.ID, Domains: domains})
	}

	return matchers
}

// hostMatches reports whether hostname equals domain or is one of its
// subdomains.
func hostMatches(hostname, domain string) bool {
	return hostname == domain || strings.HasSuffix(hostname, "."+domain)
}

// ResolveURL maps a URL to the first matcher whose domain set covers its
// hostname. Matching is case-insensitive, exact-or-subdomain only.
// Malformed URLs resolve to nil, never an error.
func ResolveURL(raw string, matchers []SiteMatcher) *SiteMatcher {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return nil
	}

	return ResolveHost(hostname, matchers)
}

// ResolveHost is ResolveURL for an already-extracted hostname.
func ResolveHost(hostname string, matchers []SiteMatcher) *SiteMatcher {
	hostname = strings.ToLower(hostname)

	for i := range matchers {
		for _, domain := range matchers[i].Domains {
			if hostMatches(hostname, domain) {
				return &matchers[i]
			}
		}
	}

	return nil
}

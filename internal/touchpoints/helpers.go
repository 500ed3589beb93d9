package touchpoints

import (
	"net/url"
	"strings"
)

// landingHost returns the hostname of the landing page, used to ignore
// self-referrals.
func landingHost(landingURL string) string {
	if landingURL == "" {
		return ""
	}
	parsed, err := url.Parse(landingURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// SiteHost reduces a configured domain, with or without a scheme, to its
// hostname.
func SiteHost(domain string) string {
	domain = strings.TrimSpace(domain)
	if strings.Contains(domain, "://") {
		return strings.ToLower(landingHost(domain))
	}
	host, _, _ := strings.Cut(domain, "/")
	return strings.ToLower(host)
}

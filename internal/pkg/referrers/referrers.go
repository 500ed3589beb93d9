package referrers

import (
	"net/url"
	"strings"

	"utmlens/internal/utm"
)

// Kind groups referrers by the traffic medium they imply.
type Kind string

const (
	KindSearch    Kind = "search"
	KindSocial    Kind = "social"
	KindEmail     Kind = "email"
	KindCommunity Kind = "community"
	KindNews      Kind = "news"
	KindShortener Kind = "shortener"
)

// Referrer describes a known referring site.
type Referrer struct {
	Name   string // display name, e.g. "X/Twitter"
	Source string // utm_source token, e.g. "twitter"
	Kind   Kind
}

func search(name, source string) Referrer    { return Referrer{name, source, KindSearch} }
func social(name, source string) Referrer    { return Referrer{name, source, KindSocial} }
func mail(name, source string) Referrer      { return Referrer{name, source, KindEmail} }
func community(name, source string) Referrer { return Referrer{name, source, KindCommunity} }
func news(name, source string) Referrer      { return Referrer{name, source, KindNews} }

var knownReferrers = map[string]Referrer{
	// Search engines
	"google.com":     search("Google", "google"),
	"google.co.uk":   search("Google", "google"),
	"google.de":      search("Google", "google"),
	"google.fr":      search("Google", "google"),
	"google.es":      search("Google", "google"),
	"google.it":      search("Google", "google"),
	"google.ca":      search("Google", "google"),
	"google.com.au":  search("Google", "google"),
	"google.co.jp":   search("Google", "google"),
	"google.com.br":  search("Google", "google"),
	"bing.com":       search("Bing", "bing"),
	"duckduckgo.com": search("DuckDuckGo", "duckduckgo"),
	"yahoo.com":      search("Yahoo", "yahoo"),
	"baidu.com":      search("Baidu", "baidu"),
	"yandex.ru":      search("Yandex", "yandex"),
	"ecosia.org":     search("Ecosia", "ecosia"),
	"kagi.com":       search("Kagi", "kagi"),

	// Social media
	"x.com":           social("X/Twitter", "twitter"),
	"twitter.com":     social("X/Twitter", "twitter"),
	"t.co":            social("X/Twitter", "twitter"),
	"facebook.com":    social("Facebook", "facebook"),
	"fb.com":          social("Facebook", "facebook"),
	"l.facebook.com":  social("Facebook", "facebook"),
	"lm.facebook.com": social("Facebook", "facebook"),
	"instagram.com":   social("Instagram", "instagram"),
	"l.instagram.com": social("Instagram", "instagram"),
	"linkedin.com":    social("LinkedIn", "linkedin"),
	"lnkd.in":         social("LinkedIn", "linkedin"),
	"tiktok.com":      social("TikTok", "tiktok"),
	"pinterest.com":   social("Pinterest", "pinterest"),
	"reddit.com":      social("Reddit", "reddit"),
	"old.reddit.com":  social("Reddit", "reddit"),
	"threads.net":     social("Threads", "threads"),
	"bsky.app":        social("Bluesky", "bluesky"),
	"mastodon.social": social("Mastodon", "mastodon"),
	"youtube.com":     social("YouTube", "youtube"),
	"youtu.be":        social("YouTube", "youtube"),

	// Tech communities
	"news.ycombinator.com": community("Hacker News", "hackernews"),
	"lobste.rs":            community("Lobsters", "lobsters"),
	"producthunt.com":      community("Product Hunt", "producthunt"),
	"indiehackers.com":     community("Indie Hackers", "indiehackers"),
	"dev.to":               community("DEV Community", "devto"),
	"medium.com":           community("Medium", "medium"),
	"substack.com":         community("Substack", "substack"),
	"github.com":           community("GitHub", "github"),
	"stackoverflow.com":    community("Stack Overflow", "stackoverflow"),
	"quora.com":            community("Quora", "quora"),

	// News
	"nytimes.com":     news("NY Times", "nytimes"),
	"theguardian.com": news("The Guardian", "theguardian"),
	"bbc.com":         news("BBC", "bbc"),
	"bbc.co.uk":       news("BBC", "bbc"),
	"techcrunch.com":  news("TechCrunch", "techcrunch"),
	"forbes.com":      news("Forbes", "forbes"),

	// Email providers (newsletter clicks)
	"mail.google.com":    mail("Gmail", "gmail"),
	"outlook.live.com":   mail("Outlook", "outlook"),
	"outlook.office.com": mail("Outlook", "outlook"),
	"mail.yahoo.com":     mail("Yahoo Mail", "yahoo_mail"),
	"mail.proton.me":     mail("Proton Mail", "protonmail"),

	// Link shorteners
	"bit.ly":      {"Bitly", "bitly", KindShortener},
	"tinyurl.com": {"TinyURL", "tinyurl", KindShortener},
}

// Lookup finds the known referrer for a hostname, ignoring a "www."
// prefix and matching subdomains of known hosts.
func Lookup(hostname string) (Referrer, bool) {
	hostname = strings.TrimPrefix(strings.ToLower(hostname), "www.")
	if ref, ok := knownReferrers[hostname]; ok {
		return ref, true
	}

	// Prefer the longest matching parent domain so that e.g.
	// mail.google.com never resolves to google.com.
	var (
		best    Referrer
		bestLen int
	)
	for domain, ref := range knownReferrers {
		if strings.HasSuffix(hostname, "."+domain) && len(domain) > bestLen {
			best, bestLen = ref, len(domain)
		}
	}
	return best, bestLen > 0
}

// FriendlyName returns a human-friendly name for a referrer hostname.
// If the hostname is not in the known list, it returns the hostname
// with common prefixes like "www." removed and first letter capitalized.
func FriendlyName(hostname string) string {
	if ref, ok := Lookup(hostname); ok {
		return ref.Name
	}
	return capitalizeFirst(strings.TrimPrefix(strings.ToLower(hostname), "www."))
}

// Medium returns the utm_medium implied by the referrer kind.
func (r Referrer) Medium() string {
	switch r.Kind {
	case KindSearch:
		return "organic"
	case KindSocial:
		return "social"
	case KindEmail:
		return "email"
	}
	return "referral"
}

// InferParams derives tracking parameters from a referrer URL for visits
// that arrived without explicit tags. Unknown external hosts become a
// referral from the bare hostname. It returns false when the referrer is
// empty, unparsable, or points back at selfHost.
func InferParams(referrerURL, selfHost string) (utm.Params, bool) {
	if referrerURL == "" {
		return utm.Params{}, false
	}
	parsed, err := url.Parse(referrerURL)
	if err != nil || parsed.Hostname() == "" {
		return utm.Params{}, false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if selfHost != "" && host == strings.TrimPrefix(strings.ToLower(selfHost), "www.") {
		return utm.Params{}, false
	}

	if ref, ok := Lookup(host); ok {
		return utm.Params{Source: ref.Source, Medium: ref.Medium()}, true
	}
	return utm.Params{Source: host, Medium: "referral"}, true
}

// capitalizeFirst capitalizes the first letter of a string
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

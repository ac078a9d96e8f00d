package domain

import "regexp"

// TrafficClass is the result of classifying a request's declared agent
// identity: white for human traffic, black for automated traffic.
type TrafficClass string

const (
	TrafficWhite TrafficClass = "white"
	TrafficBlack TrafficClass = "black"
)

// defaultBlockPattern matches the agent signatures of common crawlers,
// headless browsers, social-preview fetchers and HTTP tooling. Policies may
// override it per domain via DomainPolicy.BlockPattern.
var defaultBlockPattern = regexp.MustCompile(`(?i)(bot|crawl|spider|slurp|archiver|scrape|scanner|` +
	`facebookexternalhit|twitterbot|telegrambot|whatsapp|skypeuripreview|linkedinbot|pinterest|vkshare|` +
	`headlesschrome|phantomjs|electron|puppeteer|playwright|selenium|` +
	`python-requests|python-urllib|go-http-client|okhttp|httpclient|libwww|java/|curl/|wget/|` +
	`yandex|baiduspider|bingpreview|duckduckgo|applebot|sogou|` +
	`ahrefs|semrush|mj12|dotbot|petalbot|serpstat|screaming frog|` +
	`lighthouse|pagespeed|pingdom|uptimerobot|site24x7|statuscake)`)

// DefaultBlockPattern exposes the built-in bot pattern, mainly for tests and
// diagnostics.
func DefaultBlockPattern() *regexp.Regexp {
	return defaultBlockPattern
}

// Classify decides whether a request is white (human) or black (automated)
// traffic. The override pattern takes precedence when non-nil; a match means
// black, no match means white. Pure function of its inputs.
func Classify(userAgent string, override *regexp.Regexp) TrafficClass {
	pattern := defaultBlockPattern
	if override != nil {
		pattern = override
	}
	if pattern.MatchString(userAgent) {
		return TrafficBlack
	}
	return TrafficWhite
}

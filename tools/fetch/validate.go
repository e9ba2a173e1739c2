package fetch

import (
	"net/url"
	"regexp"
	"strings"
)

// Hosts that always resolve to the local machine.
var blockedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

// Private and link-local address prefixes, IPv4 and IPv6.
var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^10\.`),
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`),
	regexp.MustCompile(`^192\.168\.`),
	regexp.MustCompile(`^169\.254\.`),
	regexp.MustCompile(`(?i)^fc00:`),
	regexp.MustCompile(`(?i)^fe80:`),
}

// urlError distinguishes malformed URLs from policy-blocked ones so the
// handler can pick the right error code.
type urlError struct {
	blocked bool
	message string
}

func (e *urlError) Error() string { return e.message }

func invalid(msg string) *urlError { return &urlError{message: msg} }
func blocked(msg string) *urlError { return &urlError{blocked: true, message: msg} }

// validateURL checks a URL against the fetch policy: http/https only, no
// localhost, no private or link-local addresses.
func validateURL(raw string) *urlError {
	if raw == "" {
		return invalid("URL is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return invalid("Invalid URL format: " + err.Error())
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return invalid("URL must have a scheme (http or https)")
	}
	if scheme != "http" && scheme != "https" {
		return invalid("Invalid URL scheme: " + parsed.Scheme + ". Only http and https are allowed.")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return invalid("URL must have a hostname")
	}
	if blockedHosts[host] {
		return blocked("Cannot fetch localhost URLs")
	}
	for _, p := range privateIPPatterns {
		if p.MatchString(host) {
			return blocked("Cannot fetch private network URLs")
		}
	}
	if strings.Contains(host, "..") || strings.HasPrefix(host, "-") || strings.HasSuffix(host, "-") {
		return invalid("Invalid hostname format")
	}
	return nil
}

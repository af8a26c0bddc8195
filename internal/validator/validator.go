// Package validator checks conversion requests before any external process is
// started.
package validator

import (
	"strings"

	"ogmp3/internal/apperr"
)

// DefaultHosts is the allow-list used when none is configured.
var DefaultHosts = []string{"youtube.com", "youtu.be"}

// ValidateURL rejects a missing URL or one that contains none of the allowed
// host substrings. The match is a plain substring test; no scheme or host parsing
// is performed. It returns the trimmed URL.
func ValidateURL(raw string, hosts []string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", apperr.Wrap(apperr.ErrValidation, "", "URL is missing", nil)
	}
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host != "" && strings.Contains(url, host) {
			return url, nil
		}
	}
	return "", apperr.Wrap(apperr.ErrValidation, "", "Invalid URL - YouTube only", nil)
}

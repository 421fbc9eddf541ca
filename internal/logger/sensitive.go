// sensitive.go
package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveDataPatterns match credentials embedded in free-form strings.
var sensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)(client-id\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)([?&](?:client_id|key|api_key|apikey|token)=)([^&\s]+)`),
}

// sensitiveKeywords mark field keys whose values are always redacted.
var sensitiveKeywords = []string{
	"password", "secret", "token", "api_key", "apikey", "access_key", "authorization", "dsn",
}

// RedactSensitiveData replaces credentials inside s with "[REDACTED]".
func RedactSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, pattern := range sensitiveDataPatterns {
		s = pattern.ReplaceAllString(s, "${1}"+redactedValue)
	}
	return s
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(keyLower, kw) {
			return true
		}
	}
	return false
}

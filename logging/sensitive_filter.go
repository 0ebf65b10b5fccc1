package logging

import (
	"regexp"
	"strings"
)

// RedactedValue replaces sensitive content in log output.
const RedactedValue = "[REDACTED]"

// sensitiveFieldNames lists field keys whose values are always redacted,
// matched case-insensitively.
var sensitiveFieldNames = []string{
	"replicate_api_token",
	"prompt_api_key",
	"api_token",
	"api_key",
	"password",
	"webui_password",
	"authorization",
	"token",
	"secret",
	"credential",
}

// sensitivePatterns match credential material that may appear embedded in
// arbitrary string values.
var sensitivePatterns = []*regexp.Regexp{
	// Replicate API tokens.
	regexp.MustCompile(`r8_[A-Za-z0-9]{20,}`),
	// Google AI API keys.
	regexp.MustCompile(`AIza[A-Za-z0-9_\-]{30,}`),
	// OpenAI-style secret keys.
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`),
	// Bearer tokens in header dumps.
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`),
	// Inline credential assignments (token=..., api_key: ...).
	regexp.MustCompile(`(?i)(token|api[_-]?key|password|secret)["']?\s*[:=]\s*["']?[^\s"',}]+`),
}

// IsSensitiveField reports whether a field key names a credential and its
// value must be redacted regardless of content.
//
// Example:
//
//	IsSensitiveField("replicate_api_token") // true
//	IsSensitiveField("slide_id")            // false
func IsSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// RedactString replaces any credential material embedded in s with
// RedactedValue. Strings without sensitive content are returned unchanged.
func RedactString(s string) string {
	for _, pattern := range sensitivePatterns {
		s = pattern.ReplaceAllString(s, RedactedValue)
	}
	return s
}

package core

import (
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing    = "ENV_FILE_MISSING"
	ErrCodeMissingAuth       = "MISSING_AUTH"
	ErrCodeInvalidGatewayURL = "INVALID_GATEWAY_URL"
	ErrCodeInvalidStrategy   = "INVALID_STRATEGY"
	ErrCodeMissingConfig     = "MISSING_CONFIG"
)

// ErrMissingAuth returns an error for missing authentication credentials.
func ErrMissingAuth(service string) *ConfigError {
	var action string
	switch service {
	case "replicate":
		action = "Set REPLICATE_API_TOKEN in your .env file"
	case "prompt":
		action = "Set PROMPT_API_KEY in your .env file"
	default:
		action = fmt.Sprintf("Set the required API key for %s in your .env file", service)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing authentication credentials for %s", service),
		Action:  action,
	}
}

// ErrInvalidGatewayURL returns an error for a malformed gateway base URL.
func ErrInvalidGatewayURL(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidGatewayURL,
		Message: fmt.Sprintf("Invalid REPLICATE_API_BASE URL '%s': %s", url, reason),
		Action:  "Set REPLICATE_API_BASE to a valid URL (e.g., https://api.replicate.com/v1)",
	}
}

// ErrInvalidStrategy returns an error for an unrecognized generation strategy name.
func ErrInvalidStrategy(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidStrategy,
		Message: fmt.Sprintf("Unknown generation strategy: %s", name),
		Action:  `Set GENERATION_STRATEGY to "inpaint" or "legacy"`,
	}
}

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}

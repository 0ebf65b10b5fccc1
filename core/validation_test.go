package core

import (
	"bytes"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		ReplicateAPIToken: "r8_test",
		ReplicateOwner:    "acme",
		ReplicateAPIBase:  "https://api.replicate.com/v1",
		PromptAPIKey:      "key",
	}
}

func TestValidationSuitePasses(t *testing.T) {
	var out bytes.Buffer
	suite := NewValidationSuite(validConfig()).
		WithOutput(&out).
		WithNetworkChecks(false)

	result := suite.Validate()
	if !result.Success {
		t.Fatalf("Validate() failed: %+v", result.Steps)
	}
	if result.PassedSteps != 2 {
		t.Errorf("PassedSteps = %d, want 2 (reachability skipped)", result.PassedSteps)
	}
	if !strings.Contains(out.String(), "Validation Passed") {
		t.Errorf("output missing summary: %q", out.String())
	}
}

func TestValidationSuiteMissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.ReplicateAPIToken = ""

	var out bytes.Buffer
	result := NewValidationSuite(cfg).
		WithOutput(&out).
		WithNetworkChecks(false).
		Validate()

	if result.Success {
		t.Fatal("Validate() passed without gateway credentials")
	}
	errs := result.GetErrors()
	if len(errs) == 0 || GetErrorCode(errs[0]) != ErrCodeMissingAuth {
		t.Errorf("GetErrors() = %v, want missing auth", errs)
	}
}

func TestValidationSuiteBadGatewayURL(t *testing.T) {
	cfg := validConfig()
	cfg.ReplicateAPIBase = "not-a-url"

	result := NewValidationSuite(cfg).
		WithOutput(&bytes.Buffer{}).
		WithNetworkChecks(false).
		WithShowProgress(false).
		Validate()

	if result.Success {
		t.Fatal("Validate() passed with a malformed gateway URL")
	}
	errs := result.GetErrors()
	if len(errs) == 0 || GetErrorCode(errs[0]) != ErrCodeInvalidGatewayURL {
		t.Errorf("GetErrors() = %v, want invalid gateway URL", errs)
	}
}

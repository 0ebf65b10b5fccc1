package core

import (
	"errors"
	"testing"
)

// setRequiredEnv sets the minimum environment for LoadConfig to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REPLICATE_API_TOKEN", "r8_test_token")
	t.Setenv("REPLICATE_OWNER", "test-owner")
	t.Setenv("PROMPT_API_KEY", "prompt-test-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}

	if cfg.ReplicateAPIBase != "https://api.replicate.com/v1" {
		t.Errorf("ReplicateAPIBase = %q, want default gateway URL", cfg.ReplicateAPIBase)
	}
	if cfg.GenerationStrategy != StrategyInpaint {
		t.Errorf("GenerationStrategy = %q, want %q", cfg.GenerationStrategy, StrategyInpaint)
	}
	if cfg.InferenceSteps != 28 {
		t.Errorf("InferenceSteps = %d, want 28", cfg.InferenceSteps)
	}
	if cfg.GuidanceScale != 3.0 {
		t.Errorf("GuidanceScale = %v, want 3.0", cfg.GuidanceScale)
	}
	if cfg.PromptStrength != 0.85 {
		t.Errorf("PromptStrength = %v, want 0.85", cfg.PromptStrength)
	}
	if cfg.CharacterWidthRatio != 0.42 {
		t.Errorf("CharacterWidthRatio = %v, want 0.42", cfg.CharacterWidthRatio)
	}
	if cfg.BottomPaddingRatio != 0.06 {
		t.Errorf("BottomPaddingRatio = %v, want 0.06", cfg.BottomPaddingRatio)
	}
	if cfg.PollInterval.Seconds() != 5 {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.RecordStore != StoreSQLite {
		t.Errorf("RecordStore = %q, want %q", cfg.RecordStore, StoreSQLite)
	}
	if cfg.TriggerWordPrefix != "SUBJECT" {
		t.Errorf("TriggerWordPrefix = %q, want SUBJECT", cfg.TriggerWordPrefix)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name     string
		unset    string
		wantCode string
	}{
		{name: "missing gateway token", unset: "REPLICATE_API_TOKEN", wantCode: ErrCodeMissingAuth},
		{name: "missing owner", unset: "REPLICATE_OWNER", wantCode: ErrCodeMissingConfig},
		{name: "missing prompt key", unset: "PROMPT_API_KEY", wantCode: ErrCodeMissingAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig() expected error, got nil")
			}
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("LoadConfig() error type = %T, want *ConfigError", err)
			}
			if configErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", configErr.Code, tt.wantCode)
			}
		})
	}
}

func TestLoadConfigInvalidStrategy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_STRATEGY", "collage")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() expected error for unknown strategy, got nil")
	}
	if code := GetErrorCode(err); code != ErrCodeInvalidStrategy {
		t.Errorf("error code = %q, want %q", code, ErrCodeInvalidStrategy)
	}
}

func TestLoadConfigInvalidGatewayURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REPLICATE_API_BASE", "not-a-url")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("LoadConfig() expected error for invalid gateway URL, got nil")
	}
	if code := GetErrorCode(err); code != ErrCodeInvalidGatewayURL {
		t.Errorf("error code = %q, want %q", code, ErrCodeInvalidGatewayURL)
	}
}

func TestLoadConfigStrategyOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENERATION_STRATEGY", "legacy")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}
	if cfg.GenerationStrategy != StrategyLegacy {
		t.Errorf("GenerationStrategy = %q, want %q", cfg.GenerationStrategy, StrategyLegacy)
	}
}

func TestLoadConfigTriggerPrefixNormalized(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRIGGER_WORD_PREFIX", "  hero ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}
	if cfg.TriggerWordPrefix != "HERO" {
		t.Errorf("TriggerWordPrefix = %q, want HERO", cfg.TriggerWordPrefix)
	}
}

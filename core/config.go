package core

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Generation strategy names accepted by GENERATION_STRATEGY.
const (
	StrategyInpaint = "inpaint"
	StrategyLegacy  = "legacy"
)

// Record store backends accepted by RECORD_STORE.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all configuration values for the service.
type Config struct {
	// Replicate gateway configuration
	ReplicateAPIToken string // API token for the model gateway (required)
	ReplicateOwner    string // Account that owns destination models (required)
	ReplicateAPIBase  string // Gateway base URL

	// Prompt synthesis (vision LLM) configuration.
	// The endpoint is OpenAI-compatible; Gemini's compatibility endpoint is
	// the default since the prompt quality was tuned against it.
	PromptAPIKey  string
	PromptBaseURL string
	PromptModel   string

	// Fixed trainer and auxiliary model identifiers
	TrainerModel           string // owner/name of the trainer model
	TrainerVersion         string // pinned trainer version id
	SegmentationModel      string // owner/name:version producing inpainting masks
	BackgroundRemovalModel string // owner/name:version for legacy background removal
	FaceSwapModel          string // owner/name:version for the face-swap endpoint

	// Destination model defaults
	ModelVisibility   string // visibility for auto-created destination models
	ModelHardware     string // hardware SKU for auto-created destination models
	ModelDescription  string
	TriggerWordPrefix string

	// Generation strategy selection: StrategyInpaint (default) or StrategyLegacy
	GenerationStrategy string

	// Inpainting sampling parameters
	InferenceSteps int
	GuidanceScale  float64
	OutputFormat   string
	OutputQuality  int
	Megapixels     string
	PromptStrength float64

	// Legacy compositing geometry
	CharacterWidthRatio  float64
	BottomPaddingRatio   float64
	HorizontalShiftRatio float64

	// Record store configuration
	RecordStore    string // StoreSQLite or StoreMemory
	DatabasePath   string
	MigrationsPath string

	// HTTP server configuration
	Port          int
	WebUIPassword string // optional; empty disables auth
	MaxUploadSize int64

	// Timeouts and polling
	GatewayTimeout time.Duration // per gateway call (model runs can be slow)
	PromptTimeout  time.Duration
	PollInterval   time.Duration // training status poll cadence

	// TLS
	AllowSelfSignedCerts bool
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. Only the gateway token, gateway owner, and prompt API key are
// required; everything else has a working default.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateOwner:    os.Getenv("REPLICATE_OWNER"),
		ReplicateAPIBase:  GetEnvOrDefault("REPLICATE_API_BASE", "https://api.replicate.com/v1"),

		PromptAPIKey:  os.Getenv("PROMPT_API_KEY"),
		PromptBaseURL: GetEnvOrDefault("PROMPT_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		PromptModel:   GetEnvOrDefault("PROMPT_MODEL", "gemini-2.5-flash"),

		TrainerModel:   GetEnvOrDefault("TRAINER_MODEL", "ostris/flux-dev-lora-trainer"),
		TrainerVersion: GetEnvOrDefault("TRAINER_VERSION", "e440909d3512c31646ee2e0c7d6f6f4923224863a6a10c494606e79fb5844497"),
		SegmentationModel: GetEnvOrDefault("SEGMENTATION_MODEL",
			"bytedance/sa2va-8b-image:956baf05a8a81ab47f1d0dac8eab6585b899790f342975a964840c4e9c63c7aa"),
		BackgroundRemovalModel: GetEnvOrDefault("BACKGROUND_REMOVAL_MODEL",
			"lucataco/remove-bg:95fcc2a26d3899cd6c2691c900465aaeff466285a65c14638cc5f36f34befaf1"),
		FaceSwapModel: GetEnvOrDefault("FACE_SWAP_MODEL",
			"cdingram/face-swap:d1d6ea8c8be89d664a07a457526f7128109dee7030fdac424788d762c71ed111"),

		ModelVisibility:   GetEnvOrDefault("MODEL_VISIBILITY", "private"),
		ModelHardware:     GetEnvOrDefault("MODEL_HARDWARE", "gpu-t4"),
		ModelDescription:  GetEnvOrDefault("MODEL_DESCRIPTION", "Personalized storybook subject model"),
		TriggerWordPrefix: GetEnvOrDefault("TRIGGER_WORD_PREFIX", "SUBJECT"),

		GenerationStrategy: GetEnvOrDefault("GENERATION_STRATEGY", StrategyInpaint),

		InferenceSteps: ParseIntEnv("INFERENCE_STEPS", 28),
		GuidanceScale:  ParseFloat64Env("GUIDANCE_SCALE", 3.0),
		OutputFormat:   GetEnvOrDefault("OUTPUT_FORMAT", "png"),
		OutputQuality:  ParseIntEnv("OUTPUT_QUALITY", 90),
		Megapixels:     GetEnvOrDefault("MEGAPIXELS", "1"),
		PromptStrength: ParseFloat64Env("PROMPT_STRENGTH", 0.85),

		CharacterWidthRatio:  ParseFloat64Env("CHARACTER_WIDTH_RATIO", 0.42),
		BottomPaddingRatio:   ParseFloat64Env("BOTTOM_PADDING_RATIO", 0.06),
		HorizontalShiftRatio: ParseFloat64Env("HORIZONTAL_SHIFT_RATIO", 0),

		RecordStore:    GetEnvOrDefault("RECORD_STORE", StoreSQLite),
		DatabasePath:   GetEnvOrDefault("DATABASE_PATH", "data/storybook.db"),
		MigrationsPath: GetEnvOrDefault("MIGRATIONS_PATH", "file://db/migrations"),

		Port:          ParseIntEnv("PORT", 8080),
		WebUIPassword: os.Getenv("WEBUI_PASSWORD"),
		MaxUploadSize: int64(ParseIntEnv("MAX_UPLOAD_MB", 32)) << 20,

		GatewayTimeout: ParseDurationSecondsEnv("GATEWAY_TIMEOUT", 300),
		PromptTimeout:  ParseDurationSecondsEnv("PROMPT_TIMEOUT", 60),
		PollInterval:   ParseDurationSecondsEnv("POLL_INTERVAL", 5),

		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
	}

	if cfg.ReplicateAPIToken == "" {
		return nil, ErrMissingAuth("replicate")
	}
	if cfg.ReplicateOwner == "" {
		return nil, ErrMissingConfig("REPLICATE_OWNER")
	}
	if cfg.PromptAPIKey == "" {
		return nil, ErrMissingAuth("prompt")
	}

	if parsed, err := url.Parse(cfg.ReplicateAPIBase); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		reason := "missing scheme or host"
		if err != nil {
			reason = err.Error()
		}
		return nil, ErrInvalidGatewayURL(cfg.ReplicateAPIBase, reason)
	}

	switch cfg.GenerationStrategy {
	case StrategyInpaint, StrategyLegacy:
	default:
		return nil, ErrInvalidStrategy(cfg.GenerationStrategy)
	}

	switch cfg.RecordStore {
	case StoreSQLite, StoreMemory:
	default:
		return nil, &ConfigError{
			Code:    ErrCodeMissingConfig,
			Message: fmt.Sprintf("Unknown record store backend: %s", cfg.RecordStore),
			Action:  `Set RECORD_STORE to "sqlite" or "memory"`,
		}
	}

	// Trigger word prefixes are embedded verbatim in prompts; keep them to
	// the same identifier alphabet the generated suffix uses.
	cfg.TriggerWordPrefix = strings.ToUpper(strings.TrimSpace(cfg.TriggerWordPrefix))
	if cfg.TriggerWordPrefix == "" {
		cfg.TriggerWordPrefix = "SUBJECT"
	}

	return cfg, nil
}

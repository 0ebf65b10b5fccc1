package promptgen

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storybook_backend/logging"
)

// ChatCompleter is the slice of the OpenAI-compatible client the
// synthesizer uses. Satisfied by *openai.Client.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config selects the vision model and generation mode.
type Config struct {
	// Model is the vision-capable chat model name.
	Model string
	// Inpaint selects the inpainting template; false selects the
	// isolated-character template for the composite pipeline.
	Inpaint bool
}

// Synthesizer turns a slide image plus scene notes into a generation
// prompt by querying a vision model through an OpenAI-compatible API.
type Synthesizer struct {
	client ChatCompleter
	cfg    Config
	logger *logging.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(client ChatCompleter, cfg Config, logger *logging.Logger) *Synthesizer {
	return &Synthesizer{client: client, cfg: cfg, logger: logger.Named("promptgen")}
}

// NewVisionClient builds an OpenAI-compatible client against the
// configured endpoint. The default base URL targets Gemini's
// compatibility surface, but any OpenAI-style endpoint works.
// httpClient may be nil.
func NewVisionClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// Synthesize produces the generation prompt for one slide. imageURL may
// be an https URL or a data URL; triggerWord is the fine-tuned subject
// token and is guaranteed to appear in the resulting prompt.
func (s *Synthesizer) Synthesize(ctx context.Context, imageURL, triggerWord, sceneNotes string) (*PromptResult, error) {
	instructions := BuildLegacyInstructions(triggerWord, sceneNotes)
	if s.cfg.Inpaint {
		instructions = BuildInpaintInstructions(triggerWord, sceneNotes)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: instructions,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision model request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	result, err := ParsePromptResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	result.Prompt = EnsureTriggerWord(result.Prompt, triggerWord)

	s.logger.Debug("prompt synthesized",
		zap.String("model", s.cfg.Model),
		zap.Int("prompt_length", len(result.Prompt)),
	)
	return result, nil
}

// Package pipeline runs the per-slide personalization flow. Two
// strategies exist: inpainting paints the fine-tuned character directly
// into the slide artwork through a segmentation mask, while the legacy
// flow generates an isolated character and hands a background-removed
// cutout to the compositor.
package pipeline

import (
	"context"
	"errors"
	"io"

	"storybook_backend/promptgen"
	"storybook_backend/replicate"
)

// Stage identifies a step of the generation flow, reported to observers
// as the pipeline progresses.
type Stage string

const (
	StageAnalyzingScene      Stage = "analyzing_scene"
	StageGeneratingMask      Stage = "generating_mask"
	StageInpainting          Stage = "inpainting"
	StageGeneratingCharacter Stage = "generating_character"
	StageRemovingBackground  Stage = "removing_background"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

// StageObserver receives progress events. Implementations must not
// block; the websocket broadcaster fans these out to connected clients.
type StageObserver interface {
	OnStage(slideID string, stage Stage, detail string)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OnStage(string, Stage, string) {}

// ErrNoImagesReturned is returned when the fine-tuned model produces no
// usable image output.
var ErrNoImagesReturned = errors.New("Fine-tuned model returned no images")

// GenerationInput is everything a strategy needs for one slide.
type GenerationInput struct {
	// SlideID identifies the slide for progress events.
	SlideID string
	// SlideImage is the base artwork URL.
	SlideImage string
	// SceneNotes are the manifest's author notes for the slide.
	SceneNotes string
	// TriggerWord is the fine-tuned subject token.
	TriggerWord string
	// ModelRef is the fine-tuned model, "owner/name:version".
	ModelRef string
}

// Result is a finished generation. The inpainting strategy fills
// CompositedImage only; the legacy strategy fills RawImages and
// CleanedImage, leaving compositing to a separate step.
type Result struct {
	// Prompt is the synthesized prompt that produced the image.
	Prompt string
	// Rationale is the synthesizer's optional explanation.
	Rationale string
	// RawImages are the candidate images from the fine-tuned model.
	RawImages []string
	// CleanedImage is the first candidate with its background removed.
	CleanedImage string
	// CompositedImage is the slide with the character painted in.
	CompositedImage string
}

// FinalImage returns the image a caller should display, and whether it
// is an isolated character cutout still needing compositing.
func (r *Result) FinalImage() (url string, cutout bool) {
	if r.CompositedImage != "" {
		return r.CompositedImage, false
	}
	return r.CleanedImage, true
}

// Strategy generates a personalized image for one slide.
type Strategy interface {
	Generate(ctx context.Context, input GenerationInput) (*Result, error)
}

// Runner runs a model prediction on the gateway. Satisfied by
// *replicate.Client.
type Runner interface {
	Run(ctx context.Context, ref string, input map[string]interface{}) (*replicate.Prediction, error)
}

// Uploader stores image bytes on the gateway's file endpoint and returns
// a served URL. Satisfied by *replicate.Client.
type Uploader interface {
	UploadFile(ctx context.Context, filename string, content io.Reader) (*replicate.FileUploadResponse, error)
}

// Gateway is the slice of the gateway client the inpainting strategy
// needs: predictions plus file uploads for inline images.
type Gateway interface {
	Runner
	Uploader
}

// PromptSynthesizer produces the generation prompt for a slide.
// Satisfied by *promptgen.Synthesizer.
type PromptSynthesizer interface {
	Synthesize(ctx context.Context, imageURL, triggerWord, sceneNotes string) (*promptgen.PromptResult, error)
}

// SamplingParams are the diffusion settings shared by both strategies.
type SamplingParams struct {
	Steps          int
	Guidance       float64
	OutputFormat   string
	OutputQuality  int
	Megapixels     string
	PromptStrength float64
}

// DefaultSamplingParams returns the settings tuned for the flux trainer's
// output models.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		Steps:          28,
		Guidance:       3.0,
		OutputFormat:   "png",
		OutputQuality:  90,
		Megapixels:     "1",
		PromptStrength: 0.85,
	}
}

// apply merges the sampling settings into a model input map.
func (p SamplingParams) apply(input map[string]interface{}) {
	input["num_inference_steps"] = p.Steps
	input["guidance_scale"] = p.Guidance
	input["output_format"] = p.OutputFormat
	input["output_quality"] = p.OutputQuality
	input["megapixels"] = p.Megapixels
}

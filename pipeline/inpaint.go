package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storybook_backend/logging"
	"storybook_backend/replicate"
)

// InpaintingConfig holds the models and settings for the inpainting
// strategy.
type InpaintingConfig struct {
	// SegmentationModel produces the character mask, "owner/name:version".
	SegmentationModel string
	// SegmentationQuery tells the segmentation model what to mask.
	SegmentationQuery string
	Sampling          SamplingParams
}

// InpaintingStrategy paints the fine-tuned character into the slide
// artwork: a segmentation model masks the existing character region,
// then the fine-tuned model inpaints the masked area with the subject.
type InpaintingStrategy struct {
	gateway  Gateway
	synth    PromptSynthesizer
	observer StageObserver
	cfg      InpaintingConfig
	logger   *logging.Logger
}

// NewInpaintingStrategy creates the strategy. SegmentationQuery defaults
// to masking the child character; a nil observer is replaced with a
// no-op.
func NewInpaintingStrategy(gateway Gateway, synth PromptSynthesizer, observer StageObserver, cfg InpaintingConfig, logger *logging.Logger) *InpaintingStrategy {
	if observer == nil {
		observer = NopObserver{}
	}
	if cfg.SegmentationQuery == "" {
		cfg.SegmentationQuery = "segment the child"
	}
	return &InpaintingStrategy{
		gateway:  gateway,
		synth:    synth,
		observer: observer,
		cfg:      cfg,
		logger:   logger.Named("inpaint"),
	}
}

// Generate runs analyze -> mask -> inpaint for one slide.
func (s *InpaintingStrategy) Generate(ctx context.Context, input GenerationInput) (*Result, error) {
	s.observer.OnStage(input.SlideID, StageAnalyzingScene, "")
	pr, err := s.synth.Synthesize(ctx, input.SlideImage, input.TriggerWord, input.SceneNotes)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, fmt.Errorf("synthesizing prompt: %w", err)
	}

	// Rasterized pages arrive as data URLs; the gateway needs a served
	// URL for both the segmentation and inpaint calls.
	sceneURL, err := stabilizeImage(ctx, s.gateway, input.SlideImage, "scene-"+input.SlideID)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, err
	}

	s.observer.OnStage(input.SlideID, StageGeneratingMask, "")
	maskPred, err := s.gateway.Run(ctx, s.cfg.SegmentationModel, map[string]interface{}{
		"image":       sceneURL,
		"instruction": s.cfg.SegmentationQuery,
		"model_size":  "8B",
		"mask_only":   true,
	})
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, fmt.Errorf("running segmentation: %w", err)
	}
	maskURL, err := replicate.NormalizeOutput(maskPred.Output)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, err
	}
	// Some segmentation models return the mask inline rather than as a
	// served URL.
	maskURL, err = stabilizeImage(ctx, s.gateway, maskURL, "mask-"+input.SlideID)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, err
	}

	s.observer.OnStage(input.SlideID, StageInpainting, "")
	inpaintInput := map[string]interface{}{
		"prompt":          pr.Prompt,
		"image":           sceneURL,
		"mask":            maskURL,
		"prompt_strength": s.cfg.Sampling.PromptStrength,
	}
	s.cfg.Sampling.apply(inpaintInput)
	pred, err := s.gateway.Run(ctx, input.ModelRef, inpaintInput)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, fmt.Errorf("running inpainting: %w", err)
	}
	imageURL, err := replicate.NormalizeOutput(pred.Output)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, err
	}

	s.observer.OnStage(input.SlideID, StageDone, imageURL)
	s.logger.Info("slide inpainted",
		zap.String("slide_id", input.SlideID),
		zap.String("model", input.ModelRef),
	)
	return &Result{
		Prompt:          pr.Prompt,
		Rationale:       pr.Rationale,
		CompositedImage: imageURL,
	}, nil
}

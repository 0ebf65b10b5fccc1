package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storybook_backend/logging"
	"storybook_backend/replicate"
)

// LegacyConfig holds the models and settings for the composite strategy.
type LegacyConfig struct {
	// BackgroundRemovalModel cuts the character out of the generated
	// image, "owner/name:version".
	BackgroundRemovalModel string
	Sampling               SamplingParams
}

// LegacyStrategy generates the character in isolation and strips its
// background, leaving compositing onto the slide to the client (or the
// PDF exporter). Kept for models that inpaint poorly.
type LegacyStrategy struct {
	runner   Runner
	synth    PromptSynthesizer
	observer StageObserver
	cfg      LegacyConfig
	logger   *logging.Logger
}

// NewLegacyStrategy creates the strategy. A nil observer is replaced
// with a no-op.
func NewLegacyStrategy(runner Runner, synth PromptSynthesizer, observer StageObserver, cfg LegacyConfig, logger *logging.Logger) *LegacyStrategy {
	if observer == nil {
		observer = NopObserver{}
	}
	return &LegacyStrategy{
		runner:   runner,
		synth:    synth,
		observer: observer,
		cfg:      cfg,
		logger:   logger.Named("legacy"),
	}
}

// Generate runs analyze -> generate -> remove background for one slide.
func (s *LegacyStrategy) Generate(ctx context.Context, input GenerationInput) (*Result, error) {
	s.observer.OnStage(input.SlideID, StageAnalyzingScene, "")
	pr, err := s.synth.Synthesize(ctx, input.SlideImage, input.TriggerWord, input.SceneNotes)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, fmt.Errorf("synthesizing prompt: %w", err)
	}

	s.observer.OnStage(input.SlideID, StageGeneratingCharacter, "")
	genInput := map[string]interface{}{"prompt": pr.Prompt}
	s.cfg.Sampling.apply(genInput)
	pred, err := s.runner.Run(ctx, input.ModelRef, genInput)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, fmt.Errorf("running fine-tuned model: %w", err)
	}
	candidates, err := replicate.NormalizeOutputs(pred.Output)
	if err != nil {
		var shapeErr *replicate.ResponseShapeError
		if errors.As(err, &shapeErr) {
			err = ErrNoImagesReturned
		}
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, err
	}

	s.observer.OnStage(input.SlideID, StageRemovingBackground, "")
	bgPred, err := s.runner.Run(ctx, s.cfg.BackgroundRemovalModel, map[string]interface{}{
		"image": candidates[0],
	})
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, fmt.Errorf("removing background: %w", err)
	}
	cutoutURL, err := replicate.NormalizeOutput(bgPred.Output)
	if err != nil {
		s.observer.OnStage(input.SlideID, StageFailed, err.Error())
		return nil, err
	}

	s.observer.OnStage(input.SlideID, StageDone, cutoutURL)
	s.logger.Info("character generated",
		zap.String("slide_id", input.SlideID),
		zap.String("model", input.ModelRef),
	)
	return &Result{
		Prompt:       pr.Prompt,
		Rationale:    pr.Rationale,
		RawImages:    candidates,
		CleanedImage: cutoutURL,
	}, nil
}

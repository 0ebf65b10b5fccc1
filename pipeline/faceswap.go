package pipeline

import (
	"context"
	"fmt"

	"storybook_backend/replicate"
)

// FaceSwapper applies the user's portrait face onto a generated slide.
// Offered as a fast alternative to full fine-tuning when only the face
// needs personalizing.
type FaceSwapper struct {
	runner Runner
	// model is the face-swap model, "owner/name:version".
	model string
}

// NewFaceSwapper creates a FaceSwapper.
func NewFaceSwapper(runner Runner, model string) *FaceSwapper {
	return &FaceSwapper{runner: runner, model: model}
}

// Swap puts the face from swapImage onto the person in targetImage and
// returns the result URL.
func (f *FaceSwapper) Swap(ctx context.Context, swapImage, targetImage string) (string, error) {
	pred, err := f.runner.Run(ctx, f.model, map[string]interface{}{
		"swap_image":  swapImage,
		"input_image": targetImage,
	})
	if err != nil {
		return "", fmt.Errorf("running face swap: %w", err)
	}
	url, err := replicate.NormalizeOutput(pred.Output)
	if err != nil {
		return "", err
	}
	return url, nil
}

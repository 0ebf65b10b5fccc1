package promptgen

import (
	"fmt"
	"strings"
)

// Templates instruct the vision model. Both show it the slide artwork and
// ask for a single JSON object so ParsePromptResponse has a stable shape
// to work with. The difference is what kind of image the downstream
// generator must produce: the inpainting path paints the character
// directly into the scene, while the legacy path needs the character
// isolated so the compositor can cut them out.

const inpaintInstructions = `You are writing a prompt for an image inpainting model.
Look at this storybook illustration. A child character will be painted into
the masked region of this exact scene.

Write a prompt describing a photorealistic %s performing the same pose
and action as the illustrated character: what they are doing, and how
the scene's lighting and perspective should carry over onto them. The
character must blend into the existing illustration.

Scene notes: %s

Reply with exactly one JSON object:
{"prompt": "<your prompt>", "rationale": "<one sentence on why it fits>"}`

const legacyInstructions = `You are writing a prompt for a text-to-image model.
Look at this storybook illustration. A child character will be generated
separately and composited into this scene afterward.

Write a prompt describing a photorealistic %s alone, full body, in the
same pose as the illustrated character. The character must be isolated
on a plain white background with nothing else in frame, so the
background can be removed cleanly.

Scene notes: %s

Reply with exactly one JSON object:
{"prompt": "<your prompt>", "rationale": "<one sentence on why it fits>"}`

// BuildInpaintInstructions renders the inpainting template. triggerWord
// names the fine-tuned subject; sceneNotes comes from the storybook
// manifest and may be empty.
func BuildInpaintInstructions(triggerWord, sceneNotes string) string {
	return fmt.Sprintf(inpaintInstructions, triggerWord, orNone(sceneNotes))
}

// BuildLegacyInstructions renders the isolated-character template for the
// composite pipeline.
func BuildLegacyInstructions(triggerWord, sceneNotes string) string {
	return fmt.Sprintf(legacyInstructions, triggerWord, orNone(sceneNotes))
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// EnsureTriggerWord guarantees the trigger token survives the model's
// paraphrasing. Prompts that lost the token get it prepended, since the
// fine-tuned weights only activate on it.
func EnsureTriggerWord(prompt, triggerWord string) string {
	if strings.Contains(prompt, triggerWord) {
		return prompt
	}
	return triggerWord + ", " + prompt
}

package webui

import (
	"storybook_backend/pipeline"
	"storybook_backend/slides"
)

// StoryObserver fans pipeline progress out to websocket clients and
// mirrors a human-readable note onto the slide store.
type StoryObserver struct {
	hub   *Hub
	store *slides.Store
}

// NewStoryObserver creates the observer. Either argument may be nil.
func NewStoryObserver(hub *Hub, store *slides.Store) *StoryObserver {
	return &StoryObserver{hub: hub, store: store}
}

var stageNotes = map[pipeline.Stage]string{
	pipeline.StageAnalyzingScene:      "analyzing scene",
	pipeline.StageGeneratingMask:      "generating mask",
	pipeline.StageInpainting:          "painting character into scene",
	pipeline.StageGeneratingCharacter: "generating character",
	pipeline.StageRemovingBackground:  "removing background",
}

func (o *StoryObserver) OnStage(slideID string, stage pipeline.Stage, detail string) {
	if o.hub != nil {
		o.hub.OnStage(slideID, stage, detail)
	}
	if o.store != nil {
		note := stageNotes[stage]
		// Terminal stages are recorded by CompleteGeneration, which
		// also clears the note.
		if note != "" {
			o.store.SetStatus(slideID, slides.Patch{Progress: &note})
		}
	}
}

package webui

import "time"

// Message types pushed to websocket clients.
const (
	MessageTypeProgress = "generation_progress"
	MessageTypeTraining = "training_update"
)

// WSMessage is the envelope for all websocket pushes.
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ProgressPayload reports a pipeline stage change for one slide.
type ProgressPayload struct {
	SlideID string `json:"slideId"`
	Stage   string `json:"stage"`
	Detail  string `json:"detail,omitempty"`
}

// TrainingPayload reports a training record update.
type TrainingPayload struct {
	TrainingID string `json:"trainingId"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

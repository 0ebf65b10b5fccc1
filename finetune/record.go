package finetune

import (
	"time"
)

// TrainingJobRecord is the backend's durable view of one fine-tune job.
// The record's identity fields (ID, Owner, ModelName, TriggerWord,
// InputURL, CreatedAt) are fixed at submission; only training progress
// is merged in afterward.
type TrainingJobRecord struct {
	// ID is the gateway training identifier, used as the record key.
	ID string `json:"id"`
	// Owner is the gateway account the destination model belongs to.
	Owner string `json:"owner"`
	// ModelName is the sanitized destination model name.
	ModelName string `json:"modelName"`
	// TriggerWord invokes the trained subject in generation prompts.
	TriggerWord string `json:"triggerWord"`
	// InputURL is the gateway file URL of the uploaded training archive.
	InputURL string `json:"inputUrl,omitempty"`
	// Status is the last observed gateway training status.
	Status string `json:"status"`
	// Error holds the gateway's failure message, if any.
	Error string `json:"error,omitempty"`
	// Version is the trained model version once training succeeds.
	Version string `json:"version,omitempty"`
	// Weights is the URL of the trained weights, when the trainer
	// publishes one.
	Weights string `json:"weights,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Training statuses as reported by the gateway. The trainer occasionally
// reports "completed" instead of "succeeded"; both are terminal successes.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
	StatusCompleted  = "completed"
)

// IsTerminalStatus reports whether a training status means the job will
// never change again.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusCanceled, StatusCompleted:
		return true
	}
	return false
}

// IsSuccessStatus reports whether a terminal status means trained weights
// exist.
func IsSuccessStatus(status string) bool {
	return status == StatusSucceeded || status == StatusCompleted
}

// ModelRef returns the "owner/name" reference of the destination model.
func (r *TrainingJobRecord) ModelRef() string {
	return r.Owner + "/" + r.ModelName
}

// VersionRef returns "owner/name:version" for running the fine-tuned
// model, or the bare model ref when no version is recorded yet.
func (r *TrainingJobRecord) VersionRef() string {
	if r.Version == "" {
		return r.ModelRef()
	}
	return r.ModelRef() + ":" + r.Version
}

// Merge applies a progress update to the record, returning the updated
// copy. Only Status, Error, Version, Weights, and UpdatedAt change;
// identity fields are preserved even if the update carries different
// values for them.
func (r TrainingJobRecord) Merge(update TrainingJobRecord, now time.Time) TrainingJobRecord {
	if update.Status != "" {
		r.Status = update.Status
	}
	r.Error = update.Error
	if update.Version != "" {
		r.Version = update.Version
	}
	if update.Weights != "" {
		r.Weights = update.Weights
	}
	r.UpdatedAt = now
	return r
}

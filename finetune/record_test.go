package finetune

import (
	"testing"
	"time"
)

func TestIsTerminalStatus(t *testing.T) {
	terminal := []string{StatusSucceeded, StatusFailed, StatusCanceled, StatusCompleted}
	for _, s := range terminal {
		if !IsTerminalStatus(s) {
			t.Errorf("IsTerminalStatus(%q) = false, want true", s)
		}
	}
	running := []string{StatusStarting, StatusProcessing, "", "queued"}
	for _, s := range running {
		if IsTerminalStatus(s) {
			t.Errorf("IsTerminalStatus(%q) = true, want false", s)
		}
	}
}

func TestIsSuccessStatus(t *testing.T) {
	if !IsSuccessStatus(StatusSucceeded) || !IsSuccessStatus(StatusCompleted) {
		t.Error("succeeded and completed must both count as success")
	}
	if IsSuccessStatus(StatusFailed) || IsSuccessStatus(StatusProcessing) {
		t.Error("failed/processing must not count as success")
	}
}

func TestRecordMergePreservesIdentity(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := created.Add(30 * time.Second)

	base := TrainingJobRecord{
		ID:          "train-1",
		Owner:       "acme",
		ModelName:   "mia",
		TriggerWord: "SUBJECT_A1B2C3",
		InputURL:    "https://files/mia.zip",
		Status:      StatusProcessing,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	update := TrainingJobRecord{
		ID:          "other-id",
		Owner:       "other-owner",
		TriggerWord: "SUBJECT_ZZZZZZ",
		InputURL:    "https://files/other.zip",
		Status:      StatusSucceeded,
		Version:     "v123",
		Weights:     "https://weights/mia.tar",
		CreatedAt:   later,
	}

	got := base.Merge(update, later)

	if got.ID != "train-1" || got.Owner != "acme" || got.ModelName != "mia" {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.TriggerWord != "SUBJECT_A1B2C3" {
		t.Errorf("trigger word changed to %q", got.TriggerWord)
	}
	if got.InputURL != "https://files/mia.zip" {
		t.Errorf("InputURL changed to %q", got.InputURL)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed to %v", got.CreatedAt)
	}
	if got.Status != StatusSucceeded || got.Version != "v123" || got.Weights != "https://weights/mia.tar" {
		t.Errorf("progress fields not merged: %+v", got)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
}

func TestRecordMergeClearsError(t *testing.T) {
	base := TrainingJobRecord{ID: "t1", Status: StatusProcessing, Error: "transient"}
	got := base.Merge(TrainingJobRecord{Status: StatusProcessing}, time.Now())
	if got.Error != "" {
		t.Errorf("Error = %q, want cleared when update carries none", got.Error)
	}
}

func TestVersionRef(t *testing.T) {
	r := TrainingJobRecord{Owner: "acme", ModelName: "mia"}
	if got := r.VersionRef(); got != "acme/mia" {
		t.Errorf("VersionRef() without version = %q", got)
	}
	r.Version = "v9"
	if got := r.VersionRef(); got != "acme/mia:v9" {
		t.Errorf("VersionRef() = %q, want acme/mia:v9", got)
	}
}

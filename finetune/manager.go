package finetune

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"storybook_backend/logging"
	"storybook_backend/replicate"
)

// ErrNotFound is returned when no training record exists for an ID.
var ErrNotFound = errors.New("Training not found")

// RecordStore persists training job records. Implementations live in the
// db package; List returns records newest-first.
type RecordStore interface {
	Save(ctx context.Context, record TrainingJobRecord) error
	Get(ctx context.Context, id string) (*TrainingJobRecord, error)
	List(ctx context.Context) ([]TrainingJobRecord, error)
	TriggerWordExists(ctx context.Context, word string) (bool, error)
}

// Gateway is the slice of the model gateway the manager uses. Satisfied
// by *replicate.Client.
type Gateway interface {
	EnsureModel(ctx context.Context, owner, name, visibility, hardware, description string) (*replicate.Model, error)
	UploadFile(ctx context.Context, filename string, content io.Reader) (*replicate.FileUploadResponse, error)
	StartTraining(ctx context.Context, trainerModel, trainerVersion, destination string, input map[string]interface{}) (*replicate.Training, error)
	GetTraining(ctx context.Context, id string) (*replicate.Training, error)
}

// ManagerConfig carries the gateway and trainer settings the manager
// needs from core.Config.
type ManagerConfig struct {
	Owner             string
	TrainerModel      string
	TrainerVersion    string
	ModelVisibility   string
	ModelHardware     string
	TriggerWordPrefix string
	TrainingSteps     int
}

// Manager orchestrates the fine-tune lifecycle: it packages portraits,
// provisions the destination model, launches training, and keeps the
// record store in sync with the gateway.
type Manager struct {
	gateway Gateway
	store   RecordStore
	cfg     ManagerConfig
	logger  *logging.Logger
	now     func() time.Time
}

// NewManager creates a Manager. TrainingSteps defaults to 1000 when
// unset.
func NewManager(gateway Gateway, store RecordStore, cfg ManagerConfig, logger *logging.Logger) *Manager {
	if cfg.TrainingSteps <= 0 {
		cfg.TrainingSteps = 1000
	}
	return &Manager{
		gateway: gateway,
		store:   store,
		cfg:     cfg,
		logger:  logger.Named("finetune"),
		now:     time.Now,
	}
}

// uniqueTriggerWord generates trigger words until one is unused. The
// collision space is 36^6 so retries are effectively never needed, but a
// duplicate trigger would make two children's models answer the same
// token.
func (m *Manager) uniqueTriggerWord(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		word, err := GenerateTriggerWord(m.cfg.TriggerWordPrefix)
		if err != nil {
			return "", err
		}
		exists, err := m.store.TriggerWordExists(ctx, word)
		if err != nil {
			return "", fmt.Errorf("checking trigger word uniqueness: %w", err)
		}
		if !exists {
			return word, nil
		}
	}
	return "", errors.New("could not generate a unique trigger word")
}

// SubmitTraining packages the uploaded portraits, ensures the destination
// model exists, and launches a fine-tune job. The returned record is
// already persisted.
func (m *Manager) SubmitTraining(ctx context.Context, childName string, images []UploadedImage) (*TrainingJobRecord, error) {
	archive, err := BuildTrainingArchive(images)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, childName, archive)
}

// SubmitTrainingArchive launches a fine-tune job from a pre-built zip of
// portrait images, skipping the packaging step.
func (m *Manager) SubmitTrainingArchive(ctx context.Context, childName string, archive io.Reader) (*TrainingJobRecord, error) {
	data, err := io.ReadAll(archive)
	if err != nil {
		return nil, fmt.Errorf("reading training archive: %w", err)
	}
	return m.submit(ctx, childName, data)
}

func (m *Manager) submit(ctx context.Context, childName string, archive []byte) (*TrainingJobRecord, error) {
	modelName := SanitizeModelName(childName)
	triggerWord, err := m.uniqueTriggerWord(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := m.gateway.EnsureModel(ctx, m.cfg.Owner, modelName, m.cfg.ModelVisibility, m.cfg.ModelHardware,
		fmt.Sprintf("Storybook fine-tune for %s", childName)); err != nil {
		return nil, fmt.Errorf("ensuring destination model: %w", err)
	}

	upload, err := m.gateway.UploadFile(ctx, modelName+"-portraits.zip", bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("uploading training images: %w", err)
	}

	training, err := m.gateway.StartTraining(ctx, m.cfg.TrainerModel, m.cfg.TrainerVersion,
		m.cfg.Owner+"/"+modelName, map[string]interface{}{
			"input_images": upload.URLs.Get,
			"trigger_word": triggerWord,
			"steps":        m.cfg.TrainingSteps,
		})
	if err != nil {
		return nil, fmt.Errorf("starting training: %w", err)
	}

	now := m.now()
	status := training.Status
	if status == "" {
		status = StatusStarting
	}
	record := TrainingJobRecord{
		ID:          training.ID,
		Owner:       m.cfg.Owner,
		ModelName:   modelName,
		TriggerWord: triggerWord,
		InputURL:    upload.URLs.Get,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting training record: %w", err)
	}

	m.logger.Info("training submitted",
		zap.String("training_id", record.ID),
		zap.String("model", record.ModelRef()),
		zap.String("trigger_word", record.TriggerWord),
	)
	return &record, nil
}

// GetRecord returns the stored record for a training job without
// touching the gateway. ErrNotFound when no record exists.
func (m *Manager) GetRecord(ctx context.Context, id string) (*TrainingJobRecord, error) {
	return m.store.Get(ctx, id)
}

// GetStatus returns the current state of a training job alongside the
// gateway's live view of it. The stored record is refreshed from the
// remote state while the job is running; terminal records never change
// again and are returned as stored. When the gateway lookup fails, the
// last-known record is returned alongside the error so callers can
// surface both.
func (m *Manager) GetStatus(ctx context.Context, id string) (*TrainingJobRecord, *replicate.Training, error) {
	record, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	training, err := m.gateway.GetTraining(ctx, id)
	if err != nil {
		return record, nil, fmt.Errorf("fetching training status: %w", err)
	}
	if IsTerminalStatus(record.Status) {
		return record, training, nil
	}

	update := TrainingJobRecord{Status: training.Status, Error: training.Error}
	if training.Output != nil {
		update.Version = training.Output.Version
		update.Weights = training.Output.Weights
	}
	merged := record.Merge(update, m.now())
	if err := m.store.Save(ctx, merged); err != nil {
		return record, training, fmt.Errorf("persisting training update: %w", err)
	}

	if IsTerminalStatus(merged.Status) {
		m.logger.Info("training finished",
			zap.String("training_id", merged.ID),
			zap.String("status", merged.Status),
		)
	}
	return &merged, training, nil
}

// ListRecords returns all training records, newest first.
func (m *Manager) ListRecords(ctx context.Context) ([]TrainingJobRecord, error) {
	return m.store.List(ctx)
}

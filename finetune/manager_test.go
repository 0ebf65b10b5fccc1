package finetune

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"storybook_backend/logging"
	"storybook_backend/replicate"
)

// fakeGateway records calls and serves canned training states.
type fakeGateway struct {
	mu             sync.Mutex
	models         map[string]bool
	trainings      map[string]*replicate.Training
	uploads        []string
	trainingInput  map[string]interface{}
	getTrainingErr error
	nextID         int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		models:    make(map[string]bool),
		trainings: make(map[string]*replicate.Training),
	}
}

func (g *fakeGateway) EnsureModel(ctx context.Context, owner, name, visibility, hardware, description string) (*replicate.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.models[owner+"/"+name] = true
	return &replicate.Model{Owner: owner, Name: name}, nil
}

func (g *fakeGateway) UploadFile(ctx context.Context, filename string, content io.Reader) (*replicate.FileUploadResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uploads = append(g.uploads, filename)
	resp := &replicate.FileUploadResponse{ID: "file-1", Name: filename}
	resp.URLs.Get = "https://files/file-1"
	return resp, nil
}

func (g *fakeGateway) StartTraining(ctx context.Context, trainerModel, trainerVersion, destination string, input map[string]interface{}) (*replicate.Training, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.trainingInput = input
	tr := &replicate.Training{ID: "train-" + string(rune('0'+g.nextID)), Status: StatusStarting}
	g.trainings[tr.ID] = tr
	return tr, nil
}

func (g *fakeGateway) GetTraining(ctx context.Context, id string) (*replicate.Training, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getTrainingErr != nil {
		return nil, g.getTrainingErr
	}
	tr, ok := g.trainings[id]
	if !ok {
		return nil, &replicate.APIError{StatusCode: 404, Body: "not found"}
	}
	snapshot := *tr
	return &snapshot, nil
}

func (g *fakeGateway) setStatus(id, status string, output *replicate.TrainingOutput) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trainings[id].Status = status
	g.trainings[id].Output = output
}

// fakeStore is an in-memory RecordStore.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]TrainingJobRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]TrainingJobRecord)}
}

func (s *fakeStore) Save(ctx context.Context, record TrainingJobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*TrainingJobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *fakeStore) List(ctx context.Context) ([]TrainingJobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrainingJobRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) TriggerWordExists(ctx context.Context, word string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.TriggerWord == word {
			return true, nil
		}
	}
	return false, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeGateway, *fakeStore) {
	t.Helper()
	gw := newFakeGateway()
	store := newFakeStore()
	m := NewManager(gw, store, ManagerConfig{
		Owner:             "acme",
		TrainerModel:      "ostris/flux-dev-lora-trainer",
		TrainerVersion:    "abc123",
		ModelVisibility:   "private",
		ModelHardware:     "gpu-t4",
		TriggerWordPrefix: "SUBJECT",
	}, logging.NewNop())
	return m, gw, store
}

func portraits() []UploadedImage {
	return []UploadedImage{
		{Filename: "a.jpg", Content: strings.NewReader("a")},
		{Filename: "b.png", Content: strings.NewReader("b")},
	}
}

func TestSubmitTraining(t *testing.T) {
	m, gw, store := newTestManager(t)

	record, err := m.SubmitTraining(context.Background(), "Mia Carter", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}
	if record.ModelName != "mia-carter" {
		t.Errorf("ModelName = %q, want mia-carter", record.ModelName)
	}
	if !strings.HasPrefix(record.TriggerWord, "SUBJECT_") {
		t.Errorf("TriggerWord = %q", record.TriggerWord)
	}
	if record.Status != StatusStarting {
		t.Errorf("Status = %q, want starting", record.Status)
	}
	if !gw.models["acme/mia-carter"] {
		t.Error("destination model not ensured")
	}
	if gw.trainingInput["trigger_word"] != record.TriggerWord {
		t.Errorf("training input trigger_word = %v", gw.trainingInput["trigger_word"])
	}
	if gw.trainingInput["input_images"] != "https://files/file-1" {
		t.Errorf("training input input_images = %v", gw.trainingInput["input_images"])
	}
	if record.InputURL != "https://files/file-1" {
		t.Errorf("InputURL = %q, want the uploaded archive URL", record.InputURL)
	}

	saved, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if saved.TriggerWord != record.TriggerWord {
		t.Errorf("persisted record differs: %+v", saved)
	}
}

func TestSubmitTrainingNoImages(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.SubmitTraining(context.Background(), "Mia", nil)
	if !errors.Is(err, ErrNoImagesFound) {
		t.Errorf("SubmitTraining() error = %v, want ErrNoImagesFound", err)
	}
}

func TestGetStatusRefreshesRunningJob(t *testing.T) {
	m, gw, _ := newTestManager(t)
	record, err := m.SubmitTraining(context.Background(), "Mia", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}

	gw.setStatus(record.ID, StatusSucceeded, &replicate.TrainingOutput{
		Version: "v42",
		Weights: "https://weights/mia.tar",
	})

	got, remote, err := m.GetStatus(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if got.Status != StatusSucceeded || got.Version != "v42" {
		t.Errorf("GetStatus() = %+v", got)
	}
	if remote == nil || remote.Status != StatusSucceeded {
		t.Errorf("remote training = %+v", remote)
	}
	if got.TriggerWord != record.TriggerWord || !got.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("identity fields changed on refresh: %+v", got)
	}
}

func TestGetStatusTerminalReturnsRemoteWithoutMerge(t *testing.T) {
	m, gw, store := newTestManager(t)
	record, err := m.SubmitTraining(context.Background(), "Mia", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}
	gw.setStatus(record.ID, StatusSucceeded, &replicate.TrainingOutput{Version: "v42"})
	first, _, err := m.GetStatus(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}

	// The record is terminal now; later remote drift must not be merged
	// back in, but the live remote still rides along for the caller.
	gw.setStatus(record.ID, StatusCanceled, nil)
	got, remote, err := m.GetStatus(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetStatus() on terminal record error = %v", err)
	}
	if remote == nil || remote.Status != StatusCanceled {
		t.Errorf("remote = %+v, want the gateway's live view", remote)
	}
	if got.Status != StatusSucceeded || got.Version != "v42" {
		t.Errorf("terminal record changed: %+v", got)
	}
	saved, _ := store.Get(context.Background(), record.ID)
	if saved.Status != StatusSucceeded || !saved.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("terminal record re-saved: %+v", saved)
	}
}

func TestGetStatusGatewayFailureReturnsLastKnown(t *testing.T) {
	m, gw, _ := newTestManager(t)
	record, err := m.SubmitTraining(context.Background(), "Mia", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}

	gw.getTrainingErr = errors.New("gateway down")
	got, _, err := m.GetStatus(context.Background(), record.ID)
	if err == nil {
		t.Fatal("GetStatus() succeeded, want gateway error")
	}
	if got == nil || got.ID != record.ID {
		t.Errorf("last-known record not returned alongside error: %v", got)
	}
}

func TestGetStatusUnknownID(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, _, err := m.GetStatus(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStatus() error = %v, want ErrNotFound", err)
	}
}

func TestListRecordsNewestFirst(t *testing.T) {
	m, _, store := newTestManager(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		store.Save(context.Background(), TrainingJobRecord{
			ID:        "t" + string(rune('0'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	records, err := m.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(records) != 3 || records[0].ID != "t2" || records[2].ID != "t0" {
		t.Errorf("ListRecords() order = %v", records)
	}
}

func TestPollerConvergesToTerminal(t *testing.T) {
	m, gw, _ := newTestManager(t)
	record, err := m.SubmitTraining(context.Background(), "Mia", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}

	poller := NewStatusPoller(m, 10*time.Millisecond)
	poller.Track(context.Background(), record.ID)

	gw.setStatus(record.ID, StatusSucceeded, &replicate.TrainingOutput{Version: "v1"})

	deadline := time.After(2 * time.Second)
	for {
		got, _, err := m.GetStatus(context.Background(), record.ID)
		if err == nil && IsTerminalStatus(got.Status) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller never converged")
		case <-time.After(10 * time.Millisecond):
		}
	}
	poller.Stop()
}

func TestPollerFailStop(t *testing.T) {
	m, gw, _ := newTestManager(t)
	record, err := m.SubmitTraining(context.Background(), "Mia", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}

	gw.getTrainingErr = errors.New("gateway down")
	poller := NewStatusPoller(m, 5*time.Millisecond)
	poller.Track(context.Background(), record.ID)

	// The loop must exit on its own after the first failed poll.
	done := make(chan struct{})
	go func() {
		poller.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller kept running after a failed poll")
	}
}

func TestSubmitTrainingArchivePrebuiltZip(t *testing.T) {
	m, gw, _ := newTestManager(t)

	archive, err := BuildTrainingArchive(portraits())
	if err != nil {
		t.Fatalf("BuildTrainingArchive() error = %v", err)
	}
	record, err := m.SubmitTrainingArchive(context.Background(), "Mia", bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("SubmitTrainingArchive() error = %v", err)
	}
	if record.ModelName != "mia" {
		t.Errorf("ModelName = %q", record.ModelName)
	}
	if len(gw.uploads) != 1 {
		t.Errorf("uploads = %v", gw.uploads)
	}
}

func TestGetRecordDoesNotTouchGateway(t *testing.T) {
	m, gw, _ := newTestManager(t)
	record, err := m.SubmitTraining(context.Background(), "Mia", portraits())
	if err != nil {
		t.Fatalf("SubmitTraining() error = %v", err)
	}

	gw.getTrainingErr = errors.New("gateway down")
	got, err := m.GetRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if got.ID != record.ID || got.Status != StatusStarting {
		t.Errorf("GetRecord() = %+v", got)
	}

	if _, err := m.GetRecord(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecord(unknown) error = %v, want ErrNotFound", err)
	}
}

package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storybook_backend/finetune"
)

func openTestStores(t *testing.T) []finetune.RecordStore {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := Migrate(database, "file://migrations"); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return []finetune.RecordStore{
		NewSQLiteStore(database),
		NewMemoryStore(),
	}
}

func sampleRecord(id string, created time.Time) finetune.TrainingJobRecord {
	return finetune.TrainingJobRecord{
		ID:          id,
		Owner:       "acme",
		ModelName:   "mia",
		TriggerWord: "SUBJECT_" + id,
		InputURL:    "https://files/" + id + ".zip",
		Status:      finetune.StatusProcessing,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	for _, store := range openTestStores(t) {
		ctx := context.Background()
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		record := sampleRecord("t1", created)
		if err := store.Save(ctx, record); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.TriggerWord != "SUBJECT_t1" || got.Status != finetune.StatusProcessing {
			t.Errorf("Get() = %+v", got)
		}
		if got.InputURL != "https://files/t1.zip" {
			t.Errorf("InputURL = %q", got.InputURL)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
		}
	}
}

func TestStoreGetMissing(t *testing.T) {
	for _, store := range openTestStores(t) {
		_, err := store.Get(context.Background(), "missing")
		if !errors.Is(err, finetune.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	}
}

func TestStoreSaveUpdatesProgress(t *testing.T) {
	for _, store := range openTestStores(t) {
		ctx := context.Background()
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		record := sampleRecord("t1", created)
		if err := store.Save(ctx, record); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		record.Status = finetune.StatusSucceeded
		record.Version = "v42"
		record.Weights = "https://weights/mia.tar"
		record.UpdatedAt = created.Add(time.Minute)
		if err := store.Save(ctx, record); err != nil {
			t.Fatalf("second Save() error = %v", err)
		}

		got, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != finetune.StatusSucceeded || got.Version != "v42" {
			t.Errorf("updated record = %+v", got)
		}
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	for _, store := range openTestStores(t) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		for i, id := range []string{"t1", "t2", "t3"} {
			if err := store.Save(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("Save(%s) error = %v", id, err)
			}
		}

		records, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("List() has %d records, want 3", len(records))
		}
		if records[0].ID != "t3" || records[2].ID != "t1" {
			t.Errorf("List() order = %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
		}
	}
}

func TestTriggerWordExists(t *testing.T) {
	for _, store := range openTestStores(t) {
		ctx := context.Background()
		if err := store.Save(ctx, sampleRecord("t1", time.Now().UTC())); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		exists, err := store.TriggerWordExists(ctx, "SUBJECT_t1")
		if err != nil || !exists {
			t.Errorf("TriggerWordExists(existing) = %v, %v", exists, err)
		}
		exists, err = store.TriggerWordExists(ctx, "SUBJECT_OTHER")
		if err != nil || exists {
			t.Errorf("TriggerWordExists(missing) = %v, %v", exists, err)
		}
	}
}

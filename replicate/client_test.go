package replicate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Model{Owner: "acme", Name: "kid-model"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "r8_testtoken", srv.Client())
	if _, err := c.GetModel(context.Background(), "acme", "kid-model"); err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}
	if gotAuth != "Bearer r8_testtoken" {
		t.Errorf("Authorization = %q, want Bearer token", gotAuth)
	}
}

func TestIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "Not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", srv.Client())
	_, err := c.GetModel(context.Background(), "acme", "missing")
	if err == nil {
		t.Fatal("GetModel() succeeded, want 404 error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
	if IsNotFound(context.Canceled) {
		t.Error("IsNotFound(context.Canceled) = true")
	}
}

func TestEnsureModelCreatesWhenMissing(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && !created:
			http.Error(w, `{"detail": "Not found"}`, http.StatusNotFound)
		case r.Method == http.MethodPost:
			created = true
			var req createModelRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Hardware == "" || req.Visibility == "" {
				t.Errorf("create request missing hardware/visibility: %+v", req)
			}
			json.NewEncoder(w).Encode(Model{Owner: req.Owner, Name: req.Name})
		default:
			json.NewEncoder(w).Encode(Model{Owner: "acme", Name: "kid-model"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", srv.Client())
	m, err := c.EnsureModel(context.Background(), "acme", "kid-model", "private", "gpu-t4", "")
	if err != nil {
		t.Fatalf("EnsureModel() error = %v", err)
	}
	if m.Name != "kid-model" || !created {
		t.Errorf("EnsureModel() = %+v, created = %v", m, created)
	}

	// Second call must not create again.
	created = false
	if _, err := c.EnsureModel(context.Background(), "acme", "kid-model", "private", "gpu-t4", ""); err != nil {
		t.Fatalf("second EnsureModel() error = %v", err)
	}
	if created {
		t.Error("EnsureModel() recreated an existing model")
	}
}

func TestStartTrainingPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(Training{ID: "train-1", Status: "starting"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", srv.Client())
	tr, err := c.StartTraining(context.Background(), "ostris/flux-dev-lora-trainer", "abc123", "acme/kid-model", map[string]interface{}{
		"input_images": "https://files/x.zip",
		"trigger_word": "SUBJECT_A1B2C3",
	})
	if err != nil {
		t.Fatalf("StartTraining() error = %v", err)
	}
	want := "/models/ostris/flux-dev-lora-trainer/versions/abc123/trainings"
	if gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if tr.ID != "train-1" || tr.Status != "starting" {
		t.Errorf("training = %+v", tr)
	}
}

func TestTrainingErrorDecoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string error", `{"id": "t1", "status": "failed", "error": "out of credit"}`, "out of credit"},
		{"structured error", `{"id": "t1", "status": "failed", "error": {"code": 7}}`, `{"code": 7}`},
		{"null error", `{"id": "t1", "status": "processing", "error": null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Training
			if err := json.Unmarshal([]byte(tt.body), &tr); err != nil {
				t.Fatalf("Unmarshal error = %v", err)
			}
			if tr.Error != tt.want {
				t.Errorf("Error = %q, want %q", tr.Error, tt.want)
			}
		})
	}
}

func TestRunPreferWait(t *testing.T) {
	var gotPrefer, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "pred-1",
			"status": "succeeded",
			"output": []string{"https://cdn/out.png"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", srv.Client())

	// Versioned ref goes to /predictions with the version hash.
	p, err := c.Run(context.Background(), "lucataco/remove-bg:95fcc2a2", map[string]interface{}{"image": "https://x/in.png"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gotPrefer != "wait" {
		t.Errorf("Prefer header = %q, want wait", gotPrefer)
	}
	if gotPath != "/predictions" {
		t.Errorf("path = %q, want /predictions", gotPath)
	}
	url, err := NormalizeOutput(p.Output)
	if err != nil || url != "https://cdn/out.png" {
		t.Errorf("normalized output = %q, %v", url, err)
	}

	// Bare model ref goes through the models endpoint.
	if _, err := c.Run(context.Background(), "acme/kid-model", map[string]interface{}{"prompt": "x"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gotPath != "/models/acme/kid-model/predictions" {
		t.Errorf("path = %q, want models predictions endpoint", gotPath)
	}
}

func TestRunFailedPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "pred-2",
			"status": "failed",
			"error":  "NSFW content detected",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", srv.Client())
	_, err := c.Run(context.Background(), "acme/kid-model", map[string]interface{}{"prompt": "x"})
	if err == nil {
		t.Fatal("Run() succeeded on failed prediction")
	}
	if !strings.Contains(err.Error(), "NSFW content detected") {
		t.Errorf("error = %v, want model error surfaced", err)
	}
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("path = %q, want /files", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		f, hdr, err := r.FormFile("content")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		f.Close()
		if hdr.Filename != "portraits.zip" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "file-1",
			"name": hdr.Filename,
			"urls": map[string]string{"get": "https://files/file-1"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", srv.Client())
	resp, err := c.UploadFile(context.Background(), "portraits.zip", strings.NewReader("zipdata"))
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if resp.URLs.Get != "https://files/file-1" {
		t.Errorf("serving URL = %q", resp.URLs.Get)
	}
}

package webui

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storybook_backend/compositor"
	"storybook_backend/finetune"
	"storybook_backend/pipeline"
	"storybook_backend/slides"
)

// handleFineTune accepts a multipart portrait upload and launches a
// fine-tune job. Fields: modelName, plus either a pre-built zip file or
// repeated images files.
func (s *Server) handleFineTune(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	modelName := strings.TrimSpace(r.FormValue("modelName"))
	if modelName == "" {
		writeJSONError(w, http.StatusBadRequest, "modelName is required")
		return
	}

	var record *finetune.TrainingJobRecord
	var err error
	if headers := r.MultipartForm.File["zip"]; len(headers) > 0 {
		f, openErr := headers[0].Open()
		if openErr != nil {
			writeJSONError(w, http.StatusBadRequest, "reading upload: "+openErr.Error())
			return
		}
		defer f.Close()
		record, err = s.manager.SubmitTrainingArchive(r.Context(), modelName, f)
	} else {
		var images []finetune.UploadedImage
		var closers []interface{ Close() error }
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		for _, header := range r.MultipartForm.File["images"] {
			f, openErr := header.Open()
			if openErr != nil {
				writeJSONError(w, http.StatusBadRequest, "reading upload: "+openErr.Error())
				return
			}
			closers = append(closers, f)
			images = append(images, finetune.UploadedImage{Filename: header.Filename, Content: f})
		}
		record, err = s.manager.SubmitTraining(r.Context(), modelName, images)
	}
	if err != nil {
		s.logger.Error("training submission failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.poller.Track(s.baseCtx, record.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"trainingId":  record.ID,
		"triggerWord": record.TriggerWord,
		"record":      record,
	})
}

// handleFineTuneRecord returns the stored record for one training job
// without consulting the gateway.
func (s *Server) handleFineTuneRecord(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("trainingId")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "trainingId is required")
		return
	}
	record, err := s.manager.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, finetune.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Training not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"record": record})
}

// handleFineTuneStatus reports the state of one training job, refreshed
// from the gateway. On a gateway failure the last-known record rides
// along with the error.
func (s *Server) handleFineTuneStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("trainingId")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "trainingId is required")
		return
	}

	record, remote, err := s.manager.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, finetune.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Training not found")
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:  err.Error(),
			Record: record,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"record": record,
		"remote": remote,
	})
}

// handleFineTuneRecords lists all training records, newest first.
func (s *Server) handleFineTuneRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.manager.ListRecords(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []finetune.TrainingJobRecord{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

type inferenceRequest struct {
	SlideID          string `json:"slideId"`
	SlideTitle       string `json:"slideTitle"`
	SlideDescription string `json:"slideDescription"`
	BackgroundImage  string `json:"backgroundImage"`
	ModelVersion     string `json:"modelVersion"`
	TriggerWord      string `json:"triggerWord"`
	StoryContext     string `json:"storyContext"`
	// TrainingID resolves ModelVersion and TriggerWord from a stored
	// record when the client does not carry them.
	TrainingID string `json:"trainingId"`
}

type inferenceResponse struct {
	Prompt          string   `json:"prompt"`
	Rationale       string   `json:"rationale,omitempty"`
	RawImages       []string `json:"rawImages,omitempty"`
	CleanedImage    string   `json:"cleanedImage,omitempty"`
	CompositedImage string   `json:"compositedImage,omitempty"`
}

// handleStoryInference generates the personalized image for one slide
// with the fine-tuned model. Progress streams over the websocket; when
// the slide is loaded in the store its state follows the run.
func (s *Server) handleStoryInference(w http.ResponseWriter, r *http.Request) {
	var req inferenceRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.TrainingID != "" && (req.ModelVersion == "" || req.TriggerWord == "") {
		record, err := s.manager.GetRecord(r.Context(), req.TrainingID)
		if err != nil {
			if errors.Is(err, finetune.ErrNotFound) {
				writeJSONError(w, http.StatusNotFound, "Training not found")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !finetune.IsSuccessStatus(record.Status) {
			writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("training %s is %s, not finished", record.ID, record.Status))
			return
		}
		req.ModelVersion = record.VersionRef()
		req.TriggerWord = record.TriggerWord
	}
	if req.SlideID == "" || req.ModelVersion == "" || req.TriggerWord == "" {
		writeJSONError(w, http.StatusBadRequest, "slideId, modelVersion and triggerWord are required")
		return
	}
	if req.BackgroundImage == "" {
		if slide, err := s.slides.Get(req.SlideID); err == nil {
			req.BackgroundImage = slide.BaseImage
		}
	}
	if req.BackgroundImage == "" {
		writeJSONError(w, http.StatusBadRequest, "backgroundImage is required")
		return
	}

	// Fence the run when the slide is loaded in the story store, so a
	// portrait change mid-run invalidates the result.
	token, trackErr := s.slides.BeginGeneration(req.SlideID)
	tracked := trackErr == nil

	result, genErr := s.strategy.Generate(r.Context(), pipeline.GenerationInput{
		SlideID:     req.SlideID,
		SlideImage:  req.BackgroundImage,
		SceneNotes:  sceneNotes(req),
		TriggerWord: req.TriggerWord,
		ModelRef:    req.ModelVersion,
	})
	if tracked {
		outcome := slides.Outcome{}
		if result != nil {
			url, cutout := result.FinalImage()
			outcome = slides.Outcome{
				ImageURL:  url,
				Cutout:    cutout,
				Prompt:    result.Prompt,
				Rationale: result.Rationale,
			}
		}
		if _, err := s.slides.CompleteGeneration(req.SlideID, token, outcome, genErr); err != nil {
			s.logger.Warn("recording generation result", zap.Error(err))
		}
	}
	if genErr != nil {
		writeJSONError(w, http.StatusInternalServerError, genErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, inferenceResponse{
		Prompt:          result.Prompt,
		Rationale:       result.Rationale,
		RawImages:       result.RawImages,
		CleanedImage:    result.CleanedImage,
		CompositedImage: result.CompositedImage,
	})
}

// sceneNotes folds the slide's title, description, and story context
// into the notes handed to prompt synthesis.
func sceneNotes(req inferenceRequest) string {
	var parts []string
	for _, p := range []string{req.SlideTitle, req.SlideDescription, req.StoryContext} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, "\n")
}

type faceSwapRequest struct {
	// SlideImage is the target the face is placed onto.
	SlideImage string `json:"slideImage"`
	// UserImage is the portrait supplying the face; when empty the
	// last uploaded portrait is used.
	UserImage string `json:"userImage"`
}

// handleFaceSwap applies the portrait face onto a slide image.
func (s *Server) handleFaceSwap(w http.ResponseWriter, r *http.Request) {
	var req faceSwapRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.UserImage == "" {
		s.mu.Lock()
		req.UserImage = s.portraitURL
		s.mu.Unlock()
	}
	if req.UserImage == "" || req.SlideImage == "" {
		writeJSONError(w, http.StatusBadRequest, "slideImage and userImage are required")
		return
	}

	url, err := s.faceSwapper.Swap(r.Context(), req.UserImage, req.SlideImage)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "imageUrl": url})
}

// handleStoryUpload loads a storybook: either a YAML manifest (field
// "manifest") or a PDF (field "storybook") whose pages seed the slides.
func (s *Server) handleStoryUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	if headers := r.MultipartForm.File["manifest"]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "reading manifest: "+err.Error())
			return
		}
		defer f.Close()
		manifest, err := slides.ParseManifest(f)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.slides.LoadStory(manifest)
		s.respondStory(w)
		return
	}

	headers := r.MultipartForm.File["storybook"]
	if len(headers) == 0 {
		writeJSONError(w, http.StatusBadRequest, "manifest or storybook file is required")
		return
	}
	f, err := headers[0].Open()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "reading storybook: "+err.Error())
		return
	}
	defer f.Close()

	// The PDF parser needs a seekable file on disk.
	tmp, err := os.CreateTemp("", "storybook-*.pdf")
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "staging upload: "+err.Error())
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.ReadFrom(f); err != nil {
		tmp.Close()
		writeJSONError(w, http.StatusInternalServerError, "staging upload: "+err.Error())
		return
	}
	tmp.Close()

	doc, err := s.extractText(tmp.Name())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "parsing storybook PDF: "+err.Error())
		return
	}

	title := strings.TrimSuffix(headers[0].Filename, filepath.Ext(headers[0].Filename))
	manifest := &slides.Manifest{Title: title}
	for _, page := range doc.Pages {
		manifest.Slides = append(manifest.Slides, slides.ManifestSlide{
			ID:   fmt.Sprintf("page-%d", page.Number),
			Page: page.Number,
			Text: page.Text,
		})
	}
	s.slides.LoadStory(manifest)
	s.respondStory(w)
}

type portraitRequest struct {
	PortraitURL string `json:"portraitUrl"`
	// SlideID scopes the portrait to one slide. Without it the portrait
	// becomes the session portrait and every slide is invalidated.
	SlideID string `json:"slideId"`
}

// handlePortrait records a user portrait and invalidates the generated
// results that depict the previous subject: one slide when slideId is
// given, every slide otherwise.
func (s *Server) handlePortrait(w http.ResponseWriter, r *http.Request) {
	var req portraitRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.PortraitURL == "" {
		writeJSONError(w, http.StatusBadRequest, "portraitUrl is required")
		return
	}

	if req.SlideID != "" {
		if err := s.slides.SetUserPortrait(req.SlideID, req.PortraitURL); err != nil {
			writeJSONError(w, http.StatusNotFound, "slide not found")
			return
		}
		s.respondStory(w)
		return
	}

	s.mu.Lock()
	s.portraitURL = req.PortraitURL
	s.mu.Unlock()
	s.slides.ResetGenerated()
	s.respondStory(w)
}

// handleSlides returns the loaded story and its slide states.
func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request) {
	s.respondStory(w)
}

func (s *Server) respondStory(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":    s.slides.Title(),
		"selected": s.slides.Selected(),
		"slides":   s.slides.List(),
	})
}

type selectSlideRequest struct {
	SlideID string `json:"slideId"`
}

// handleSelectSlide marks the slide the user is working on.
func (s *Server) handleSelectSlide(w http.ResponseWriter, r *http.Request) {
	var req selectSlideRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := s.slides.SelectSlide(req.SlideID); err != nil {
		writeJSONError(w, http.StatusNotFound, "slide not found")
		return
	}
	s.respondStory(w)
}

// handleStoryExport flattens the current slides into a downloadable PDF.
// Cutout results are composited onto their base artwork server-side.
func (s *Server) handleStoryExport(w http.ResponseWriter, r *http.Request) {
	var pages []image.Image
	for _, slide := range s.slides.List() {
		img, err := s.exportImage(r, slide)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("preparing slide %s: %s", slide.ID, err))
			return
		}
		if img != nil {
			pages = append(pages, img)
		}
	}
	if len(pages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no slides with images to export")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="storybook.pdf"`)
	if err := s.exporter.WritePDF(w, pages); err != nil {
		// Headers are gone; all that is left is logging it.
		s.logger.Error("PDF export failed", zap.Error(err))
	}
}

// exportImage resolves the printable image for one slide, or nil when
// the slide has nothing to show.
func (s *Server) exportImage(r *http.Request, slide slides.Slide) (image.Image, error) {
	switch {
	case slide.GeneratedImage != "" && !slide.Cutout:
		return s.fetcher.Fetch(r.Context(), slide.GeneratedImage)
	case slide.GeneratedImage != "" && slide.Cutout:
		base, err := s.fetcher.Fetch(r.Context(), slide.BaseImage)
		if err != nil {
			return nil, err
		}
		cutout, err := s.fetcher.Fetch(r.Context(), slide.GeneratedImage)
		if err != nil {
			return nil, err
		}
		return compositor.Compose(base, cutout, s.composeOpts), nil
	case slide.BaseImage != "":
		return s.fetcher.Fetch(r.Context(), slide.BaseImage)
	default:
		return nil, nil
	}
}

// handleHealth reports liveness plus a few gauges.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"wsClients": s.hub.ClientCount(),
	})
}

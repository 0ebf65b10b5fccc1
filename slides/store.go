package slides

import (
	"errors"
	"sync"
)

// Slide generation statuses.
const (
	StatusIdle    = "idle"
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusError   = "error"
)

// ErrSlideNotFound is returned for operations on unknown slide IDs.
var ErrSlideNotFound = errors.New("slide not found")

// Slide is the generation state of one storybook page.
type Slide struct {
	ID string `json:"id"`
	// Page is the source PDF page number, when the story came from a
	// PDF upload.
	Page int `json:"page,omitempty"`
	// BaseImage is the authored artwork.
	BaseImage string `json:"baseImage,omitempty"`
	// GeneratedImage is the personalized result, when one exists.
	GeneratedImage string `json:"generatedImage,omitempty"`
	// Cutout is true when GeneratedImage is an isolated character that
	// still needs compositing onto the base artwork.
	Cutout    bool   `json:"cutout,omitempty"`
	// UserImage is a portrait attached to this slide specifically,
	// overriding the session portrait for its generations.
	UserImage string `json:"userImage,omitempty"`
	Text      string `json:"text,omitempty"`
	Scene     string `json:"scene,omitempty"`
	Status    string `json:"status"`
	Prompt    string `json:"prompt,omitempty"`
	Rationale string `json:"rationale,omitempty"`
	// Progress is a human-readable note on the current pipeline stage.
	Progress string `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Patch is a partial slide update; nil fields are left untouched.
type Patch struct {
	Status   *string
	Progress *string
	Error    *string
}

// Outcome is a finished generation as recorded on a slide.
type Outcome struct {
	ImageURL string
	// Cutout marks isolated character results from the legacy flow.
	Cutout    bool
	Prompt    string
	Rationale string
}

// Store holds the in-memory slide state for the loaded story. Generation
// runs concurrently with user actions, so each slide carries a monotonic
// generation counter: a result from generation N is dropped when
// generation N+1 has already started (for example because the portrait
// was replaced mid-run).
type Store struct {
	mu       sync.RWMutex
	title    string
	selected string
	order    []string
	slides   map[string]*slideState
}

type slideState struct {
	slide      Slide
	generation uint64
}

// NewStore creates an empty Store; call LoadStory before use.
func NewStore() *Store {
	return &Store{slides: make(map[string]*slideState)}
}

// LoadStory replaces the store's contents with the manifest's slides.
// Slides with base artwork start ready; slides without start idle. Any
// in-flight generation results for the previous story become stale.
func (s *Store) LoadStory(m *Manifest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.title = m.Title
	s.selected = ""
	s.order = s.order[:0]
	prev := s.slides
	s.slides = make(map[string]*slideState, len(m.Slides))

	for _, ms := range m.Slides {
		status := StatusIdle
		if ms.Image != "" {
			status = StatusReady
		}
		state := &slideState{
			slide: Slide{
				ID:        ms.ID,
				Page:      ms.Page,
				BaseImage: ms.Image,
				Text:      ms.Text,
				Scene:     ms.Scene,
				Status:    status,
			},
		}
		// Carry the counter forward so results from the old story's
		// runs can never land on the reloaded slide.
		if old, ok := prev[ms.ID]; ok {
			state.generation = old.generation + 1
		}
		s.slides[ms.ID] = state
		s.order = append(s.order, ms.ID)
	}
}

// Clear drops the loaded story entirely. In-flight runs are fenced the
// same way a reload fences them.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = ""
	s.selected = ""
	s.order = s.order[:0]
	s.slides = make(map[string]*slideState)
}

// Title returns the loaded story's title.
func (s *Store) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// SelectSlide marks the slide the user is working on.
func (s *Store) SelectSlide(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slides[id]; !ok {
		return ErrSlideNotFound
	}
	s.selected = id
	return nil
}

// Selected returns the currently selected slide ID, or "".
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// List returns all slides in reading order.
func (s *Store) List() []Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Slide, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.slides[id].slide)
	}
	return out
}

// Get returns one slide by ID.
func (s *Store) Get(id string) (Slide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.slides[id]
	if !ok {
		return Slide{}, ErrSlideNotFound
	}
	return state.slide, nil
}

// SetStatus merges a partial update into a slide, last write wins.
func (s *Store) SetStatus(id string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.slides[id]
	if !ok {
		return ErrSlideNotFound
	}
	if patch.Status != nil {
		state.slide.Status = *patch.Status
	}
	if patch.Progress != nil {
		state.slide.Progress = *patch.Progress
	}
	if patch.Error != nil {
		state.slide.Error = *patch.Error
	}
	return nil
}

// ResetGenerated clears every slide's personalized image, returning
// slides with artwork to ready and the rest to idle. Called when the
// user portrait changes: results generated for the old subject are
// invalidated, and any still in flight are fenced off.
func (s *Store) ResetGenerated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, state := range s.slides {
		state.generation++
		state.slide.GeneratedImage = ""
		state.slide.Cutout = false
		state.slide.Prompt = ""
		state.slide.Rationale = ""
		state.slide.Progress = ""
		state.slide.Error = ""
		if state.slide.BaseImage != "" {
			state.slide.Status = StatusReady
		} else {
			state.slide.Status = StatusIdle
		}
	}
}

// SetUserPortrait attaches a portrait to one slide and resets it to
// idle: the previous result depicts the old subject, and any run still
// in flight for the slide is fenced off.
func (s *Store) SetUserPortrait(id, imageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.slides[id]
	if !ok {
		return ErrSlideNotFound
	}
	state.generation++
	state.slide.UserImage = imageRef
	state.slide.GeneratedImage = ""
	state.slide.Cutout = false
	state.slide.Prompt = ""
	state.slide.Rationale = ""
	state.slide.Progress = ""
	state.slide.Error = ""
	state.slide.Status = StatusIdle
	return nil
}

// BeginGeneration marks a slide loading and returns the generation token
// that must accompany the eventual result. Starting a new generation
// invalidates any earlier in-flight run for the same slide.
func (s *Store) BeginGeneration(id string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.slides[id]
	if !ok {
		return 0, ErrSlideNotFound
	}
	state.generation++
	state.slide.Status = StatusLoading
	state.slide.Progress = ""
	state.slide.Error = ""
	return state.generation, nil
}

// CompleteGeneration records a finished run. The update only applies
// when token matches the slide's current generation; stale results are
// dropped and reported via the bool return.
func (s *Store) CompleteGeneration(id string, token uint64, outcome Outcome, genErr error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.slides[id]
	if !ok {
		return false, ErrSlideNotFound
	}
	if state.generation != token {
		return false, nil
	}
	state.slide.Progress = ""
	if genErr != nil {
		state.slide.Status = StatusError
		state.slide.Error = genErr.Error()
		return true, nil
	}
	state.slide.GeneratedImage = outcome.ImageURL
	state.slide.Cutout = outcome.Cutout
	state.slide.Prompt = outcome.Prompt
	state.slide.Rationale = outcome.Rationale
	state.slide.Status = StatusReady
	state.slide.Error = ""
	return true, nil
}

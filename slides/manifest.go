// Package slides tracks per-slide generation state for a loaded
// storybook: which slides have artwork, which are mid-generation, and
// which already carry a personalized image.
package slides

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes a storybook: its slides in reading order plus the
// artwork and scene notes for each.
type Manifest struct {
	Title  string          `yaml:"title"`
	Slides []ManifestSlide `yaml:"slides"`
}

// ManifestSlide is one page of the storybook as authored.
type ManifestSlide struct {
	// ID identifies the slide; must be unique within the story.
	ID string `yaml:"id"`
	// Page is the source PDF page number, when known.
	Page int `yaml:"page"`
	// Image is the URL or path of the base artwork. Optional; slides
	// without artwork start idle.
	Image string `yaml:"image"`
	// Text is the story text shown on the slide.
	Text string `yaml:"text"`
	// Scene holds author notes fed to prompt synthesis.
	Scene string `yaml:"scene"`
}

// ParseManifest decodes a storybook manifest from YAML.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing storybook manifest: %w", err)
	}
	if len(m.Slides) == 0 {
		return nil, fmt.Errorf("storybook manifest has no slides")
	}
	seen := make(map[string]bool, len(m.Slides))
	for i, s := range m.Slides {
		if s.ID == "" {
			return nil, fmt.Errorf("slide %d has no id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate slide id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &m, nil
}

// LoadManifestFile reads and parses a manifest from disk.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening storybook manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// Package finetune manages the portrait fine-tuning lifecycle: packaging
// uploaded portraits, launching training jobs on the gateway, recording
// their state, and polling them to completion.
package finetune

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"regexp"
	"strings"
)

// Atoms: pure helpers with no I/O. Everything here is deterministic given
// its inputs (trigger generation excepted, which draws from crypto/rand).

var (
	invalidModelChars = regexp.MustCompile(`[^a-z0-9._-]+`)
	edgePunctuation   = regexp.MustCompile(`^[._-]+|[._-]+$`)
)

const (
	maxModelNameLength = 60
	fallbackModelName  = "storybook"
)

// SanitizeModelName converts a free-form child name into a valid gateway
// model name: lowercase, restricted to [a-z0-9._-], no leading or
// trailing punctuation, at most 60 characters. Names that sanitize to
// nothing fall back to "storybook".
//
// Example:
//
//	SanitizeModelName("Émile O'Brien!")  // "mile-o-brien"
//	SanitizeModelName("---")             // "storybook"
func SanitizeModelName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = invalidModelChars.ReplaceAllString(s, "-")
	s = edgePunctuation.ReplaceAllString(s, "")
	if len(s) > maxModelNameLength {
		// The cut can land right after punctuation.
		s = edgePunctuation.ReplaceAllString(s[:maxModelNameLength], "")
	}
	if s == "" {
		return fallbackModelName
	}
	return s
}

const triggerAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateTriggerWord produces a trigger token of the form
// PREFIX_XXXXXX where XXXXXX is six random base36 characters. The token
// is embedded in every training caption and later in generation prompts
// to invoke the fine-tuned subject.
func GenerateTriggerWord(prefix string) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(triggerAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating trigger word: %w", err)
		}
		suffix[i] = triggerAlphabet[n.Int64()]
	}
	return prefix + "_" + string(suffix), nil
}

// imageExtensions are the portrait formats accepted for training uploads.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// IsImageFile reports whether filename has a supported portrait
// extension.
func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

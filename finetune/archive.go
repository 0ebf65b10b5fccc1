package finetune

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrNoImagesFound is returned when a training upload contains no usable
// portrait files.
var ErrNoImagesFound = errors.New("No image files found in upload")

// UploadedImage is one file from a portrait upload.
type UploadedImage struct {
	Filename string
	Content  io.Reader
}

// BuildTrainingArchive packages portrait images into the zip archive the
// trainer model expects. Non-image files in the upload are skipped; an
// upload with no images at all fails with ErrNoImagesFound.
func BuildTrainingArchive(images []UploadedImage) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	count := 0
	for _, img := range images {
		if !IsImageFile(img.Filename) {
			continue
		}
		w, err := zw.Create(img.Filename)
		if err != nil {
			return nil, fmt.Errorf("adding %q to archive: %w", img.Filename, err)
		}
		if _, err := io.Copy(w, img.Content); err != nil {
			return nil, fmt.Errorf("writing %q to archive: %w", img.Filename, err)
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	if count == 0 {
		return nil, ErrNoImagesFound
	}
	return buf.Bytes(), nil
}

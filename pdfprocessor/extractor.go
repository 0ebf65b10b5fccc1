// Package pdfprocessor handles storybook PDF I/O: pulling text out of an
// uploaded storybook to seed a manifest, and assembling finished slides
// back into a downloadable PDF.
package pdfprocessor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the text content of an uploaded storybook PDF.
type Document struct {
	PageCount int
	Pages     []PageText
}

// PageText is the extracted text of one page. Pages the parser cannot
// read keep their number with empty text.
type PageText struct {
	Number int
	Text   string
}

// ExtractText reads a storybook PDF and returns its per-page text. The
// text seeds the slide manifest so the author only has to fill in scene
// notes.
func ExtractText(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %q: %w", path, err)
	}
	defer f.Close()

	doc := &Document{PageCount: reader.NumPage()}
	for i := 1; i <= doc.PageCount; i++ {
		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			if extracted, err := page.GetPlainText(nil); err == nil {
				text = strings.TrimSpace(extracted)
			}
		}
		doc.Pages = append(doc.Pages, PageText{Number: i, Text: text})
	}
	return doc, nil
}

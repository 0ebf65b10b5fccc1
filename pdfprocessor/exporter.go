package pdfprocessor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

// Exporter assembles finished slide images into a PDF, one image per
// page. Each image is JPEG-encoded and embedded as a DCTDecode XObject,
// with the page sized to the image so slides render edge to edge.
type Exporter struct {
	// Quality is the JPEG quality used for embedded pages.
	Quality int
}

// NewExporter creates an Exporter with the given JPEG quality (1-100).
func NewExporter(quality int) *Exporter {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Exporter{Quality: quality}
}

// offsetWriter tracks byte offsets for the PDF cross-reference table.
type offsetWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (o *offsetWriter) printf(format string, args ...interface{}) {
	if o.err != nil {
		return
	}
	n, err := fmt.Fprintf(o.w, format, args...)
	o.n += int64(n)
	o.err = err
}

func (o *offsetWriter) write(p []byte) {
	if o.err != nil {
		return
	}
	n, err := o.w.Write(p)
	o.n += int64(n)
	o.err = err
}

// WritePDF writes the slides as a PDF document. One point per pixel, so
// a 1024x768 slide becomes a 1024x768pt page.
func (e *Exporter) WritePDF(w io.Writer, slides []image.Image) error {
	if len(slides) == 0 {
		return fmt.Errorf("no slides to export")
	}

	ow := &offsetWriter{w: w}
	ow.printf("%%PDF-1.4\n")

	// Object layout: 1 catalog, 2 page tree, then three objects per
	// slide (page, content stream, image XObject).
	objCount := 2 + 3*len(slides)
	offsets := make([]int64, objCount+1)

	pageObj := func(i int) int { return 3 + 3*i }
	contentObj := func(i int) int { return 4 + 3*i }
	imageObj := func(i int) int { return 5 + 3*i }

	offsets[1] = ow.n
	ow.printf("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = ow.n
	ow.printf("2 0 obj\n<< /Type /Pages /Kids [")
	for i := range slides {
		ow.printf("%d 0 R ", pageObj(i))
	}
	ow.printf("] /Count %d >>\nendobj\n", len(slides))

	for i, img := range slides {
		bounds := img.Bounds()
		width, height := bounds.Dx(), bounds.Dy()

		var jpegBuf bytes.Buffer
		if err := jpeg.Encode(&jpegBuf, img, &jpeg.Options{Quality: e.Quality}); err != nil {
			return fmt.Errorf("encoding slide %d: %w", i+1, err)
		}

		offsets[pageObj(i)] = ow.n
		ow.printf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
			"/Contents %d 0 R /Resources << /XObject << /Im0 %d 0 R >> >> >>\nendobj\n",
			pageObj(i), width, height, contentObj(i), imageObj(i))

		content := fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im0 Do Q", width, height)
		offsets[contentObj(i)] = ow.n
		ow.printf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentObj(i), len(content), content)

		offsets[imageObj(i)] = ow.n
		ow.printf("%d 0 obj\n<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
			"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n",
			imageObj(i), width, height, jpegBuf.Len())
		ow.write(jpegBuf.Bytes())
		ow.printf("\nendstream\nendobj\n")
	}

	xrefOffset := ow.n
	ow.printf("xref\n0 %d\n", objCount+1)
	ow.printf("0000000000 65535 f \n")
	for i := 1; i <= objCount; i++ {
		ow.printf("%010d 00000 n \n", offsets[i])
	}
	ow.printf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		objCount+1, xrefOffset)

	return ow.err
}

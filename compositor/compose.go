// Package compositor places a generated character cutout onto a slide
// background. It implements the legacy pipeline's final stage: the
// character is scaled relative to the slide, anchored near the bottom
// edge, and alpha-blended over the artwork.
package compositor

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Options control character placement. Ratios are relative to the
// background's dimensions.
type Options struct {
	// WidthRatio is the character's width as a fraction of the
	// background width.
	WidthRatio float64
	// BottomRatio is the gap between the character's feet and the bottom
	// edge, as a fraction of the background height.
	BottomRatio float64
	// HorizontalShift moves the character off horizontal center, as a
	// signed fraction of the background width.
	HorizontalShift float64
}

// DefaultOptions returns the placement used by the storybook layouts:
// characters take 42% of the slide width and stand 6% above the bottom
// edge, centered.
func DefaultOptions() Options {
	return Options{
		WidthRatio:  0.42,
		BottomRatio: 0.06,
	}
}

// DefaultWhiteThreshold is the channel floor above which a pixel counts
// as background white in generated character images.
const DefaultWhiteThreshold = 240

// RemoveNearWhite returns a copy of img with near-white pixels turned
// fully transparent. A pixel is near-white when all three color channels
// are at or above threshold. Used on legacy text-to-image output, where
// the model is asked for a plain white backdrop.
func RemoveNearWhite(img image.Image, threshold uint8) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	stddraw.Draw(out, bounds, img, bounds.Min, stddraw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := out.NRGBAAt(x, y)
			if c.R >= threshold && c.G >= threshold && c.B >= threshold {
				out.SetNRGBA(x, y, color.NRGBA{})
			}
		}
	}
	return out
}

// ScaleToWidth resizes img to the given width, preserving aspect ratio,
// using Catmull-Rom resampling.
func ScaleToWidth(img image.Image, width int) *image.NRGBA {
	src := img.Bounds()
	if src.Dx() == 0 || width <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	height := int(math.Round(float64(width) * float64(src.Dy()) / float64(src.Dx())))
	if height < 1 {
		height = 1
	}
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, src, xdraw.Over, nil)
	return out
}

// CharacterRect computes where a character of the given scaled size lands
// on a background of the given size: horizontally centered plus shift,
// with its bottom edge BottomRatio above the background's bottom.
func CharacterRect(bg image.Rectangle, charW, charH int, opts Options) image.Rectangle {
	bgW := bg.Dx()
	bgH := bg.Dy()
	x := (bgW-charW)/2 + int(math.Round(opts.HorizontalShift*float64(bgW)))
	bottom := bgH - int(math.Round(opts.BottomRatio*float64(bgH)))
	top := bottom - charH
	return image.Rect(x, top, x+charW, bottom).Add(bg.Min)
}

// Compose renders the character onto the background per opts and returns
// the finished slide. The background is not modified.
func Compose(background, character image.Image, opts Options) *image.NRGBA {
	bgBounds := background.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bgBounds.Dx(), bgBounds.Dy()))
	stddraw.Draw(out, out.Bounds(), background, bgBounds.Min, stddraw.Src)

	targetW := int(math.Round(opts.WidthRatio * float64(bgBounds.Dx())))
	scaled := ScaleToWidth(character, targetW)
	sb := scaled.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return out
	}

	dst := CharacterRect(out.Bounds(), sb.Dx(), sb.Dy(), opts)
	stddraw.Draw(out, dst, scaled, sb.Min, stddraw.Over)
	return out
}

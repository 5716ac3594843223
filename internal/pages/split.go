package pages

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/sotaro/manga2epub/internal/device"
)

// trimThreshold is the 16-bit luminance above which a pixel counts as
// border whitespace.
const trimThreshold = 0xF0F0

// Normalize processes every image file in the flat page directory dir.
//
// Landscape files (width > height) are double-page spreads: they are split
// into right and left halves, and because reading direction is right-to-left
// the right half gets the "-1" name suffix so it precedes the left half
// ("-2") in reading order. Each half is grayscaled and border-trimmed, then
// the combined source file is deleted.
//
// Portrait files are grayscaled, border-trimmed and stretch-resized to
// exactly the screen box in place.
//
// Decode and encode failures skip only the affected file; its name is
// returned so the caller can exclude it from the page sequence. Failures to
// delete a superseded source file are fatal, since leaving it would corrupt
// the page order.
func Normalize(dir string, screen device.Screen) (skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read page directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		img, openErr := imaging.Open(path)
		if openErr != nil {
			log.Printf("warning: decode %s: %v, skipping page", name, openErr)
			skipped = append(skipped, name)
			continue
		}

		bounds := img.Bounds()
		if bounds.Dx() > bounds.Dy() {
			if err := splitSpread(path, img); err != nil {
				var fatal *cleanupError
				if errors.As(err, &fatal) {
					return skipped, fatal.err
				}
				log.Printf("warning: split %s: %v, skipping page", name, err)
				skipped = append(skipped, name)
			}
			continue
		}

		if err := normalizePortrait(path, img, screen); err != nil {
			var fatal *cleanupError
			if errors.As(err, &fatal) {
				return skipped, fatal.err
			}
			log.Printf("warning: normalize %s: %v, skipping page", name, err)
			skipped = append(skipped, name)
		}
	}
	return skipped, nil
}

// cleanupError marks filesystem delete failures that must abort the unit.
type cleanupError struct{ err error }

func (e *cleanupError) Error() string { return e.err.Error() }

func (e *cleanupError) Unwrap() error { return e.err }

// splitSpread writes the two halves of a landscape spread and removes the
// source file. The right half becomes the earlier page.
func splitSpread(path string, img image.Image) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	left := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+w/2, b.Min.Y+h))
	right := imaging.Crop(img, image.Rect(b.Min.X+w/2, b.Min.Y, b.Min.X+w, b.Min.Y+h))

	rightPath := derivedPath(path, "-1")
	leftPath := derivedPath(path, "-2")

	if err := savePage(trimBorder(imaging.Grayscale(right)), rightPath); err != nil {
		return fmt.Errorf("encode right half: %w", err)
	}
	if err := savePage(trimBorder(imaging.Grayscale(left)), leftPath); err != nil {
		removeErr := os.Remove(rightPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			return &cleanupError{fmt.Errorf("remove partial split output %s: %w", rightPath, removeErr)}
		}
		return fmt.Errorf("encode left half: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return &cleanupError{fmt.Errorf("remove split source %s: %w", path, err)}
	}
	return nil
}

// normalizePortrait grayscales, trims and stretch-resizes a portrait page in
// place. A zero screen box disables the resize step.
func normalizePortrait(path string, img image.Image, screen device.Screen) error {
	out := trimBorder(imaging.Grayscale(img))
	b := out.Bounds()
	if screen.Width > 0 && screen.Height > 0 && (b.Dx() != screen.Width || b.Dy() != screen.Height) {
		// Deliberate stretch fit: fills the device screen exactly instead
		// of letterboxing.
		out = imaging.Resize(out, screen.Width, screen.Height, imaging.Lanczos)
	}
	return savePage(out, path)
}

// derivedPath inserts suffix before the extension, mapping unsupported
// output extensions to .png.
func derivedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + suffix + saveExt(ext)
}

// savePage re-encodes img at path, switching to PNG when the original
// extension has no encoder (e.g. webp input).
func savePage(img image.Image, path string) error {
	ext := filepath.Ext(path)
	out := saveExt(ext)
	if out == ext {
		return imaging.Save(img, path)
	}
	renamed := strings.TrimSuffix(path, ext) + out
	if err := imaging.Save(img, renamed); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &cleanupError{fmt.Errorf("remove re-encoded source %s: %w", path, err)}
	}
	return nil
}

// saveExt returns ext when the format is EPUB-compatible, otherwise ".png".
// Inputs like webp, bmp or tiff decode fine but are re-encoded as PNG since
// Kindle readers do not accept them inside the container.
func saveExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return ext
	default:
		return ".png"
	}
}

// trimBorder crops uniform whitespace from the edges of a page. It finds the
// bounding box of pixels darker than the trim threshold; an all-white page is
// returned unchanged. Cropping to the exact bounding box makes the operation
// converge, so re-running normalization does not shrink content further.
func trimBorder(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// Rec. 601 luma
			luma := (299*r + 587*g + 114*bl) / 1000
			if luma < trimThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if minX > maxX || minY > maxY {
		return img
	}
	rect := image.Rect(minX, minY, maxX+1, maxY+1)
	if rect == b {
		return img
	}
	return imaging.Crop(img, rect)
}

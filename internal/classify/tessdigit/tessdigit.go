// Package tessdigit classifies cell bitmaps with Tesseract.
package tessdigit

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"gridlens/internal/classify"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Digits is the whitelist handed to Tesseract.
const Digits = "123456789"

// Classifier recognizes a single digit per bitmap. It returns digit-1 so the
// usual +1 label offset applies.
type Classifier struct {
	client *gosseract.Client
	scale  int
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates a Tesseract-backed classifier. scale enlarges bitmaps before
// recognition; Tesseract does poorly on 28px glyphs.
func New(scale int) (*Classifier, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := client.SetWhitelist(Digits); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}

	// Digits are not dictionary words
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if scale < 1 {
		scale = 1
	}
	return &Classifier{client: client, scale: scale}, nil
}

// Close releases Tesseract resources.
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify recognizes the digit in bitmap, which holds light glyphs on a
// dark background.
func (c *Classifier) Classify(bitmap *image.Gray) (int, error) {
	buf, err := prepare(bitmap, c.scale)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", classify.ErrClassifier, err)
	}

	if err := c.client.SetImageFromBytes(buf); err != nil {
		return 0, fmt.Errorf("%w: failed to set image: %v", classify.ErrClassifier, err)
	}
	text, err := c.client.Text()
	if err != nil {
		return 0, fmt.Errorf("%w: OCR failed: %v", classify.ErrClassifier, err)
	}

	return parseDigit(text)
}

// prepare inverts to dark-on-light, adds a quiet border and upscales.
func prepare(bitmap *image.Gray, scale int) ([]byte, error) {
	b := bitmap.Bounds()
	pad := b.Dx() / 4
	canvas := imaging.New(b.Dx()+2*pad, b.Dy()+2*pad, image.White)
	canvas = imaging.Paste(canvas, imaging.Invert(bitmap), image.Pt(pad, pad))
	if scale > 1 {
		canvas = imaging.Resize(canvas, canvas.Bounds().Dx()*scale, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func parseDigit(text string) (int, error) {
	text = strings.TrimSpace(text)
	for _, r := range text {
		if r >= '1' && r <= '9' {
			return int(r - '1'), nil
		}
	}
	return 0, fmt.Errorf("%w: no digit recognized in %q", classify.ErrClassifier, text)
}

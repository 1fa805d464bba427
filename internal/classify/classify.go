// Package classify defines the digit classifier capability used by cell
// extraction.
package classify

import (
	"errors"
	"image"
)

// ErrClassifier marks failures raised by a classifier.
var ErrClassifier = errors.New("classifier error")

// Classifier maps a fixed-size single-channel bitmap to a class index.
// Implementations must be side-effect free and safe to reuse across calls.
type Classifier interface {
	Classify(bitmap *image.Gray) (int, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(bitmap *image.Gray) (int, error)

// Classify calls f.
func (f Func) Classify(bitmap *image.Gray) (int, error) {
	return f(bitmap)
}

// Constant returns a Classifier that reports class for every input.
func Constant(class int) Classifier {
	return Func(func(*image.Gray) (int, error) {
		return class, nil
	})
}

// Recorder wraps a Classifier and keeps every bitmap it was asked about.
type Recorder struct {
	Inner   Classifier
	Bitmaps []*image.Gray
}

// Classify records bitmap and delegates to the wrapped classifier.
func (r *Recorder) Classify(bitmap *image.Gray) (int, error) {
	r.Bitmaps = append(r.Bitmaps, bitmap)
	return r.Inner.Classify(bitmap)
}

// Argmax returns the index of the largest score, or -1 for no scores.
func Argmax(scores []float32) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}

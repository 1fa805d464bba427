// Package onnxdigit classifies cell bitmaps with an ONNX digit model.
//
// The model is expected to take a single float32 tensor holding one
// normalized grayscale image (NHWC, NCHW or NHW layout) and to produce one
// score per class. The class index with the highest score is returned.
package onnxdigit

import (
	"fmt"
	"image"
	"sync"

	"gridlens/internal/classify"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

var (
	initOnce sync.Once
	initErr  error
)

// Options configures the ONNX runtime and model.
type Options struct {
	ModelPath   string // path to the .onnx file
	LibraryPath string // onnxruntime shared library; empty uses the runtime default
	InputSize   int    // used when the model leaves its spatial dimensions dynamic
	Threads     int
}

// DefaultOptions returns options for a 28x28 digit model.
func DefaultOptions() Options {
	return Options{
		InputSize: 28,
		Threads:   1,
	}
}

// Classifier runs a loaded ONNX model. The session is read-only after New
// and may be shared across pipeline runs.
type Classifier struct {
	session    *ort.DynamicAdvancedSession
	options    *ort.SessionOptions
	inputShape ort.Shape
	width      int
	height     int
}

var _ classify.Classifier = (*Classifier)(nil)

func initRuntime(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// New loads the model at opts.ModelPath.
func New(opts Options) (*Classifier, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if err := initRuntime(opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("model must have one input and at least one output, got %d/%d",
			len(inputs), len(outputs))
	}

	shape, width, height, err := inputLayout(inputs[0].Dimensions, opts.InputSize)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if err := setThreads(options, opts.Threads); err != nil {
		options.Destroy()
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		options.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Classifier{
		session:    session,
		options:    options,
		inputShape: shape,
		width:      width,
		height:     height,
	}, nil
}

type threadSetter interface {
	SetIntraOpNumThreads(n int) error
	SetInterOpNumThreads(n int) error
}

// setThreads applies n to both thread pools; n <= 0 keeps the runtime
// defaults.
func setThreads(options threadSetter, n int) error {
	if n <= 0 {
		return nil
	}
	if err := options.SetIntraOpNumThreads(n); err != nil {
		return fmt.Errorf("failed to set intra-op threads to %d: %w", n, err)
	}
	if err := options.SetInterOpNumThreads(n); err != nil {
		return fmt.Errorf("failed to set inter-op threads to %d: %w", n, err)
	}
	return nil
}

// inputLayout resolves dynamic dimensions and locates the spatial axes.
func inputLayout(dims ort.Shape, fallback int) (ort.Shape, int, int, error) {
	shape := make(ort.Shape, len(dims))
	copy(shape, dims)

	var hAxis, wAxis int
	switch {
	case len(shape) == 4 && shape[3] == 1: // NHWC
		hAxis, wAxis = 1, 2
	case len(shape) == 4: // NCHW
		hAxis, wAxis = 2, 3
	case len(shape) == 3: // NHW
		hAxis, wAxis = 1, 2
	default:
		return nil, 0, 0, fmt.Errorf("unsupported model input shape %v", dims)
	}

	for i := range shape {
		if shape[i] > 0 {
			continue
		}
		if i == hAxis || i == wAxis {
			shape[i] = int64(fallback)
		} else {
			shape[i] = 1
		}
	}
	if len(shape) == 4 && shape[3] != 1 && shape[1] != 1 {
		return nil, 0, 0, fmt.Errorf("model input %v is not single-channel", dims)
	}

	return shape, int(shape[wAxis]), int(shape[hAxis]), nil
}

// Classify runs one inference and returns the highest scoring class.
func (c *Classifier) Classify(bitmap *image.Gray) (int, error) {
	var src image.Image = bitmap
	b := bitmap.Bounds()
	if b.Dx() != c.width || b.Dy() != c.height {
		src = resize.Resize(uint(c.width), uint(c.height), bitmap, resize.Bilinear)
	}

	data := make([]float32, c.width*c.height)
	sb := src.Bounds()
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			r, _, _, _ := src.At(sb.Min.X+x, sb.Min.Y+y).RGBA()
			data[y*c.width+x] = float32(r>>8) / 255.0
		}
	}

	input, err := ort.NewTensor(c.inputShape, data)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to build input tensor: %v", classify.ErrClassifier, err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := c.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, fmt.Errorf("%w: inference failed: %v", classify.ErrClassifier, err)
	}
	if outputs[0] == nil {
		return 0, fmt.Errorf("%w: model produced no output", classify.ErrClassifier)
	}
	defer outputs[0].Destroy()

	scores, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("%w: unsupported output type %T", classify.ErrClassifier, outputs[0])
	}

	class := classify.Argmax(scores.GetData())
	if class < 0 {
		return 0, fmt.Errorf("%w: empty output", classify.ErrClassifier)
	}
	return class, nil
}

// Close releases the session and its options.
func (c *Classifier) Close() error {
	var err error
	if c.session != nil {
		err = multierr.Append(err, c.session.Destroy())
		c.session = nil
	}
	if c.options != nil {
		err = multierr.Append(err, c.options.Destroy())
		c.options = nil
	}
	return err
}

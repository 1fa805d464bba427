// Package config holds the tunable policy of the rectification pipeline.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"
)

// ErrInvalidConfig is returned when a configuration cannot produce aligned cells.
var ErrInvalidConfig = errors.New("invalid config")

// Config collects every constant the pipeline depends on.
type Config struct {
	// Rectification
	CanonicalSize int `json:"canonical_size" mapstructure:"canonical_size"` // side of the rectified square, pixels
	GridSize      int `json:"grid_size" mapstructure:"grid_size"`           // cells per side

	// Line clustering
	FusionDistance float64 `json:"fusion_distance" mapstructure:"fusion_distance"` // pixels
	FamilyMinTheta float64 `json:"family_min_theta" mapstructure:"family_min_theta"`
	FamilyMaxTheta float64 `json:"family_max_theta" mapstructure:"family_max_theta"`

	// Cell extraction
	CellMargin       int     `json:"cell_margin" mapstructure:"cell_margin"`             // trimmed from each side before counting
	DensityThreshold int     `json:"density_threshold" mapstructure:"density_threshold"` // active pixels needed for content
	ClassifierInput  int     `json:"classifier_input" mapstructure:"classifier_input"`   // side of the classifier bitmap
	LabelOffset      int     `json:"label_offset" mapstructure:"label_offset"`           // class index -> label
	BinarizeRadius   float64 `json:"binarize_radius" mapstructure:"binarize_radius"`     // gaussian mean radius
	BinarizeOffset   float64 `json:"binarize_offset" mapstructure:"binarize_offset"`     // subtracted from the mean

	// Back-projection
	AnchorX     float64 `json:"anchor_x" mapstructure:"anchor_x"` // fraction of a cell
	AnchorY     float64 `json:"anchor_y" mapstructure:"anchor_y"`
	FontSize    float64 `json:"font_size" mapstructure:"font_size"` // pixels
	StrokeWidth int     `json:"stroke_width" mapstructure:"stroke_width"`
	Highlight   string  `json:"highlight" mapstructure:"highlight"` // hex color

	Detect DetectParams `json:"detect" mapstructure:"detect"`
}

// DetectParams tunes the line detection front end.
type DetectParams struct {
	BlurKernel       int     `json:"blur_kernel" mapstructure:"blur_kernel"`
	ThresholdBlock   int     `json:"threshold_block" mapstructure:"threshold_block"`
	ThresholdC       float64 `json:"threshold_c" mapstructure:"threshold_c"`
	DilateKernel     int     `json:"dilate_kernel" mapstructure:"dilate_kernel"`
	ContourThickness int     `json:"contour_thickness" mapstructure:"contour_thickness"`
	HoughRho         float64 `json:"hough_rho" mapstructure:"hough_rho"`
	HoughTheta       float64 `json:"hough_theta" mapstructure:"hough_theta"` // radians
	HoughThreshold   int     `json:"hough_threshold" mapstructure:"hough_threshold"`
}

// Default returns the configuration for a 9x9 board photographed at
// typical phone resolution.
func Default() Config {
	return Config{
		CanonicalSize: 495, // divisible by 9 with usable resolution
		GridSize:      9,

		FusionDistance: 10,
		FamilyMinTheta: 1,
		FamilyMaxTheta: 3,

		CellMargin:       6,
		DensityThreshold: 200, // may need tuning for digit size and noise
		ClassifierInput:  28,
		LabelOffset:      1, // classes 0-8 are digits 1-9
		BinarizeRadius:   120, // sigma sqrt(2*120) ~ 15.5, a 101px OpenCV Gaussian block
		BinarizeOffset:   1,

		AnchorX:     0.33,
		AnchorY:     0.75,
		FontSize:    36,
		StrokeWidth: 3,
		Highlight:   "#ff0000",

		Detect: DetectParams{
			BlurKernel:       9,
			ThresholdBlock:   5,
			ThresholdC:       2,
			DilateKernel:     3,
			ContourThickness: 3,
			HoughRho:         1,
			HoughTheta:       math.Pi / 90,
			HoughThreshold:   200,
		},
	}
}

// CellSize returns the side of one grid cell in the rectified square.
func (c Config) CellSize() int {
	if c.GridSize <= 0 {
		return 0
	}
	return c.CanonicalSize / c.GridSize
}

// WithCanonicalSize returns a copy of c with a different rectified size.
func (c Config) WithCanonicalSize(size int) Config {
	c.CanonicalSize = size
	return c
}

// WithDensityThreshold returns a copy of c with a different content threshold.
func (c Config) WithDensityThreshold(threshold int) Config {
	c.DensityThreshold = threshold
	return c
}

// WithFamilies returns a copy of c with a different line family boundary.
func (c Config) WithFamilies(minTheta, maxTheta float64) Config {
	c.FamilyMinTheta = minTheta
	c.FamilyMaxTheta = maxTheta
	return c
}

// Validate reports every inconsistency in c.
func (c Config) Validate() error {
	var err error
	invalid := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.GridSize <= 0 {
		invalid("grid_size must be positive, got %d", c.GridSize)
	}
	if c.CanonicalSize <= 0 {
		invalid("canonical_size must be positive, got %d", c.CanonicalSize)
	}
	if c.GridSize > 0 && c.CanonicalSize > 0 {
		if c.CanonicalSize%c.GridSize != 0 {
			invalid("canonical_size %d is not divisible by grid_size %d", c.CanonicalSize, c.GridSize)
		} else if 2*c.CellMargin >= c.CellSize() {
			invalid("cell_margin %d leaves nothing of a %dpx cell", c.CellMargin, c.CellSize())
		}
	}
	if c.CellMargin < 0 {
		invalid("cell_margin must not be negative, got %d", c.CellMargin)
	}
	if c.FusionDistance <= 0 {
		invalid("fusion_distance must be positive, got %g", c.FusionDistance)
	}
	if c.FamilyMinTheta > c.FamilyMaxTheta {
		invalid("family_min_theta %g exceeds family_max_theta %g", c.FamilyMinTheta, c.FamilyMaxTheta)
	}
	if c.DensityThreshold < 0 {
		invalid("density_threshold must not be negative, got %d", c.DensityThreshold)
	}
	if c.ClassifierInput <= 0 {
		invalid("classifier_input must be positive, got %d", c.ClassifierInput)
	}
	if c.BinarizeRadius <= 0 {
		invalid("binarize_radius must be positive, got %g", c.BinarizeRadius)
	}
	if c.AnchorX < 0 || c.AnchorX > 1 || c.AnchorY < 0 || c.AnchorY > 1 {
		invalid("anchor (%g, %g) must lie within a cell", c.AnchorX, c.AnchorY)
	}
	if c.FontSize <= 0 {
		invalid("font_size must be positive, got %g", c.FontSize)
	}
	if c.StrokeWidth < 1 {
		invalid("stroke_width must be at least 1, got %d", c.StrokeWidth)
	}
	if _, herr := colorful.Hex(c.Highlight); herr != nil {
		invalid("highlight %q: %v", c.Highlight, herr)
	}
	if c.Detect.BlurKernel%2 == 0 || c.Detect.ThresholdBlock%2 == 0 || c.Detect.ThresholdBlock < 3 {
		invalid("blur_kernel and threshold_block must be odd (threshold_block >= 3)")
	}
	if c.Detect.HoughRho <= 0 || c.Detect.HoughTheta <= 0 || c.Detect.HoughThreshold <= 0 {
		invalid("hough parameters must be positive")
	}

	return err
}

// Load reads a JSON file and overlays it on Default. Keys absent from the
// file keep their defaults; unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg, err := FromMap(raw)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromMap overlays raw settings on Default and validates the result.
func FromMap(raw map[string]interface{}) (Config, error) {
	cfg := Default()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

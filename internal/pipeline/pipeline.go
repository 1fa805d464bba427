// Package pipeline runs grid detection, rectification, cell extraction and
// back-projection as one synchronous pass.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log"

	"gridlens/internal/cells"
	"gridlens/internal/classify"
	"gridlens/internal/config"
	"gridlens/internal/lines"
	"gridlens/internal/overlay"
	"gridlens/internal/rectify"
	"gridlens/pkg/geometry"
)

// Stage names reported by StageError.
const (
	StageDetect  = "detect"
	StageCluster = "cluster"
	StageRectify = "rectify"
	StageExtract = "extract"
	StageProject = "project"
)

// StageError reports which stage aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// LineDetector finds candidate grid lines in a grayscale photo.
type LineDetector interface {
	DetectLines(img *image.Gray) ([]geometry.Line, error)
}

// Extraction holds everything recovered from one photo.
type Extraction struct {
	Lines         []geometry.Line
	Clusters      *lines.Result
	Rectification *rectify.Rectification
	Binary        *image.Gray // binarized canonical square
	Grid          *cells.Grid
}

// Labels returns the recognized label matrix.
func (e *Extraction) Labels() [][]int {
	return e.Grid.Labels()
}

// Result is the output of Run.
type Result struct {
	*Extraction
	Overlay *image.RGBA
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage progress.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline wires the stages together. The classifier is shared read-only
// across runs; nothing else outlives a run.
type Pipeline struct {
	cfg        config.Config
	detector   LineDetector
	classifier classify.Classifier

	clusterer *lines.Clusterer
	rectifier *rectify.Rectifier
	extractor *cells.Extractor
	projector *overlay.Projector

	logger *log.Logger
}

// New validates cfg and builds a Pipeline. detector may be nil when only
// ExtractLines is used.
func New(cfg config.Config, detector LineDetector, classifier classify.Classifier, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		return nil, errors.New("pipeline needs a classifier")
	}

	projector, err := overlay.NewProjector(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		detector:   detector,
		classifier: classifier,
		clusterer: lines.NewClusterer(
			lines.FamilyPolicy{MinTheta: cfg.FamilyMinTheta, MaxTheta: cfg.FamilyMaxTheta},
			cfg.FusionDistance),
		rectifier: rectify.NewRectifier(cfg.CanonicalSize),
		extractor: cells.NewExtractor(cfg),
		projector: projector,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Extract locates the grid in img and classifies its cells.
func (p *Pipeline) Extract(img *image.Gray) (*Extraction, error) {
	if p.detector == nil {
		return nil, stageError(StageDetect, errors.New("no line detector configured"))
	}

	p.logger.Printf("[Pipeline] Detecting lines in %dx%d image", img.Bounds().Dx(), img.Bounds().Dy())
	found, err := p.detector.DetectLines(img)
	if err != nil {
		return nil, stageError(StageDetect, err)
	}
	return p.ExtractLines(img, found)
}

// ExtractLines runs everything after line detection on an existing line set.
// Lines are in the coordinates of img's bounds, so a sub-image keeps the
// coordinates of its parent.
func (p *Pipeline) ExtractLines(img *image.Gray, found []geometry.Line) (*Extraction, error) {
	clusters, err := p.clusterer.Cluster(found)
	if err != nil {
		return nil, stageError(StageCluster, err)
	}
	p.logger.Printf("[Pipeline] %d lines (%d/%d), %d intersections, %d skipped, %d fused corners",
		len(found), len(clusters.FamilyA), len(clusters.FamilyB),
		len(clusters.Candidates), clusters.Skipped, len(clusters.Corners))

	rect, err := p.rectifier.Rectify(img, clusters.Corners)
	if err != nil {
		return nil, stageError(StageRectify, err)
	}
	p.logger.Printf("[Pipeline] Rectified %s to %dx%d", rect.Corners, rect.Size, rect.Size)

	binary := cells.Binarize(rect.Image, p.cfg.BinarizeRadius, p.cfg.BinarizeOffset)
	grid, err := p.extractor.ExtractBinary(binary, p.classifier)
	if err != nil {
		return nil, stageError(StageExtract, err)
	}
	p.logger.Printf("[Pipeline] %d of %d cells filled", grid.Filled(), len(grid.Cells))

	return &Extraction{
		Lines:         found,
		Clusters:      clusters,
		Rectification: rect,
		Binary:        binary,
		Grid:          grid,
	}, nil
}

// Project draws labels, for example a solved grid, over img through the
// rectification of ex.
func (p *Pipeline) Project(ex *Extraction, labels [][]int, img *image.Gray) (*image.RGBA, error) {
	if ex == nil || ex.Rectification == nil {
		return nil, stageError(StageProject, errors.New("extraction has no rectification"))
	}
	if err := p.checkLabels(labels); err != nil {
		return nil, stageError(StageProject, err)
	}

	out, err := p.projector.Project(labels, img, ex.Rectification)
	if err != nil {
		return nil, stageError(StageProject, err)
	}
	p.logger.Printf("[Pipeline] Projected labels onto %dx%d image", out.Bounds().Dx(), out.Bounds().Dy())
	return out, nil
}

// Run extracts the grid from img and projects the recognized labels back.
func (p *Pipeline) Run(img *image.Gray) (*Result, error) {
	ex, err := p.Extract(img)
	if err != nil {
		return nil, err
	}
	out, err := p.Project(ex, ex.Labels(), img)
	if err != nil {
		return nil, err
	}
	return &Result{Extraction: ex, Overlay: out}, nil
}

func (p *Pipeline) checkLabels(labels [][]int) error {
	g := p.cfg.GridSize
	if len(labels) != g {
		return fmt.Errorf("label grid has %d rows, want %d", len(labels), g)
	}
	for r, row := range labels {
		if len(row) != g {
			return fmt.Errorf("label row %d has %d columns, want %d", r, len(row), g)
		}
		for c, v := range row {
			if v < 0 || v > g {
				return fmt.Errorf("label %d at (%d,%d) outside 0..%d", v, r, c, g)
			}
		}
	}
	return nil
}

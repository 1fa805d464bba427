// Package cells partitions a rectified grid into cells and classifies the
// ones that carry content.
package cells

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"gridlens/internal/classify"
	"gridlens/internal/config"
	"gridlens/internal/imageio"
	"gridlens/pkg/geometry"

	"github.com/disintegration/imaging"
)

// Cell is one square of the grid.
type Cell struct {
	Row    int
	Col    int
	Bounds geometry.RectInt // in the rectified square
	Bitmap *image.Gray      // full binarized cell
	Active int              // foreground pixels inside the margin
	Filled bool
	Label  int // 0 when empty
}

// Grid holds the cells of one extraction in row-major order.
type Grid struct {
	Size     int // cells per side
	CellSize int
	Cells    []Cell
}

// At returns the cell at (row, col).
func (g *Grid) At(row, col int) *Cell {
	return &g.Cells[row*g.Size+col]
}

// Labels returns the label matrix, 0 for empty cells.
func (g *Grid) Labels() [][]int {
	labels := make([][]int, g.Size)
	for r := range labels {
		labels[r] = make([]int, g.Size)
		for c := range labels[r] {
			labels[r][c] = g.At(r, c).Label
		}
	}
	return labels
}

// Filled returns the number of cells that carry content.
func (g *Grid) Filled() int {
	n := 0
	for _, c := range g.Cells {
		if c.Filled {
			n++
		}
	}
	return n
}

// String prints the labels one row per line.
func (g *Grid) String() string {
	var sb strings.Builder
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", g.At(r, c).Label)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Extractor cuts a binarized square into cells and labels the filled ones.
type Extractor struct {
	GridSize         int
	Margin           int
	DensityThreshold int
	InputSize        int
	LabelOffset      int
	BinarizeRadius   float64
	BinarizeOffset   float64
}

// NewExtractor creates an Extractor from cfg.
func NewExtractor(cfg config.Config) *Extractor {
	return &Extractor{
		GridSize:         cfg.GridSize,
		Margin:           cfg.CellMargin,
		DensityThreshold: cfg.DensityThreshold,
		InputSize:        cfg.ClassifierInput,
		LabelOffset:      cfg.LabelOffset,
		BinarizeRadius:   cfg.BinarizeRadius,
		BinarizeOffset:   cfg.BinarizeOffset,
	}
}

// Extract binarizes the rectified square and classifies every filled cell.
// The first classifier failure aborts extraction.
func (e *Extractor) Extract(square *image.Gray, clf classify.Classifier) (*Grid, error) {
	return e.ExtractBinary(Binarize(square, e.BinarizeRadius, e.BinarizeOffset), clf)
}

// ExtractBinary is Extract on an already binarized square.
func (e *Extractor) ExtractBinary(binary *image.Gray, clf classify.Classifier) (*Grid, error) {
	b := binary.Bounds()
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("rectified image is %dx%d, not square", b.Dx(), b.Dy())
	}
	if e.GridSize <= 0 || b.Dx()%e.GridSize != 0 {
		return nil, fmt.Errorf("%w: side %d does not split into %d cells",
			config.ErrInvalidConfig, b.Dx(), e.GridSize)
	}
	binary = imageio.ToGray(binary)
	cs := b.Dx() / e.GridSize

	grid := &Grid{Size: e.GridSize, CellSize: cs, Cells: make([]Cell, 0, e.GridSize*e.GridSize)}
	for row := 0; row < e.GridSize; row++ {
		for col := 0; col < e.GridSize; col++ {
			bounds := geometry.RectInt{X: col * cs, Y: row * cs, Width: cs, Height: cs}
			inner := bounds.Inset(e.Margin).ImageRect()

			cell := Cell{
				Row:    row,
				Col:    col,
				Bounds: bounds,
				Bitmap: crop(binary, bounds.ImageRect()),
				Active: CountNonZero(binary, inner),
			}
			cell.Filled = cell.Active > e.DensityThreshold

			if cell.Filled {
				label, err := e.classify(binary, inner, clf)
				if err != nil {
					return nil, fmt.Errorf("cell (%d,%d): %w", row, col, err)
				}
				cell.Label = label
			}
			grid.Cells = append(grid.Cells, cell)
		}
	}
	return grid, nil
}

// ClassifierBitmap returns the classifier input for an inner cell region.
func (e *Extractor) ClassifierBitmap(binary *image.Gray, inner image.Rectangle) *image.Gray {
	resized := imaging.Resize(binary.SubImage(inner), e.InputSize, e.InputSize, imaging.Linear)
	return imageio.ToGray(resized)
}

func (e *Extractor) classify(binary *image.Gray, inner image.Rectangle, clf classify.Classifier) (int, error) {
	class, err := clf.Classify(e.ClassifierBitmap(binary, inner))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", classify.ErrClassifier, err)
	}
	label := class + e.LabelOffset
	if label < 1 || label > e.GridSize {
		return 0, fmt.Errorf("%w: class %d gives label %d outside 1..%d",
			classify.ErrClassifier, class, label, e.GridSize)
	}
	return label, nil
}

func crop(img *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

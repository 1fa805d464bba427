// Package overlay renders grid labels and projects them back onto the photo.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"gridlens/internal/config"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Style controls where and how labels are drawn inside a cell.
type Style struct {
	AnchorX     float64 // baseline origin, fraction of the cell width
	AnchorY     float64 // baseline origin, fraction of the cell height
	FontSize    float64 // pixels
	StrokeWidth int     // side of the square dilation kernel
}

// StyleFromConfig extracts the rendering style from cfg.
func StyleFromConfig(cfg config.Config) Style {
	return Style{
		AnchorX:     cfg.AnchorX,
		AnchorY:     cfg.AnchorY,
		FontSize:    cfg.FontSize,
		StrokeWidth: cfg.StrokeWidth,
	}
}

// Renderer draws label grids onto a blank canonical canvas.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	style Style
	face  font.Face
}

// NewRenderer prepares the Go Regular face at style.FontSize.
func NewRenderer(style Style) (*Renderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    style.FontSize,
		DPI:     72, // Size is in pixels
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return &Renderer{style: style, face: face}, nil
}

// Anchor returns the baseline origin of the label at (row, col).
func (r *Renderer) Anchor(row, col, cellSize int) image.Point {
	cs := float64(cellSize)
	return image.Point{
		X: col*cellSize + int(math.RoundToEven(cs*r.style.AnchorX)),
		Y: row*cellSize + int(math.RoundToEven(cs*r.style.AnchorY)),
	}
}

// Render draws every non-zero label on a size x size canvas. Ink is 255,
// background 0.
func (r *Renderer) Render(labels [][]int, size int) *image.Gray {
	canvas := image.NewGray(image.Rect(0, 0, size, size))
	if len(labels) == 0 {
		return canvas
	}
	cs := size / len(labels)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Gray{Y: 255}),
		Face: r.face,
	}
	for row, line := range labels {
		for col, label := range line {
			if label == 0 {
				continue
			}
			at := r.Anchor(row, col, cs)
			d.Dot = fixed.P(at.X, at.Y)
			d.DrawString(strconv.Itoa(label))
		}
	}

	return Dilate(canvas, r.style.StrokeWidth)
}

// Dilate widens strokes with a width x width square max filter.
func Dilate(img *image.Gray, width int) *image.Gray {
	if width <= 1 {
		return img
	}
	lo := (width - 1) / 2
	hi := width / 2
	b := img.Bounds()

	// Separable: rows, then columns.
	tmp := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var m uint8
			for k := x - lo; k <= x+hi; k++ {
				if k >= b.Min.X && k < b.Max.X {
					if v := img.Pix[img.PixOffset(k, y)]; v > m {
						m = v
					}
				}
			}
			tmp.Pix[tmp.PixOffset(x, y)] = m
		}
	}

	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var m uint8
			for k := y - lo; k <= y+hi; k++ {
				if k >= b.Min.Y && k < b.Max.Y {
					if v := tmp.Pix[tmp.PixOffset(x, k)]; v > m {
						m = v
					}
				}
			}
			out.Pix[out.PixOffset(x, y)] = m
		}
	}
	return out
}

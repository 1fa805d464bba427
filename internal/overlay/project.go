package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gridlens/internal/config"
	"gridlens/internal/rectify"
	"gridlens/pkg/geometry"

	"github.com/lucasb-eyer/go-colorful"
)

// Projector composites rendered labels onto the source photo.
type Projector struct {
	renderer  *Renderer
	highlight color.RGBA
}

// NewProjector creates a Projector with the style and highlight of cfg.
func NewProjector(cfg config.Config) (*Projector, error) {
	c, err := colorful.Hex(cfg.Highlight)
	if err != nil {
		return nil, fmt.Errorf("%w: highlight %q: %v", config.ErrInvalidConfig, cfg.Highlight, err)
	}
	renderer, err := NewRenderer(StyleFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	r, g, b := c.RGB255()
	return &Projector{
		renderer:  renderer,
		highlight: color.RGBA{R: r, G: g, B: b, A: 255},
	}, nil
}

// Highlight returns the color painted over projected labels.
func (p *Projector) Highlight() color.RGBA {
	return p.highlight
}

// Renderer returns the label renderer.
func (p *Projector) Renderer() *Renderer {
	return p.renderer
}

// Project renders labels in the canonical square, warps them into the frame
// of original and paints every covered pixel with the highlight color. The
// output has the size of original and starts at the origin; rect is in the
// coordinates of original's bounds.
func (p *Projector) Project(labels [][]int, original *image.Gray, rect *rectify.Rectification) (*image.RGBA, error) {
	if rect == nil {
		return nil, errors.New("no rectification to project through")
	}
	canvas := p.renderer.Render(labels, rect.Size)

	b := original.Bounds()
	// Output pixel p is photo pixel p+b.Min and samples the canvas at
	// Forward(p+b.Min).
	toCanvas := rect.Forward.Compose(geometry.Translation(float64(b.Min.X), float64(b.Min.Y)))
	warped := rectify.WarpInverse(canvas, toCanvas, b.Dx(), b.Dy())

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), original, b.Min, draw.Src)
	for y := 0; y < b.Dy(); y++ {
		row := warped.Pix[y*warped.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x] > 0 {
				out.SetRGBA(x, y, p.highlight)
			}
		}
	}
	return out, nil
}

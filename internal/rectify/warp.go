package rectify

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"gridlens/pkg/geometry"
)

// Warp resamples src through the forward transform h into a width x height
// image. Each destination pixel reads the source at h^-1(x, y) with bilinear
// interpolation; samples outside src read 0.
func Warp(src *image.Gray, h geometry.Homography, width, height int) (*image.Gray, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}
	return WarpInverse(src, inv, width, height), nil
}

// WarpInverse is Warp with the destination-to-source transform supplied
// directly.
func WarpInverse(src *image.Gray, inv geometry.Homography, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return dst
	}

	// Parallelize by horizontal stripes. Every row is written by one worker
	// only, so the result does not depend on the worker count.
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				row := dst.Pix[y*dst.Stride:]
				for x := 0; x < width; x++ {
					p := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
					row[x] = sampleBilinear(src, p.X, p.Y)
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return dst
}

// sampleBilinear interpolates src at (x, y) in pixel-center coordinates.
// Neighbours outside src contribute 0.
func sampleBilinear(src *image.Gray, x, y float64) uint8 {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0
	}
	b := src.Bounds()
	if x <= float64(b.Min.X-1) || y <= float64(b.Min.Y-1) || x >= float64(b.Max.X) || y >= float64(b.Max.Y) {
		return 0
	}

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := grayAt(src, x0, y0)
	c10 := grayAt(src, x0+1, y0)
	c01 := grayAt(src, x0, y0+1)
	c11 := grayAt(src, x0+1, y0+1)

	top := c00*(1-fx) + c10*fx
	bottom := c01*(1-fx) + c11*fx
	value := math.Round(top*(1-fy) + bottom*fy)
	if value > 255 {
		value = 255
	}
	return uint8(value)
}

func grayAt(src *image.Gray, x, y int) float64 {
	if !(image.Point{X: x, Y: y}).In(src.Rect) {
		return 0
	}
	return float64(src.Pix[src.PixOffset(x, y)])
}

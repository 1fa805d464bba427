// Package detect finds the outline of a grid in a photo and reports it as
// Hough lines.
package detect

import (
	"fmt"
	"image"
	"image/color"

	"gridlens/internal/config"
	"gridlens/internal/imageio"
	"gridlens/pkg/geometry"

	"gocv.io/x/gocv"
)

// Detector runs the OpenCV line detection front end.
type Detector struct {
	Params config.DetectParams
}

// NewDetector creates a Detector.
func NewDetector(params config.DetectParams) *Detector {
	return &Detector{Params: params}
}

// DetectLines returns the Hough lines of the largest outer contour in img,
// in the coordinates of img's own bounds. An image without contours yields
// no lines.
func (d *Detector) DetectLines(img *image.Gray) ([]geometry.Line, error) {
	// The Mat conversion reads Pix as a packed buffer from the origin.
	src, err := gocv.ImageGrayToMatGray(imageio.ToGray(img))
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	outline := d.Outline(src)
	defer outline.Close()

	found := d.houghLines(outline)
	if origin := img.Bounds().Min; origin != (image.Point{}) {
		for i := range found {
			found[i] = found[i].Translate(float64(origin.X), float64(origin.Y))
		}
	}
	return found, nil
}

// Outline draws the largest external contour of the thresholded image on a
// blank canvas of the same size.
func (d *Detector) Outline(src gocv.Mat) gocv.Mat {
	p := d.Params

	// Blur to reduce noise
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Point{p.BlurKernel, p.BlurKernel}, 0, 0, gocv.BorderDefault)

	// Ink becomes white
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(blurred, &binary, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, p.ThresholdBlock, float32(p.ThresholdC))

	// Dilate to connect grid line segments
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{p.DilateKernel, p.DilateKernel})
	defer kernel.Close()
	gocv.Dilate(binary, &binary, kernel)

	outline := gocv.NewMatWithSize(src.Rows(), src.Cols(), gocv.MatTypeCV8U)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()
	if contours.Size() == 0 {
		return outline
	}

	best := 0
	bestArea := gocv.ContourArea(contours.At(0))
	for i := 1; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	gocv.DrawContours(&outline, contours, best, color.RGBA{R: 255, G: 255, B: 255, A: 255}, p.ContourThickness)

	return outline
}

func (d *Detector) houghLines(outline gocv.Mat) []geometry.Line {
	p := d.Params

	found := gocv.NewMat()
	defer found.Close()
	gocv.HoughLines(outline, &found, float32(p.HoughRho), float32(p.HoughTheta), p.HoughThreshold)

	lines := make([]geometry.Line, 0, found.Rows())
	for i := 0; i < found.Rows(); i++ {
		rho := found.GetFloatAt(i, 0)
		theta := found.GetFloatAt(i, 1)
		lines = append(lines, geometry.NewLine(float64(rho), float64(theta)))
	}
	return lines
}

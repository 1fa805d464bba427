package cells

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
)

// Binarize applies an inverted adaptive threshold: a pixel becomes 255 when
// it is no brighter than its Gaussian-weighted neighbourhood mean minus
// offset, and 0 otherwise. Dark ink on light paper comes out white.
func Binarize(img *image.Gray, radius, offset float64) *image.Gray {
	b := img.Bounds()
	mean := blur.Gaussian(img, radius)
	mb := mean.Bounds()

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		meanRow := mean.Pix[mean.PixOffset(mb.Min.X, mb.Min.Y+y):]
		dstRow := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			// Gray input blurs to R == G == B.
			threshold := float64(meanRow[x*4]) - offset
			if float64(srcRow[x]) <= threshold {
				dstRow[x] = 255
			}
		}
	}
	return out
}

// CountNonZero returns the number of non-zero pixels of img inside r.
func CountNonZero(img *image.Gray, r image.Rectangle) int {
	r = r.Intersect(img.Bounds())
	count := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for _, v := range row {
			if v != 0 {
				count++
			}
		}
	}
	return count
}

package imageio

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadGray(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 12, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(x * 20), B: uint8(x * 20), A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "source.png")
	require.NoError(t, Save(path, img))

	gray, err := LoadGray(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 8), gray.Bounds())
	assert.Equal(t, uint8(0), gray.GrayAt(0, 3).Y)
	assert.Equal(t, uint8(200), gray.GrayAt(10, 3).Y)
}

func TestLoadGrayMissingFile(t *testing.T) {
	_, err := LoadGray(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ErrImageRead)
}

func TestLoadGrayUndecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := LoadGray(path)
	assert.ErrorIs(t, err, ErrImageRead)
}

func TestToGrayRebasesBounds(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 15, 10))
	src.SetGray(5, 5, color.Gray{Y: 99})

	gray := ToGray(src)
	assert.Equal(t, image.Rect(0, 0, 10, 5), gray.Bounds())
	assert.Equal(t, uint8(99), gray.GrayAt(0, 0).Y)

	origin := image.NewGray(image.Rect(0, 0, 3, 3))
	assert.Same(t, origin, ToGray(origin))
}

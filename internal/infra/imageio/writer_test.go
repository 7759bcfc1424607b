package imageio

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() *port.Frame {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	return &port.Frame{Index: 7, Timestamp: 0.28, Image: img}
}

func TestWriterWritesDecodableJPEG(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(90)

	path, err := w.Write(testFrame(), dir, "frame.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame.jpg"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	assert.Equal(t, 16, decoded.Bounds().Dy())
}

func TestWriterRejectsMissingDirectory(t *testing.T) {
	w := NewWriter(90)

	_, err := w.Write(testFrame(), filepath.Join(t.TempDir(), "nope"), "frame.jpg")
	assert.ErrorIs(t, err, entity.ErrFrameWrite)
}

func TestWriterClampsQuality(t *testing.T) {
	dir := t.TempDir()

	// Out-of-range quality falls back to the default instead of failing.
	for _, q := range []int{-1, 0, 101} {
		w := NewWriter(q)
		_, err := w.Write(testFrame(), dir, "frame.jpg")
		require.NoError(t, err)
	}
}

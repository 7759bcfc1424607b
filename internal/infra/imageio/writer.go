package imageio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
	"github.com/disintegration/imaging"
)

const defaultQuality = 90

// Writer encodes frames as JPEG files at a fixed quality level.
type Writer struct {
	quality int
}

func NewWriter(quality int) *Writer {
	if quality < 1 || quality > 100 {
		quality = defaultQuality
	}
	return &Writer{quality: quality}
}

func (w *Writer) Write(frame *port.Frame, dir, filename string) (string, error) {
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", entity.ErrFrameWrite, path, err)
	}

	if err := imaging.Encode(f, frame.Image, imaging.JPEG, imaging.JPEGQuality(w.quality)); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: encode %s: %v", entity.ErrFrameWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %v", entity.ErrFrameWrite, path, err)
	}
	return path, nil
}

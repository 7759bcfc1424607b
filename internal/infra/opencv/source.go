package opencv

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
	"gocv.io/x/gocv"
)

// Source opens video files with OpenCV's VideoCapture. One handle owns one
// capture; handles are not safe for concurrent use.
type Source struct{}

func NewSource() *Source {
	return &Source{}
}

func (Source) Open(path string) (port.VideoHandle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidVideo, err)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", entity.ErrInvalidVideo, path, err)
	}

	info := port.VideoInfo{
		TotalFrames: int(capture.Get(gocv.VideoCaptureFrameCount)),
		FPS:         capture.Get(gocv.VideoCaptureFPS),
		Width:       int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}
	if info.FPS <= 0 || info.TotalFrames <= 0 {
		capture.Close()
		return nil, fmt.Errorf("%w: %s reports %d frames at %.2f fps",
			entity.ErrInvalidVideo, path, info.TotalFrames, info.FPS)
	}

	return &handle{capture: capture, mat: gocv.NewMat(), info: info}, nil
}

type handle struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	info    port.VideoInfo
	cursor  int

	closeOnce sync.Once
	closeErr  error
}

func (h *handle) Info() port.VideoInfo {
	return h.info
}

func (h *handle) ReadSequential() (*port.Frame, error) {
	if ok := h.capture.Read(&h.mat); !ok || h.mat.Empty() {
		return nil, io.EOF
	}
	frame, err := h.decoded(h.cursor)
	h.cursor++
	return frame, err
}

func (h *handle) ReadAt(index int) (*port.Frame, error) {
	if index < 0 || index >= h.info.TotalFrames {
		return nil, fmt.Errorf("%w: %d of %d", entity.ErrFrameOutOfRange, index, h.info.TotalFrames)
	}
	h.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	if ok := h.capture.Read(&h.mat); !ok || h.mat.Empty() {
		return nil, fmt.Errorf("%w: decode frame %d", entity.ErrInvalidVideo, index)
	}
	h.cursor = index + 1
	return h.decoded(index)
}

func (h *handle) decoded(index int) (*port.Frame, error) {
	img, err := h.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame %d: %v", entity.ErrInvalidVideo, index, err)
	}
	return &port.Frame{
		Index:     index,
		Timestamp: float64(index) / h.info.FPS,
		Image:     img,
	}, nil
}

// Close releases the capture exactly once, also on error paths.
func (h *handle) Close() error {
	h.closeOnce.Do(func() {
		h.mat.Close()
		h.closeErr = h.capture.Close()
	})
	return h.closeErr
}

package port

import "image"

// VideoInfo carries the container-reported properties of an opened video.
type VideoInfo struct {
	TotalFrames int
	FPS         float64
	Width       int
	Height      int
}

// Duration is derived, never stored: total frames over FPS.
func (i VideoInfo) Duration() float64 {
	return float64(i.TotalFrames) / i.FPS
}

// Frame is one decoded frame. It is owned by the selector that read it and
// discarded as soon as it has been compared or written.
type Frame struct {
	Index     int
	Timestamp float64
	Image     image.Image
}

// VideoHandle is exclusive access to one open video. ReadSequential advances
// an internal cursor and returns io.EOF when the stream is exhausted. ReadAt
// seeks to an absolute frame index; indices must already be clamped to
// [0, TotalFrames-1] by the caller, out-of-range returns
// entity.ErrFrameOutOfRange. Close releases the decode resource and is safe
// to call more than once.
type VideoHandle interface {
	Info() VideoInfo
	ReadSequential() (*Frame, error)
	ReadAt(index int) (*Frame, error)
	Close() error
}

// VideoOpener opens a video file for decoding. Open fails with
// entity.ErrInvalidVideo when the path is missing or unreadable, the codec
// cannot be decoded, or the container reports no frames or a non-positive FPS.
type VideoOpener interface {
	Open(path string) (VideoHandle, error)
}

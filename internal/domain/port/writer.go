package port

// FrameWriter persists one decoded frame as a compressed image file.
// Write returns the full path of the written file or an error wrapping
// entity.ErrFrameWrite.
type FrameWriter interface {
	Write(frame *Frame, dir, filename string) (string, error)
}

package entity

import "errors"

// Engine failure taxonomy. Callers match with errors.Is and translate into
// their own status codes; the engine itself never logs.
var (
	// ErrInvalidVideo means the file is missing, unreadable, or undecodable,
	// or the container reports zero frames or a non-positive FPS.
	ErrInvalidVideo = errors.New("invalid video")

	// ErrInvalidParameter covers threshold outside [0,1], max keyframes < 1
	// and frames per timestamp < 1. Raised before any decode work starts.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrTimestampOutOfRange means at least one requested timestamp is
	// negative or beyond the video duration. The whole batch is rejected.
	ErrTimestampOutOfRange = errors.New("timestamp out of range")

	// ErrFrameWrite means the output directory or an encoded frame could not
	// be written. Frames written before the failure stay on disk.
	ErrFrameWrite = errors.New("frame write failed")

	// ErrFrameOutOfRange is an internal error: a seek was requested outside
	// [0, total_frames-1]. Offsets are clamped before seeking, so this
	// surfacing indicates an engine bug.
	ErrFrameOutOfRange = errors.New("frame index out of range")
)

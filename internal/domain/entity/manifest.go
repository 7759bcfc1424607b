package entity

import (
	"fmt"
	"strconv"
)

// FrameOffset is a signed frame distance from a target frame. Offset zero is
// the target itself and serializes as the string "exact"; every other value
// serializes as a plain integer. Downstream consumers key on this exact form.
type FrameOffset int

func (o FrameOffset) MarshalJSON() ([]byte, error) {
	if o == 0 {
		return []byte(`"exact"`), nil
	}
	return []byte(strconv.Itoa(int(o))), nil
}

func (o *FrameOffset) UnmarshalJSON(data []byte) error {
	if string(data) == `"exact"` {
		*o = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("parse frame offset %q: %w", data, err)
	}
	*o = FrameOffset(n)
	return nil
}

// Label is the filename form of the offset: "+1", "-2", or "exact".
func (o FrameOffset) Label() string {
	if o == 0 {
		return "exact"
	}
	return fmt.Sprintf("%+d", int(o))
}

// Keyframe is one accepted frame from a scene-change scan.
type Keyframe struct {
	Frame     int     `json:"frame"`
	Timestamp float64 `json:"timestamp"`
	Filename  string  `json:"filename"`
}

// TimestampFrame is one frame extracted from the window around a requested
// timestamp.
type TimestampFrame struct {
	TimestampIndex   int         `json:"timestamp_index"`
	TargetTimestamp  float64     `json:"target_timestamp"`
	ActualTimestamp  float64     `json:"actual_timestamp"`
	FrameNumber      int         `json:"frame_number"`
	OffsetFromTarget FrameOffset `json:"offset_from_target"`
	Filename         string      `json:"filename"`
}

// SceneManifest describes a completed scene-detection job. It is assembled
// once, after every accepted frame has been written.
type SceneManifest struct {
	VideoPath          string     `json:"video_path"`
	TotalFrames        int        `json:"total_frames"`
	Duration           float64    `json:"duration"`
	FPS                float64    `json:"fps"`
	KeyframesExtracted int        `json:"keyframes_extracted"`
	Threshold          float64    `json:"threshold"`
	Keyframes          []Keyframe `json:"keyframes"`
}

// TimestampManifest describes a completed timestamp-extraction job.
type TimestampManifest struct {
	VideoPath            string           `json:"video_path"`
	TotalFrames          int              `json:"total_frames"`
	Duration             float64          `json:"duration"`
	FPS                  float64          `json:"fps"`
	RequestedTimestamps  []float64        `json:"requested_timestamps"`
	FramesPerTimestamp   int              `json:"frames_per_timestamp"`
	TotalFramesExtracted int              `json:"total_frames_extracted"`
	Frames               []TimestampFrame `json:"frames"`
}

// Manifest file names inside the output directory (and the zip artifact).
const (
	SceneManifestFilename     = "keyframes_metadata.json"
	TimestampManifestFilename = "timestamp_frames_metadata.json"
)

// SceneKeyframeFilename builds the deterministic filename for an accepted
// keyframe. Sequence numbers are 1-based and contiguous.
func SceneKeyframeFilename(sequence int, timestamp float64) string {
	return fmt.Sprintf("keyframe_%04d_t%.2fs.jpg", sequence, timestamp)
}

// TimestampFrameFilename builds the deterministic filename for a frame
// extracted around a requested timestamp.
func TimestampFrameFilename(timestampIndex int, targetTimestamp float64, offset FrameOffset, frameIndex int) string {
	return fmt.Sprintf("frame_ts%03d_%.2fs_%s_f%06d.jpg", timestampIndex, targetTimestamp, offset.Label(), frameIndex)
}

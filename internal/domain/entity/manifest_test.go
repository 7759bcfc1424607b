package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameOffsetMarshal(t *testing.T) {
	data, err := json.Marshal(FrameOffset(0))
	require.NoError(t, err)
	assert.Equal(t, `"exact"`, string(data))

	data, err = json.Marshal(FrameOffset(-2))
	require.NoError(t, err)
	assert.Equal(t, `-2`, string(data))

	data, err = json.Marshal(FrameOffset(3))
	require.NoError(t, err)
	assert.Equal(t, `3`, string(data))
}

func TestFrameOffsetUnmarshal(t *testing.T) {
	var o FrameOffset
	require.NoError(t, json.Unmarshal([]byte(`"exact"`), &o))
	assert.Equal(t, FrameOffset(0), o)

	require.NoError(t, json.Unmarshal([]byte(`-1`), &o))
	assert.Equal(t, FrameOffset(-1), o)

	assert.Error(t, json.Unmarshal([]byte(`"nearby"`), &o))
}

func TestFrameOffsetLabel(t *testing.T) {
	assert.Equal(t, "exact", FrameOffset(0).Label())
	assert.Equal(t, "+1", FrameOffset(1).Label())
	assert.Equal(t, "-12", FrameOffset(-12).Label())
}

func TestSceneKeyframeFilename(t *testing.T) {
	assert.Equal(t, "keyframe_0001_t0.00s.jpg", SceneKeyframeFilename(1, 0))
	assert.Equal(t, "keyframe_0042_t123.46s.jpg", SceneKeyframeFilename(42, 123.456))
}

func TestTimestampFrameFilename(t *testing.T) {
	assert.Equal(t, "frame_ts000_5.00s_exact_f000150.jpg", TimestampFrameFilename(0, 5.0, 0, 150))
	assert.Equal(t, "frame_ts001_10.50s_-2_f000313.jpg", TimestampFrameFilename(1, 10.5, -2, 313))
	assert.Equal(t, "frame_ts012_0.00s_+1_f000001.jpg", TimestampFrameFilename(12, 0, 1, 1))
}

func TestTimestampManifestJSONShape(t *testing.T) {
	manifest := TimestampManifest{
		VideoPath:            "video.mp4",
		TotalFrames:          300,
		Duration:             10,
		FPS:                  30,
		RequestedTimestamps:  []float64{5},
		FramesPerTimestamp:   3,
		TotalFramesExtracted: 1,
		Frames: []TimestampFrame{{
			TimestampIndex:   0,
			TargetTimestamp:  5,
			ActualTimestamp:  5,
			FrameNumber:      150,
			OffsetFromTarget: 0,
			Filename:         "frame_ts000_5.00s_exact_f000150.jpg",
		}},
	}

	data, err := json.Marshal(manifest)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "requested_timestamps")
	assert.Contains(t, decoded, "total_frames_extracted")

	frames := decoded["frames"].([]any)
	frame := frames[0].(map[string]any)
	assert.Equal(t, "exact", frame["offset_from_target"])
	assert.Equal(t, float64(150), frame["frame_number"])
}

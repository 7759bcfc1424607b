package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
)

// timestampOffsets returns the centered window of frame offsets for k frames
// per timestamp. Odd k includes the exact target frame at offset 0; even k is
// symmetric around the target but skips 0, so no frame is labeled "exact".
// The even-k shape is documented behavior that downstream consumers depend
// on; do not rebalance it.
func timestampOffsets(k int) []entity.FrameOffset {
	offsets := make([]entity.FrameOffset, 0, k)
	if k%2 == 1 {
		half := (k - 1) / 2
		for i := -half; i <= half; i++ {
			offsets = append(offsets, entity.FrameOffset(i))
		}
		return offsets
	}
	half := k / 2
	for i := -half; i <= half; i++ {
		if i == 0 {
			continue
		}
		offsets = append(offsets, entity.FrameOffset(i))
	}
	return offsets
}

// timestampSelect resolves every requested timestamp to its window of frame
// indices and extracts each frame by random access. Multiple offsets may
// clamp to the same frame near the video boundaries; duplicates are kept.
type timestampSelect struct {
	timestamps []float64
	perTarget  int
	writer     port.FrameWriter
	outputDir  string
}

func (s *timestampSelect) run(ctx context.Context, handle port.VideoHandle) ([]entity.TimestampFrame, error) {
	info := handle.Info()
	duration := info.Duration()

	for _, ts := range s.timestamps {
		if ts < 0 || ts >= duration {
			return nil, fmt.Errorf("%w: %.2fs not in [0.00s, %.2fs)", entity.ErrTimestampOutOfRange, ts, duration)
		}
	}

	offsets := timestampOffsets(s.perTarget)
	records := make([]entity.TimestampFrame, 0, len(s.timestamps)*len(offsets))

	for tsIdx, target := range s.timestamps {
		targetFrame := clampFrame(int(math.Round(target*info.FPS)), info.TotalFrames)

		for _, offset := range offsets {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			frameIndex := clampFrame(targetFrame+int(offset), info.TotalFrames)
			frame, err := handle.ReadAt(frameIndex)
			if err != nil {
				return nil, fmt.Errorf("read frame %d: %w", frameIndex, err)
			}

			filename := entity.TimestampFrameFilename(tsIdx, target, offset, frameIndex)
			if _, err := s.writer.Write(frame, s.outputDir, filename); err != nil {
				return nil, err
			}

			records = append(records, entity.TimestampFrame{
				TimestampIndex:   tsIdx,
				TargetTimestamp:  target,
				ActualTimestamp:  float64(frameIndex) / info.FPS,
				FrameNumber:      frameIndex,
				OffsetFromTarget: offset,
				Filename:         filename,
			})
		}
	}

	return records, nil
}

func clampFrame(index, totalFrames int) int {
	if index < 0 {
		return 0
	}
	if index > totalFrames-1 {
		return totalFrames - 1
	}
	return index
}

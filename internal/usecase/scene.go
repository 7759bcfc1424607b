package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
)

// sceneScan walks the video sequentially, comparing every strideth frame
// against the last accepted keyframe and accepting when the histogram
// dissimilarity exceeds the threshold. The comparison state is an explicit
// accumulator: the last accepted frame's histogram plus the records emitted
// so far.
type sceneScan struct {
	threshold    float64
	maxKeyframes int
	stride       int
	writer       port.FrameWriter
	outputDir    string

	lastAccepted histogram
	accepted     []entity.Keyframe
}

// run drives the scan to completion. The first decodable frame is always
// accepted as keyframe 1; it defines the comparison baseline. Scanning stops
// as soon as maxKeyframes frames have been accepted, even if frames remain.
func (s *sceneScan) run(ctx context.Context, handle port.VideoHandle) ([]entity.Keyframe, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frame, err := handle.ReadSequential()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}

		if len(s.accepted) == 0 {
			if err := s.accept(frame); err != nil {
				return nil, err
			}
		} else if frame.Index%s.stride == 0 {
			h := intensityHistogram(frame.Image)
			if dissimilarity(s.lastAccepted, h) > s.threshold {
				if err := s.acceptWithHistogram(frame, h); err != nil {
					return nil, err
				}
			}
		}

		if len(s.accepted) >= s.maxKeyframes {
			break
		}
	}

	if len(s.accepted) == 0 {
		return nil, fmt.Errorf("%w: no decodable frames", entity.ErrInvalidVideo)
	}
	return s.accepted, nil
}

func (s *sceneScan) accept(frame *port.Frame) error {
	return s.acceptWithHistogram(frame, intensityHistogram(frame.Image))
}

// acceptWithHistogram writes the frame before scanning continues; unwritten
// keyframes are never buffered.
func (s *sceneScan) acceptWithHistogram(frame *port.Frame, h histogram) error {
	sequence := len(s.accepted) + 1
	filename := entity.SceneKeyframeFilename(sequence, frame.Timestamp)
	if _, err := s.writer.Write(frame, s.outputDir, filename); err != nil {
		return err
	}

	s.lastAccepted = h
	s.accepted = append(s.accepted, entity.Keyframe{
		Frame:     frame.Index,
		Timestamp: frame.Timestamp,
		Filename:  filename,
	})
	return nil
}

package port

import (
	"context"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
)

// KeyframeExtractor is the engine boundary the worker pipeline calls into.
// Both operations write image files plus a manifest JSON into outputDir and
// return the manifest for immediate use.
type KeyframeExtractor interface {
	ExtractScenes(ctx context.Context, videoPath, outputDir string, threshold float64, maxKeyframes int) (*entity.SceneManifest, error)
	ExtractAtTimestamps(ctx context.Context, videoPath, outputDir string, timestamps []float64, framesPerTimestamp int) (*entity.TimestampManifest, error)
}

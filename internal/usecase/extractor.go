package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
)

// Default extraction parameters, shared by the worker config and the CLI.
const (
	DefaultThreshold          = 0.3
	DefaultMaxKeyframes       = 100
	DefaultFramesPerTimestamp = 3
	DefaultSampleStride       = 5
	DefaultJPEGQuality        = 90
)

// EngineConfig is the explicit configuration value handed to the engine at
// construction. There is no package-level mutable state.
type EngineConfig struct {
	// SampleStride is the interval between frames evaluated during scene
	// scanning. Frames off the stride are never compared and never emitted.
	SampleStride int
}

// Engine selects and extracts keyframes from one video file per call. It
// holds no per-job state and never logs; failures surface as typed errors
// for the caller to translate.
type Engine struct {
	opener port.VideoOpener
	writer port.FrameWriter
	stride int
}

func NewEngine(opener port.VideoOpener, writer port.FrameWriter, cfg EngineConfig) *Engine {
	stride := cfg.SampleStride
	if stride < 1 {
		stride = DefaultSampleStride
	}
	return &Engine{opener: opener, writer: writer, stride: stride}
}

// ExtractScenes scans the video for scene changes and writes one JPEG per
// accepted keyframe plus a manifest JSON into outputDir. The first decodable
// frame is always keyframe 1; at most maxKeyframes are produced.
func (e *Engine) ExtractScenes(ctx context.Context, videoPath, outputDir string, threshold float64, maxKeyframes int) (*entity.SceneManifest, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %.2f not in [0,1]", entity.ErrInvalidParameter, threshold)
	}
	if maxKeyframes < 1 {
		return nil, fmt.Errorf("%w: max keyframes %d < 1", entity.ErrInvalidParameter, maxKeyframes)
	}
	if err := ensureOutputDir(outputDir); err != nil {
		return nil, err
	}

	handle, err := e.opener.Open(videoPath)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	scan := &sceneScan{
		threshold:    threshold,
		maxKeyframes: maxKeyframes,
		stride:       e.stride,
		writer:       e.writer,
		outputDir:    outputDir,
	}
	keyframes, err := scan.run(ctx, handle)
	if err != nil {
		return nil, err
	}

	info := handle.Info()
	manifest := &entity.SceneManifest{
		VideoPath:          videoPath,
		TotalFrames:        info.TotalFrames,
		Duration:           info.Duration(),
		FPS:                info.FPS,
		KeyframesExtracted: len(keyframes),
		Threshold:          threshold,
		Keyframes:          keyframes,
	}
	if err := writeManifest(filepath.Join(outputDir, entity.SceneManifestFilename), manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// ExtractAtTimestamps extracts a centered window of frames around each
// requested timestamp. The batch is rejected atomically if any timestamp is
// outside [0, duration). Per-frame random access keeps the cost independent
// of video length.
func (e *Engine) ExtractAtTimestamps(ctx context.Context, videoPath, outputDir string, timestamps []float64, framesPerTimestamp int) (*entity.TimestampManifest, error) {
	if framesPerTimestamp < 1 {
		return nil, fmt.Errorf("%w: frames per timestamp %d < 1", entity.ErrInvalidParameter, framesPerTimestamp)
	}
	if err := ensureOutputDir(outputDir); err != nil {
		return nil, err
	}

	handle, err := e.opener.Open(videoPath)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	sel := &timestampSelect{
		timestamps: timestamps,
		perTarget:  framesPerTimestamp,
		writer:     e.writer,
		outputDir:  outputDir,
	}
	frames, err := sel.run(ctx, handle)
	if err != nil {
		return nil, err
	}

	info := handle.Info()
	manifest := &entity.TimestampManifest{
		VideoPath:            videoPath,
		TotalFrames:          info.TotalFrames,
		Duration:             info.Duration(),
		FPS:                  info.FPS,
		RequestedTimestamps:  timestamps,
		FramesPerTimestamp:   framesPerTimestamp,
		TotalFramesExtracted: len(frames),
		Frames:               frames,
	}
	if err := writeManifest(filepath.Join(outputDir, entity.TimestampManifestFilename), manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func ensureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", entity.ErrFrameWrite, err)
	}
	return nil
}

func writeManifest(path string, manifest any) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal manifest: %v", entity.ErrFrameWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write manifest: %v", entity.ErrFrameWrite, err)
	}
	return nil
}

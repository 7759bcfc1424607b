package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/clipframe/clipframe-extraction-service/internal/domain/port"
	"github.com/clipframe/clipframe-extraction-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessExtractionUseCase runs one extraction job end to end: download the
// video from object storage, run the engine in the requested mode, zip the
// frames together with the manifest, upload the artifact, and publish status.
type ProcessExtractionUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	extractor port.KeyframeExtractor
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       ProcessExtractionConfig
}

type ProcessExtractionConfig struct {
	TempDir                   string
	MaxRetries                int
	DefaultThreshold          float64
	DefaultMaxKeyframes       int
	DefaultFramesPerTimestamp int
}

func NewProcessExtractionUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	extractor port.KeyframeExtractor,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessExtractionConfig,
) *ProcessExtractionUseCase {
	return &ProcessExtractionUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

func (uc *ProcessExtractionUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessExtractionUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.Mode == "" {
		msg.Mode = entity.ModeScene
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
		attribute.String("job.mode", string(msg.Mode)),
	)

	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("video_key", msg.VideoKey),
		zap.String("mode", string(msg.Mode)),
	)

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.Mode, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed", string(msg.Mode)).Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessExtractionUseCase) runPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from object storage
	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mp4")
	if err := uc.storage.DownloadVideo(dlCtx, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Run the extraction engine
	exStart := time.Now()
	exCtx, spanEx := tracer.Start(ctx, "extract_frames")
	framesDir := filepath.Join(workDir, "frames")
	framePaths, framesSaved, duration, err := uc.extract(exCtx, msg, videoPath, framesDir)
	spanEx.End()
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		if isPermanent(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "extract: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesSavedTotal.Add(float64(framesSaved))

	// Zip frames plus manifest
	zipStart := time.Now()
	zipCtx, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "frames.zip")
	if err := uc.zipper.CreateZip(zipCtx, framePaths, zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload artifact
	upStart := time.Now()
	upCtx, spanUp := tracer.Start(ctx, "upload_zip")
	zipKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	zipFile, err := os.Open(zipPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_zip: "+err.Error(), log)
	}
	zipStat, _ := zipFile.Stat()
	if err := uc.storage.UploadArtifact(upCtx, zipKey, zipFile, zipStat.Size()); err != nil {
		zipFile.Close()
		spanUp.End()
		log.Error("artifact upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_zip: "+err.Error(), log)
	}
	zipFile.Close()
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(zipKey, framesSaved, duration)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frames_saved", framesSaved),
		zap.Float64("duration_secs", duration),
		zap.String("zip_key", zipKey),
	)

	return nil
}

// extract dispatches to the engine per mode and returns the paths to zip, the
// number of saved frames, and the video duration.
func (uc *ProcessExtractionUseCase) extract(
	ctx context.Context,
	msg entity.ExtractionRequestMessage,
	videoPath, framesDir string,
) ([]string, int, float64, error) {
	switch msg.Mode {
	case entity.ModeScene:
		threshold := uc.cfg.DefaultThreshold
		if msg.Threshold != nil {
			threshold = *msg.Threshold
		}
		maxKeyframes := uc.cfg.DefaultMaxKeyframes
		if msg.MaxKeyframes != nil {
			maxKeyframes = *msg.MaxKeyframes
		}
		manifest, err := uc.extractor.ExtractScenes(ctx, videoPath, framesDir, threshold, maxKeyframes)
		if err != nil {
			return nil, 0, 0, err
		}
		paths := make([]string, 0, len(manifest.Keyframes)+1)
		for _, kf := range manifest.Keyframes {
			paths = append(paths, filepath.Join(framesDir, kf.Filename))
		}
		paths = append(paths, filepath.Join(framesDir, entity.SceneManifestFilename))
		return paths, len(manifest.Keyframes), manifest.Duration, nil

	case entity.ModeTimestamp:
		perTarget := uc.cfg.DefaultFramesPerTimestamp
		if msg.FramesPerTimestamp != nil {
			perTarget = *msg.FramesPerTimestamp
		}
		manifest, err := uc.extractor.ExtractAtTimestamps(ctx, videoPath, framesDir, msg.Timestamps, perTarget)
		if err != nil {
			return nil, 0, 0, err
		}
		paths := make([]string, 0, len(manifest.Frames)+1)
		for _, fr := range manifest.Frames {
			paths = append(paths, filepath.Join(framesDir, fr.Filename))
		}
		paths = append(paths, filepath.Join(framesDir, entity.TimestampManifestFilename))
		return paths, len(manifest.Frames), manifest.Duration, nil

	default:
		return nil, 0, 0, fmt.Errorf("%w: unknown mode %q", entity.ErrInvalidParameter, msg.Mode)
	}
}

// isPermanent reports whether an extraction error can never succeed on retry.
// Bad parameters and undecodable videos stay bad; only infrastructure errors
// are worth retrying.
func isPermanent(err error) bool {
	return errors.Is(err, entity.ErrInvalidVideo) ||
		errors.Is(err, entity.ErrInvalidParameter) ||
		errors.Is(err, entity.ErrTimestampOutOfRange)
}

func (uc *ProcessExtractionUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessExtractionUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq", string(job.Mode)).Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessExtractionUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.ExtractionStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		Mode:         job.Mode,
		VideoKey:     job.VideoKey,
		ZipKey:       job.ZipKey,
		FramesSaved:  job.FramesSaved,
		Duration:     job.VideoDuration,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

package port

import (
	"context"
	"io"
)

// VideoStorage moves videos in and finished artifacts out of object storage.
type VideoStorage interface {
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	UploadArtifact(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}

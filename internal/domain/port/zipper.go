package port

import "context"

// Zipper bundles extracted frames and their manifest into one artifact.
type Zipper interface {
	CreateZip(ctx context.Context, filePaths []string, outputPath string) error
}

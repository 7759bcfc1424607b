package port

import (
	"context"

	"github.com/clipframe/clipframe-extraction-service/internal/domain/entity"
	"github.com/google/uuid"
)

// JobRepository persists extraction job rows keyed by the request's job id.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

package port

import "context"

// StatusPublisher emits extraction lifecycle updates for downstream
// consumers (notification service, job dashboard).
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// DLQPublisher parks request messages that can never succeed, keeping the
// original body intact alongside the failure reason.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

package entity

import "github.com/google/uuid"

// ExtractionRequestMessage is the inbound message from the extraction.request
// queue. Mode selects which parameter set applies; pointers distinguish
// "absent, use the configured default" from an explicit zero.
type ExtractionRequestMessage struct {
	JobID              uuid.UUID      `json:"job_id"`
	UserID             string         `json:"user_id"`
	VideoKey           string         `json:"video_key"`
	FileSize           int64          `json:"file_size"`
	UserEmail          string         `json:"user_email"`
	Mode               ExtractionMode `json:"mode"`
	Threshold          *float64       `json:"threshold,omitempty"`
	MaxKeyframes       *int           `json:"max_keyframes,omitempty"`
	Timestamps         []float64      `json:"timestamps,omitempty"`
	FramesPerTimestamp *int           `json:"frames_per_timestamp,omitempty"`
}

// ExtractionStatusMessage is the outbound message published to the
// extraction.status queue.
type ExtractionStatusMessage struct {
	JobID        uuid.UUID      `json:"job_id"`
	UserID       string         `json:"user_id"`
	Status       JobStatus      `json:"status"`
	Mode         ExtractionMode `json:"mode"`
	VideoKey     string         `json:"video_key"`
	ZipKey       string         `json:"zip_key,omitempty"`
	FramesSaved  int            `json:"frames_saved,omitempty"`
	Duration     float64        `json:"duration_seconds,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Attempt      int            `json:"attempt"`
	MaxAttempts  int            `json:"max_attempts"`
}

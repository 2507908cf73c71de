package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RunKind string

const (
	RunKindCollection RunKind = "collection"
	RunKindRating     RunKind = "rating"
)

type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunStopped   RunState = "stopped"
	RunAborted   RunState = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunStopped || s == RunAborted
}

type StopReason string

const (
	StopTargetReached       StopReason = "target_reached"
	StopAttemptsExhausted   StopReason = "attempts_exhausted"
	StopConsecutiveFailures StopReason = "consecutive_failures"
	StopCancelled           StopReason = "cancelled"
	StopQuotaExhausted      StopReason = "quota_exhausted"
	StopUnauthorized        StopReason = "unauthorized"
	StopNoPending           StopReason = "no_pending"
	StopBatchDone           StopReason = "batch_done"
)

type Run struct {
	ID           uuid.UUID       `json:"id"`
	Kind         RunKind         `json:"kind"`
	Status       RunState        `json:"status"`
	ConfigJSON   json.RawMessage `json:"config"`
	Collected    int             `json:"collected"`
	Checked      int             `json:"checked"`
	Rejected     int             `json:"rejected"`
	Attempts     int             `json:"attempts"`
	StopReason   *string         `json:"stop_reason"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

type StartCollectionRequest struct {
	Category        string `json:"category"`
	Target          int    `json:"target_count"`
	RequireCaptions bool   `json:"require_captions"`
	Region          string `json:"region,omitempty"`
	CategoryFilter  string `json:"category_filter,omitempty"`
	MaxAttempts     int    `json:"max_attempts,omitempty"`
}

type StartRatingRequest struct {
	MaxItems int `json:"max_items"`
}

// RatingOutcome is the result of rating one pending record.
type RatingOutcome struct {
	Record   VideoRecord  `json:"record"`
	Score    *ScoreResult `json:"score"`
	Promoted bool         `json:"promoted"`
	Comments int          `json:"comments"`
	Error    string       `json:"error,omitempty"` // set when the item was discarded on a processing error
}

type UsedQuery struct {
	Query       string    `json:"query"`
	Category    Category  `json:"category"`
	UsedAt      time.Time `json:"timestamp"`
	VideosFound int       `json:"videos_found"`
	SessionID   string    `json:"session_id"`
}

// Progress event types
const (
	EventProgress  = "progress"
	EventAccepted  = "accepted"
	EventRejected  = "rejected"
	EventRated     = "rated"
	EventCompleted = "completed"
	EventError     = "error"
)

type ProgressEvent struct {
	RunID       uuid.UUID `json:"run_id"`
	Type        string    `json:"type"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	Current     int       `json:"current"`
	Target      int       `json:"target"`
	Category    Category  `json:"category,omitempty"`
	Query       string    `json:"query,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	State       RunState  `json:"state,omitempty"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

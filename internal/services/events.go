package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clipscout-backend/internal/models"
)

// RunChannel is the pub/sub channel carrying one run's progress.
func RunChannel(runID uuid.UUID) string {
	return fmt.Sprintf("run_updates:%s", runID.String())
}

// EventPublisher sends progress events to websocket subscribers via Redis pub/sub.
type EventPublisher struct {
	redis *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redis: redisClient}
}

func (p *EventPublisher) Publish(ctx context.Context, ev models.ProgressEvent) {
	if p == nil || p.redis == nil {
		return
	}
	data, err := json.Marshal(models.WSMessage{Type: ev.Type, Payload: ev})
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, RunChannel(ev.RunID), string(data)).Err(); err != nil {
		slog.Warn("failed to publish run event", slog.String("run_id", ev.RunID.String()), slog.Any("error", err))
	}
}

// Forward stamps every event with runID and publishes it until events is closed.
func (p *EventPublisher) Forward(ctx context.Context, runID uuid.UUID, events <-chan models.ProgressEvent) {
	for ev := range events {
		ev.RunID = runID
		p.Publish(ctx, ev)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voyagen/heatvault/internal/models"
)

// NewRecordsQueue is the Redis list that receives one event per new record.
const NewRecordsQueue = KeyPrefix + "records:new"

// RecordEvent announces a newly recorded media item.
type RecordEvent struct {
	RunID      string             `json:"run_id"`
	Record     models.MediaRecord `json:"record"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// Publish pushes ev onto the left side of queue.
func Publish(ctx context.Context, r *Redis, queue string, ev RecordEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	if err := r.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	return nil
}

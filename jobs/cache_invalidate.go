package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
)

// TaskCacheInvalidate fans an entity-group invalidation out to the worker so
// bulk imports can defer cache bumps off the write path.
const TaskCacheInvalidate = "cache:invalidate"

// CacheInvalidatePayload names the entity groups to flush.
type CacheInvalidatePayload struct {
	Entities []string `json:"entities"`
}

// NewCacheInvalidateTask constructs an Asynq task.
func NewCacheInvalidateTask(payload CacheInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheInvalidate, data), nil
}

// CacheInvalidateHandler returns the Asynq handler for TaskCacheInvalidate.
func CacheInvalidateHandler(invalidator *cache.Invalidator) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CacheInvalidatePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		invalidator.Invalidate(ctx, payload.Entities...)
		return nil
	}
}

// EnqueueCacheInvalidate enqueues a cache invalidation.
func (c *Client) EnqueueCacheInvalidate(ctx context.Context, payload CacheInvalidatePayload) (*asynq.TaskInfo, error) {
	task, err := NewCacheInvalidateTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

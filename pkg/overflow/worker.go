package overflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Handler processes one decoded overflow request
type Handler func(ctx context.Context, req Request) error

// ProcessTask adapts a Handler to asynq. Undecodable payloads are not retried.
func ProcessTask(h Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var req Request
		if err := json.Unmarshal(t.Payload(), &req); err != nil {
			return fmt.Errorf("decode overflow request: %v: %w", err, asynq.SkipRetry)
		}
		return h(ctx, req)
	}
}

// NewServer builds an asynq server consuming the overflow queue
func NewServer(redisAddr string, concurrency int, logger *slog.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{Queue: 1},
		},
	)

	handle := func(_ context.Context, req Request) error {
		logger.Info("overflow session requested",
			"gathering_id", req.GatheringID,
			"title", req.Title,
			"slot_id", req.Slot,
			"waitlisted", req.Waitlisted)
		return nil
	}

	mux := asynq.NewServeMux()
	mux.Handle(TypeOverflowRequested, ProcessTask(handle))
	return srv, mux
}

// Package overflow hands confirmed gatherings with a waitlist to whatever
// creates their follow-up sessions.
package overflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

const (
	// TypeOverflowRequested is the task type enqueued for every overflow request
	TypeOverflowRequested = "overflow:requested"
	// Queue is the asynq queue overflow tasks go to
	Queue = "overflow"
)

// Request describes the overflow session a confirmed gathering needs
type Request struct {
	GatheringID string        `json:"gathering_id"`
	Title       string        `json:"title"`
	Slot        models.SlotID `json:"slot_id"`
	Capacity    int           `json:"capacity"`
	Waitlisted  []string      `json:"waitlisted"`
	RequestedAt time.Time     `json:"requested_at"`
}

// NewRequest builds the request for a confirmed gathering's capacity result
func NewRequest(g *models.Gathering, result models.CapacityResult, at time.Time) Request {
	return Request{
		GatheringID: g.ID,
		Title:       g.Title,
		Slot:        g.ConfirmedSlot,
		Capacity:    g.Capacity,
		Waitlisted:  append([]string(nil), result.Waitlisted...),
		RequestedAt: at,
	}
}

// Dispatcher delivers overflow requests
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
	Close() error
}

// NewTask encodes a request as an asynq task
func NewTask(req Request) (*asynq.Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode overflow request: %w", err)
	}
	return asynq.NewTask(TypeOverflowRequested, payload, asynq.Queue(Queue), asynq.MaxRetry(5)), nil
}

// QueueDispatcher enqueues overflow requests on Redis through asynq
type QueueDispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueDispatcher connects to the Redis instance at addr
func NewQueueDispatcher(addr string, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: addr}),
		logger: logger,
	}
}

// Dispatch enqueues the request, deduplicated per gathering
func (d *QueueDispatcher) Dispatch(ctx context.Context, req Request) error {
	task, err := NewTask(req)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.TaskID("overflow-"+req.GatheringID))
	if err != nil {
		return fmt.Errorf("enqueue overflow for %s: %w", req.GatheringID, err)
	}
	d.logger.Info("overflow enqueued",
		"gathering_id", req.GatheringID,
		"task_id", info.ID,
		"queue", info.Queue,
		"waitlisted", len(req.Waitlisted))
	return nil
}

// Close releases the Redis connection
func (d *QueueDispatcher) Close() error {
	return d.client.Close()
}

// LogDispatcher only records overflow requests in the log. It is used when
// no Redis address is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher writing to logger
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the request
func (d *LogDispatcher) Dispatch(_ context.Context, req Request) error {
	d.logger.Warn("overflow requested without a task queue",
		"gathering_id", req.GatheringID,
		"slot_id", req.Slot,
		"waitlisted", req.Waitlisted)
	return nil
}

// Close is a no-op
func (d *LogDispatcher) Close() error { return nil }

// New picks the queue dispatcher when redisAddr is set and the log
// dispatcher otherwise
func New(redisAddr string, logger *slog.Logger) Dispatcher {
	if redisAddr == "" {
		return NewLogDispatcher(logger)
	}
	return NewQueueDispatcher(redisAddr, logger)
}

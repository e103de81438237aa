package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeExpire is the asynq task type that expires a quotation at its validity date.
const TypeExpire = "quotation:expire"

type expirePayload struct {
	QuotationID uuid.UUID `json:"quotation_id"`
}

// NewExpireTask builds the expiry task for id.
func NewExpireTask(id uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(expirePayload{QuotationID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExpire, payload), nil
}

// Scheduler enqueues quotation expiry.
type Scheduler interface {
	ScheduleExpiry(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AsynqScheduler schedules expiry tasks on an asynq queue.
type AsynqScheduler struct {
	Client *asynq.Client
	Queue  string
}

// ScheduleExpiry enqueues one task per quotation; re-scheduling the same id is a no-op.
func (s AsynqScheduler) ScheduleExpiry(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.Client == nil {
		return errors.New("quotation: task client not configured")
	}
	task, err := NewExpireTask(id)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.ProcessAt(at),
		asynq.TaskID(TypeExpire + ":" + id.String()),
		asynq.MaxRetry(5),
	}
	if s.Queue != "" {
		opts = append(opts, asynq.Queue(s.Queue))
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", TypeExpire, err)
	}
	return nil
}

// HandleExpireTask is the asynq handler for TypeExpire.
func (s *Service) HandleExpireTask(ctx context.Context, t *asynq.Task) error {
	var p expirePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeExpire, err, asynq.SkipRetry)
	}
	if p.QuotationID == uuid.Nil {
		return fmt.Errorf("%s payload without quotation id: %w", TypeExpire, asynq.SkipRetry)
	}
	err := s.Expire(ctx, p.QuotationID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("expire %s: %v: %w", p.QuotationID, err, asynq.SkipRetry)
	}
	return err
}

// RegisterTasks routes quotation tasks on mux.
func (s *Service) RegisterTasks(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeExpire, s.HandleExpireTask)
}

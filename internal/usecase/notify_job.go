package usecase

import (
	"context"
	"fmt"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/pkg/queue"
)

// NotifyMessageType is the queue message type for webhook delivery.
const NotifyMessageType = "alert.notify"

// NotifyJob delivers emitted envelopes to the webhook from the job queue,
// picking up the queue's retry and dead-letter handling.
type NotifyJob struct {
	notifier domrepo.Notifier
}

func NewNotifyJob(notifier domrepo.Notifier) *NotifyJob {
	return &NotifyJob{notifier: notifier}
}

func (j *NotifyJob) Name() string { return "webhook-notify" }
func (j *NotifyJob) Type() string { return NotifyMessageType }

func (j *NotifyJob) Handle(ctx context.Context, payload interface{}) error {
	env, err := queue.ParsePayload[models.AlertEnvelope](payload)
	if err != nil {
		return fmt.Errorf("parse notify payload: %w", err)
	}
	return j.notifier.Notify(ctx, env)
}

var _ queue.Job = (*NotifyJob)(nil)

package repository

import (
	"context"
	"fmt"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	pkghttp "Conflux/pkg/http"
	"Conflux/pkg/queue"
)

// WebhookNotifier posts raw envelope JSON to a configured URL. Transport
// only; rendering is the receiver's business.
type WebhookNotifier struct {
	client *pkghttp.Client
	url    string
}

func NewWebhookNotifier(client *pkghttp.Client, url string) domrepo.Notifier {
	return &WebhookNotifier{client: client, url: url}
}

func (n *WebhookNotifier) Notify(ctx context.Context, e *models.AlertEnvelope) error {
	err := n.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    n.url,
		Body:   e,
	}, nil)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	return nil
}

// QueueNotifier defers delivery to the job queue so webhook latency and
// retries never sit on the evaluation path.
type QueueNotifier struct {
	q       queue.QueueService
	msgType string
}

func NewQueueNotifier(q queue.QueueService, msgType string) domrepo.Notifier {
	return &QueueNotifier{q: q, msgType: msgType}
}

func (n *QueueNotifier) Notify(ctx context.Context, e *models.AlertEnvelope) error {
	if err := n.q.PublishMessage(ctx, n.msgType, e); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

package repository

import "context"

type WebhookEventRepository interface {
	Exists(ctx context.Context, gateway string, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, gateway string, eventID string, eventType string) error
}

package client

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
)

// Client is the backend contract consumed by the client core.
type Client interface {
	ListMedications(ctx context.Context) ([]models.Medication, error)
	CreateMedication(ctx context.Context, m models.NewMedication) (models.Medication, error)
	DeleteMedication(ctx context.Context, id string) error
	SetArchived(ctx context.Context, id string, archived bool) error

	ListReminders(ctx context.Context) ([]models.Reminder, error)
	CreateReminder(ctx context.Context, in models.ReminderInput) (models.Reminder, error)
	UpdateReminder(ctx context.Context, id string, in models.ReminderInput) (models.Reminder, error)
	ToggleReminder(ctx context.Context, id string) (models.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error

	Limits(ctx context.Context) (models.UserLimits, error)
	SubscriptionStatus(ctx context.Context) (models.SubscriptionStatus, error)

	Recognize(ctx context.Context, img models.Image, language string) (models.RecognitionResult, error)
	SearchCatalog(ctx context.Context, query, language string) ([]models.CatalogItem, error)
	CheckInteractions(ctx context.Context, req models.InteractionRequest) (models.InteractionReport, error)
}

// TokenSource yields the bearer credential attached to every request. An
// empty token means no Authorization header is sent.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

package notify

import (
	"context"
	"time"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

// Notifier delivers payment lifecycle notifications to backers.
// Rendering and delivery of the actual messages happens downstream;
// this interface only publishes the facts.
type Notifier interface {
	SendPaymentUpdateDue(ctx context.Context, project *models.Project, order *models.Order, dueDate time.Time, resumeLink string) error
	SendPaymentConfirmation(ctx context.Context, project *models.Project, order *models.Order, amount int64) error
}

// NopNotifier drops every notification. Used when no broker is
// configured, typically in development.
type NopNotifier struct{}

func (NopNotifier) SendPaymentUpdateDue(context.Context, *models.Project, *models.Order, time.Time, string) error {
	return nil
}

func (NopNotifier) SendPaymentConfirmation(context.Context, *models.Project, *models.Order, int64) error {
	return nil
}

package services

import (
	"context"

	"moneta/internal/core"
)

// EventPublisher notifies downstream consumers about state changes the
// services produced on their own clock. Implemented by the AMQP client;
// services treat a nil publisher as disabled.
type EventPublisher interface {
	PublishObligationResolved(ctx context.Context, obligationID int64, status core.ObligationStatus) error
	PublishBudgetRenewed(ctx context.Context, budgetID int64) error
}

package bus

import (
	"context"
	"log/slog"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

// Composite fans a single DomainEvent out to every registered
// domain.EventPublisher. A sink failing doesn't stop the others from
// receiving the event, matching CompositeEventPublisher.
type Composite struct {
	publishers []domain.EventPublisher
	logger     *slog.Logger
}

// NewComposite returns a Composite publishing to every sink in publishers,
// in order.
func NewComposite(logger *slog.Logger, publishers ...domain.EventPublisher) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{publishers: publishers, logger: logger}
}

// Publish implements domain.EventPublisher.
func (c *Composite) Publish(ctx context.Context, event domain.DomainEvent) error {
	for _, p := range c.publishers {
		if err := p.Publish(ctx, event); err != nil {
			c.logger.Error("failed to publish event to one of the sinks", "event_type", event.Type, "error", err)
		}
	}
	return nil
}

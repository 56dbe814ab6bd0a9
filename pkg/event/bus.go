package event

import (
	"context"
	"fmt"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

// Handler reacts to credential lifecycle events. Handlers decide for
// themselves which kinds they care about; unrecognized kinds must be
// ignored without error.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event *model.LifecycleEvent) error
}

// Bus dispatches lifecycle events synchronously to registered handlers in
// registration order. The first handler error aborts the dispatch and is
// returned to the caller, so a policy rejection reaches the credential
// change flow that raised the event.
type Bus struct {
	handlers []Handler
	logger   *logger.Logger
}

func NewBus(logger *logger.Logger) *Bus {
	return &Bus{logger: logger}
}

// Register appends a handler. Not safe to call concurrently with Dispatch;
// registration happens during process wiring.
func (b *Bus) Register(h Handler) {
	b.handlers = append(b.handlers, h)
	b.logger.Info("registered lifecycle event handler", "handler", h.Name())
}

// Dispatch delivers the event to every handler, stopping at the first
// error.
func (b *Bus) Dispatch(ctx context.Context, event *model.LifecycleEvent) error {
	for _, h := range b.handlers {
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("handler %s rejected %s event: %w", h.Name(), event.Kind, err)
		}
	}
	return nil
}

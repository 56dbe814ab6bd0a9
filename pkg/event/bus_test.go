package event

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

type recordingHandler struct {
	name  string
	err   error
	calls *[]string
	kinds []model.EventKind
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(_ context.Context, event *model.LifecycleEvent) error {
	*h.calls = append(*h.calls, h.name)
	h.kinds = append(h.kinds, event.Kind)
	return h.err
}

func testBus() *Bus {
	return NewBus(logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	}))
}

func TestDispatchInRegistrationOrder(t *testing.T) {
	bus := testBus()
	var calls []string
	bus.Register(&recordingHandler{name: "first", calls: &calls})
	bus.Register(&recordingHandler{name: "second", calls: &calls})

	err := bus.Dispatch(context.Background(), &model.LifecycleEvent{
		Kind: model.KindPostUpdateCredential,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatchStopsAtFirstError(t *testing.T) {
	bus := testBus()
	var calls []string
	rejection := errors.New("rejected")
	bus.Register(&recordingHandler{name: "rejecting", calls: &calls, err: rejection})
	bus.Register(&recordingHandler{name: "unreached", calls: &calls})

	err := bus.Dispatch(context.Background(), &model.LifecycleEvent{
		Kind: model.KindPreUpdateCredential,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, rejection)
	assert.Equal(t, []string{"rejecting"}, calls)
}

func TestDispatchWithNoHandlers(t *testing.T) {
	bus := testBus()

	assert.NoError(t, bus.Dispatch(context.Background(), &model.LifecycleEvent{
		Kind: model.KindUnknown,
	}))
}

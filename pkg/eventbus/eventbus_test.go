package eventbus

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderImported struct {
	Count int
}

type orderFailed struct {
	Reason string
}

func newTestBus() (EventBus, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	return NewEventPublisher(log), &buf
}

func TestPublish_DispatchesByEventType(t *testing.T) {
	bus, _ := newTestBus()

	var imported []orderImported
	var failed []orderFailed
	bus.Subscribe(func(e orderImported) { imported = append(imported, e) })
	bus.Subscribe(func(e orderFailed) { failed = append(failed, e) })

	bus.Publish(orderImported{Count: 3})
	bus.Publish(orderImported{Count: 1})
	bus.Publish(orderFailed{Reason: "timeout"})

	require.Len(t, imported, 2)
	assert.Equal(t, 3, imported[0].Count)
	require.Len(t, failed, 1)
	assert.Equal(t, "timeout", failed[0].Reason)
}

func TestPublish_InterfaceParamMatchesImplementors(t *testing.T) {
	bus, _ := newTestBus()

	var seen []error
	bus.Subscribe(func(err error) { seen = append(seen, err) })

	bus.Publish(assert.AnError)

	require.Len(t, seen, 1)
	assert.Equal(t, assert.AnError, seen[0])
}

func TestPublish_NoSubscriberWarns(t *testing.T) {
	bus, buf := newTestBus()

	bus.Publish(orderImported{})

	assert.Contains(t, buf.String(), "no subscribers")
}

func TestPublish_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus, buf := newTestBus()

	var delivered int
	bus.Subscribe(func(orderImported) { panic("handler exploded") })
	bus.Subscribe(func(orderImported) { delivered++ })

	bus.Publish(orderImported{})

	assert.Equal(t, 1, delivered)
	assert.Contains(t, buf.String(), "panicked")
	assert.Contains(t, buf.String(), "handler exploded")
}

func TestSubscribe_RejectsNonHandlers(t *testing.T) {
	bus, _ := newTestBus()

	assert.Panics(t, func() { bus.Subscribe("not a function") })
	assert.Panics(t, func() { bus.Subscribe(func(a, b int) {}) })
}

func TestUnsubscribe(t *testing.T) {
	bus, _ := newTestBus()

	var calls int
	handler := func(orderImported) { calls++ }
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Publish(orderImported{})
	bus.Unsubscribe(handler)
	bus.Publish(orderImported{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscribersCount())
}

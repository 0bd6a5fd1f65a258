// Package eventbus is a small in-process publish/subscribe bus. Handlers are
// plain functions taking one event argument; dispatch matches the dynamic
// event type against each handler's parameter type.
package eventbus

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventBus interface {
	Publish(event any)
	Subscribe(handler any)
	Unsubscribe(handler any)
	SubscribersCount() int
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisher{log: log}
}

type publisher struct {
	log *logrus.Logger

	mu       sync.RWMutex
	handlers []reflect.Value
}

// Subscribe registers a handler function. The handler must take exactly one
// argument; it receives every published event assignable to that argument's
// type.
func (p *publisher) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func || v.Type().NumIn() != 1 {
		panic("eventbus: handler must be a func taking one event argument")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, v)
}

func (p *publisher) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.handlers {
		if h.Pointer() == target.Pointer() {
			p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
			return
		}
	}
}

func (p *publisher) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers)
}

// Publish delivers event to every matching handler synchronously. A handler
// panic is logged and does not stop delivery to the remaining handlers.
func (p *publisher) Publish(event any) {
	p.mu.RLock()
	handlers := make([]reflect.Value, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	eventType := reflect.TypeOf(event)
	delivered := false
	for _, h := range handlers {
		if !accepts(h.Type().In(0), eventType) {
			continue
		}
		delivered = true
		p.call(h, event)
	}
	if !delivered && p.log != nil {
		p.log.Warnf("eventbus: no subscribers for %T", event)
	}
}

func (p *publisher) call(h reflect.Value, event any) {
	defer func() {
		if rec := recover(); rec != nil && p.log != nil {
			p.log.Errorf("eventbus: handler %s panicked: %v", h.Type(), rec)
		}
	}()
	h.Call([]reflect.Value{reflect.ValueOf(event)})
}

func accepts(param, event reflect.Type) bool {
	if event == nil {
		return param.Kind() == reflect.Interface || param.Kind() == reflect.Ptr
	}
	if param.Kind() == reflect.Interface {
		return event.Implements(param)
	}
	return event.AssignableTo(param)
}

// Package notify carries pipeline events to whoever presents them.
package notify

import (
	"autosendpic/internal/dto"
	"autosendpic/internal/logger"

	evbus "github.com/asaskevich/EventBus"
)

const (
	TopicError    = "pipeline:error"
	TopicDelivery = "pipeline:delivery"
)

// Notifier publishes events to asynchronous subscribers. A failing or slow
// subscriber never blocks the publisher.
type Notifier struct {
	bus    evbus.Bus
	logger *logger.Logger
}

func New(logger *logger.Logger) *Notifier {
	return &Notifier{
		bus:    evbus.New(),
		logger: logger,
	}
}

func (n *Notifier) PublishError(ev dto.ErrorEvent) {
	n.bus.Publish(TopicError, ev)
}

func (n *Notifier) PublishDelivery(ev dto.DeliveryEvent) {
	n.bus.Publish(TopicDelivery, ev)
}

// OnError registers fn for error events.
func (n *Notifier) OnError(fn func(dto.ErrorEvent)) error {
	return n.bus.SubscribeAsync(TopicError, func(ev dto.ErrorEvent) {
		defer n.recover(TopicError)
		fn(ev)
	}, false)
}

// OnDelivery registers fn for delivery outcomes.
func (n *Notifier) OnDelivery(fn func(dto.DeliveryEvent)) error {
	return n.bus.SubscribeAsync(TopicDelivery, func(ev dto.DeliveryEvent) {
		defer n.recover(TopicDelivery)
		fn(ev)
	}, false)
}

// Wait blocks until all handlers started so far have returned.
func (n *Notifier) Wait() {
	n.bus.WaitAsync()
}

func (n *Notifier) recover(topic string) {
	if r := recover(); r != nil {
		n.logger.Error("Subscriber of %s panicked: %v", topic, r)
	}
}

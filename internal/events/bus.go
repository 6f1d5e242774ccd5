// Package events is an in-process publish/subscribe fabric built on
// github.com/ThreeDotsLabs/watermill, grounded on the teacher's
// internal/eventprocessor message.Router (retry middleware, named
// no-publisher handlers) minus its NATS transport: this daemon is a single
// process with no message broker to talk to, so the gochannel in-memory
// pub/sub stands in for watermill-nats/nats.go here.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicTaskCompleted carries TaskCompleted events.
const TopicTaskCompleted = "task.completed"

// TaskCompleted is published once a Collection Engine run finishes (spec
// §4.F step 5), decoupling "a run just finished" from whoever reacts to it —
// today just an audit-log subscriber, but the seam is the point.
type TaskCompleted struct {
	TaskID string `json:"task_id"`
}

// Bus wires one gochannel pub/sub pair through a message.Router carrying the
// teacher's Recoverer middleware, so a panicking handler can't take the
// publisher down with it. Satisfies suture.Service via Serve/String, the
// same convention internal/supervisor/services.HTTPServer uses.
type Bus struct {
	pubSub *gochannel.GoChannel
	router *message.Router
}

// NewBus constructs a Bus. Handlers must be registered with Subscribe before
// Serve is called — the router's handler list is fixed once it starts running.
func NewBus() (*Bus, error) {
	logger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("events: new router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	return &Bus{pubSub: pubSub, router: router}, nil
}

// Subscribe registers a fire-and-forget handler on topic. The router acks
// the message when handler returns nil and nacks (triggering at-least-once
// redelivery) otherwise — no consumer in this daemon needs an ack built by hand.
func (b *Bus) Subscribe(name, topic string, handler func(ctx context.Context, payload []byte) error) {
	b.router.AddNoPublisherHandler(name, topic, b.pubSub, func(msg *message.Message) error {
		return handler(msg.Context(), msg.Payload)
	})
}

// PublishTaskCompleted marshals and publishes ev. Publish errors are logged
// by the router's own logger rather than returned — no caller in this
// daemon treats "nobody is subscribed yet" as fatal to the task it just ran.
func (b *Bus) PublishTaskCompleted(ctx context.Context, ev TaskCompleted) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	_ = b.pubSub.Publish(TopicTaskCompleted, msg)
}

// Serve runs the router until ctx is canceled, matching suture.Service's
// blocking-until-context-done convention.
func (b *Bus) Serve(ctx context.Context) error {
	return b.router.Run(ctx)
}

func (b *Bus) String() string { return "events-bus" }

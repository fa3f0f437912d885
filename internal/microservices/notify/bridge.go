package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// IntentSink accepts decoded intents; the Dispatcher is the production sink
type IntentSink interface {
	Notify(in Intent)
}

// IntentPublisher lets processes without live connections raise intents
type IntentPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

func NewIntentPublisher(rdb redis.UniversalClient, channel string) *IntentPublisher {
	return &IntentPublisher{rdb: rdb, channel: channel}
}

func (p *IntentPublisher) Publish(ctx context.Context, w WireIntent) error {
	// fail fast instead of letting a bad intent sit in the channel
	if _, err := w.Intent(); err != nil {
		return err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish intent: %w", err)
	}
	return nil
}

// IntentSubscriber feeds intents published on the channel into a sink
type IntentSubscriber struct {
	rdb     redis.UniversalClient
	channel string
	sink    IntentSink
	logger  *slog.Logger
}

func NewIntentSubscriber(rdb redis.UniversalClient, channel string, sink IntentSink, logger *slog.Logger) *IntentSubscriber {
	return &IntentSubscriber{rdb: rdb, channel: channel, sink: sink, logger: logger}
}

// Run blocks until ctx is cancelled or the subscription breaks
func (s *IntentSubscriber) Run(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.logger.Info("intent_subscriber_started", "channel", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription %s closed", s.channel)
			}
			s.handle(msg.Payload)
		}
	}
}

func (s *IntentSubscriber) handle(payload string) {
	in, err := DecodeIntent([]byte(payload))
	if err != nil {
		s.logger.Warn("intent_rejected", "channel", s.channel, "error", err)
		return
	}
	s.sink.Notify(in)
}

package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

// channelPrefix is the Redis channel namespace for per-content engagement
// streams. Channel form: engagement:content:<id>.
const channelPrefix = "engagement:content:"

// Publisher pushes engagement events into Redis channels. A nil Redis client
// turns publishing into a no-op so the API works without the realtime layer.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher using the provided Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish sends an engagement event to the content's channel.
func (p *Publisher) Publish(ctx context.Context, event EngagementEvent) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode engagement event: %w", err)
	}
	channel := fmt.Sprintf("%s%d", channelPrefix, event.ContentID)
	return p.rdb.Publish(ctx, channel, payload).Err()
}

// StartPatternSubscriber subscribes to every per-content channel and calls
// onMessage for each incoming message.
func (p *Publisher) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel, payload string),
) error {
	if p.rdb == nil {
		return nil
	}
	sub := p.rdb.PSubscribe(ctx, channelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in engagement subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

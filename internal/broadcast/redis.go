package broadcast

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "session:"

// Redis broadcasts over redis PUBLISH/SUBSCRIBE, one redis channel per
// session. Observers on other processes see the same stream as local ones.
type Redis struct {
	client *redis.Client
}

// NewRedis builds a broadcaster over an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Publish sends evt to every subscriber of the session channel.
func (r *Redis) Publish(ctx context.Context, channel string, evt Event) error {
	evt.Channel = channel
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, channelPrefix+channel, raw).Err(); err != nil {
		return err
	}
	publishedTotal.WithLabelValues(evt.Name).Inc()
	return nil
}

// Subscribe streams events for one session channel until cancel is called
// or ctx is done.
func (r *Redis) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	pubsub := r.client.Subscribe(ctx, channelPrefix+channel)
	// Force the subscription to be established before we report success.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}
	out := make(chan Event, subscriberBuffer)
	go pump(ctx, pubsub.Channel(), out)
	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

// SubscribePattern streams events for every session channel. Used by the
// monitor process; not part of the Broadcaster interface.
func (r *Redis) SubscribePattern(ctx context.Context) (<-chan Event, func(), error) {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}
	out := make(chan Event, subscriberBuffer)
	go pump(ctx, pubsub.Channel(), out)
	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

func pump(ctx context.Context, in <-chan *redis.Message, out chan<- Event) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Printf("broadcast: dropping undecodable event on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- evt:
			default:
				droppedTotal.WithLabelValues(evt.Name).Inc()
			}
		}
	}
}

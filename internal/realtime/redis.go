package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBridge carries events between instances over a Redis pub/sub channel.
type RedisBridge struct {
	client  *redis.Client
	channel string
	broker  *Broker
	logger  *slog.Logger
}

func NewRedisBridge(client *redis.Client, channel string, broker *Broker, logger *slog.Logger) *RedisBridge {
	if channel == "" {
		channel = "terapia:realtime"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBridge{client: client, channel: channel, broker: broker, logger: logger}
}

func (r *RedisBridge) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Run subscribes to the channel and delivers incoming events to the local
// broker until ctx is done.
func (r *RedisBridge) Run(ctx context.Context) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.broker.SetRemote(r)
	defer r.broker.SetRemote(nil)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Warn("realtime: bad event on redis channel", "err", err)
				continue
			}
			r.broker.Deliver(ev)
		}
	}
}

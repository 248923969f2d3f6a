package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const bridgeChannel = "relay:frames"

// Bridge exchanges relay frames between nodes over Redis Pub/Sub.
type Bridge struct {
	client  *redis.Client
	channel string
}

func NewBridge(client *redis.Client) *Bridge {
	return &Bridge{client: client, channel: bridgeChannel}
}

func (b *Bridge) Publish(ctx context.Context, frame domain.RelayFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}
	metrics.BridgeFramesTotal.WithLabelValues("out").Inc()
	return nil
}

// Run delivers every frame published by any node, including this one,
// until ctx is done.
func (b *Bridge) Run(ctx context.Context, deliver func(domain.RelayFrame)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var frame domain.RelayFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				log.Warn().Err(err).Msg("dropping malformed bridge frame")
				continue
			}
			metrics.BridgeFramesTotal.WithLabelValues("in").Inc()
			deliver(frame)
		}
	}
}

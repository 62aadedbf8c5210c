package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ChannelSettled carries every settled swap.
const ChannelSettled = "swaps:settled"

// TakerChannel carries the settled swaps of one wallet.
func TakerChannel(taker string) string {
	return fmt.Sprintf("swaps:taker:%s", taker)
}

type RedisPublisher struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisPublisher(client *redis.Client, logger *logrus.Logger) *RedisPublisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisPublisher{client: client, logger: logger}
}

// PublishSwap publishes to the global and per-taker channels in one pipeline.
func (p *RedisPublisher) PublishSwap(ctx context.Context, rec *SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, ChannelSettled, data)
	if rec.Taker != "" {
		pipe.Publish(ctx, TakerChannel(rec.Taker), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish swap: %w", err)
	}
	return nil
}

// Subscribe blocks delivering swaps from channel until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, channel string, handler SwapHandler) error {
	sub := p.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var rec SwapRecord
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				p.logger.WithError(err).Warn("error unmarshaling swap")
				continue
			}
			handler(&rec)
		}
	}
}

// Close is a no-op; the redis client is owned by the caller.
func (p *RedisPublisher) Close() error { return nil }

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RelayEnvelope carries one fan-out between nodes. When Scoped is false the
// payload goes to every authenticated socket.
type RelayEnvelope struct {
	Origin     string          `json:"origin"`
	Scoped     bool            `json:"scoped"`
	Recipients []uint          `json:"recipients,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Relay forwards fan-outs to hubs running on other nodes.
type Relay interface {
	Publish(ctx context.Context, env RelayEnvelope) error
	Subscribe(ctx context.Context) (<-chan RelayEnvelope, error)
	Close() error
}

const DefaultRelayChannel = "social-hub:messages"

// RedisRelay is a Relay over Redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(ctx context.Context, url, channel string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, env RelayEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, body).Err()
}

// Subscribe streams envelopes until ctx is done. Undecodable payloads are skipped.
func (r *RedisRelay) Subscribe(ctx context.Context) (<-chan RelayEnvelope, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan RelayEnvelope, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var env RelayEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}

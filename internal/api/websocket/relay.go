package websocket

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fortuna/crease/internal/publisher"
)

const readBlock = 5 * time.Second

// Relay tails the live ball stream and forwards each event to the hub.
type Relay struct {
	client *redis.Client
	hub    *Hub
	logger zerolog.Logger
}

// NewRelay creates a new stream relay.
func NewRelay(client *redis.Client, hub *Hub, logger zerolog.Logger) *Relay {
	return &Relay{client: client, hub: hub, logger: logger}
}

// Run consumes the ball stream until the context is cancelled. New
// connections only receive events from the moment they subscribe; history
// lives in the ball log, not the stream.
func (r *Relay) Run(ctx context.Context) {
	lastID := "$"

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{publisher.BallStream, lastID},
			Block:   readBlock,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			r.logger.Warn().Err(err).Msg("reading ball stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				if data, ok := msg.Values["data"].(string); ok {
					r.hub.Broadcast([]byte(data))
				}
			}
		}
	}
}

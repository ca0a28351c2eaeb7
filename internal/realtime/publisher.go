package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

const resubscribeDelay = 2 * time.Second

type channelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type channelSubscriber interface {
	Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error)
}

// Publisher sends events to every API instance through a Redis channel.
// Without Redis it broadcasts to the local hub only.
type Publisher struct {
	redis   channelPublisher
	channel string
	hub     *Hub
	logg    *logger.Logger
}

func NewPublisher(redis channelPublisher, channel string, hub *Hub, logg *logger.Logger) (*Publisher, error) {
	if redis == nil && hub == nil {
		return nil, fmt.Errorf("realtime publisher needs redis or a local hub")
	}
	if redis != nil && channel == "" {
		return nil, fmt.Errorf("realtime channel is required")
	}
	return &Publisher{redis: redis, channel: channel, hub: hub, logg: logg}, nil
}

// Publish never fails the caller; delivery errors are logged.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if p.redis == nil {
		p.hub.Broadcast(event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logError(ctx, "marshal realtime event", err)
		return
	}
	if err := p.redis.Publish(context.WithoutCancel(ctx), p.channel, payload); err != nil {
		p.logError(ctx, "publish realtime event", err)
		if p.hub != nil {
			p.hub.Broadcast(event)
		}
	}
}

func (p *Publisher) logError(ctx context.Context, msg string, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Error(ctx, msg, err)
}

// Relay forwards events from the Redis channel into the local hub until ctx
// is cancelled, resubscribing after connection loss.
type Relay struct {
	redis   channelSubscriber
	channel string
	hub     *Hub
	logg    *logger.Logger
}

func NewRelay(redis channelSubscriber, channel string, hub *Hub, logg *logger.Logger) (*Relay, error) {
	if redis == nil {
		return nil, fmt.Errorf("redis subscriber is required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("realtime channel is required")
	}
	return &Relay{redis: redis, channel: channel, hub: hub, logg: logg}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	for {
		sub, err := r.redis.Subscribe(ctx, r.channel)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if r.logg != nil {
				r.logg.Error(ctx, "realtime subscribe failed", err)
			}
		} else {
			r.forward(ctx, sub.Channel())
			_ = sub.Close()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

func (r *Relay) forward(ctx context.Context, messages <-chan *goredis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				if r.logg != nil {
					r.logg.Error(ctx, "decode realtime event", err)
				}
				continue
			}
			r.hub.Broadcast(event)
		}
	}
}

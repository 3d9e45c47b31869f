package live

import (
	"context"
	"errors"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

const resubscribeDelay = 2 * time.Second

type redisChannels interface {
	Publish(ctx context.Context, topic string, payload any) error
	PSubscribeLive(ctx context.Context) (*goredis.PubSub, error)
	TopicFromChannel(channel string) (string, bool)
}

// RedisBroker fans notifications out across API instances. Publish goes
// through Redis; Run relays every received channel message to the local hub.
type RedisBroker struct {
	client redisChannels
	hub    *Hub
	logg   *logger.Logger
}

func NewRedisBroker(client redisChannels, logg *logger.Logger) *RedisBroker {
	return &RedisBroker{client: client, hub: NewHub(), logg: logg}
}

func (b *RedisBroker) Subscribe(topic string) *Listener {
	return b.hub.Subscribe(topic)
}

// Publish falls back to local delivery when Redis rejects the message so
// subscribers on this instance still refresh.
func (b *RedisBroker) Publish(ctx context.Context, topic string) error {
	if err := b.client.Publish(ctx, topic, "1"); err != nil {
		b.hub.Notify(topic)
		return err
	}
	return nil
}

// Run relays Redis notifications until ctx is canceled, resubscribing after failures.
func (b *RedisBroker) Run(ctx context.Context) error {
	for {
		err := b.relay(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.logg != nil {
			b.logg.Error(ctx, "live relay interrupted; resubscribing", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resubscribeDelay):
		}
	}
}

func (b *RedisBroker) relay(ctx context.Context) error {
	ps, err := b.client.PSubscribeLive(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ps.Close() }()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis pubsub channel closed")
			}
			b.dispatch(msg.Channel)
		}
	}
}

func (b *RedisBroker) dispatch(channel string) {
	if topic, ok := b.client.TopicFromChannel(channel); ok {
		b.hub.Notify(topic)
	}
}

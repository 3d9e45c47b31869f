package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func TestHubCoalescesNotifications(t *testing.T) {
	hub := NewHub()
	l := hub.Subscribe("t")

	hub.Notify("t")
	hub.Notify("t")
	hub.Notify("other")

	select {
	case <-l.C():
	case <-time.After(waitFor):
		t.Fatal("expected a notification")
	}
	select {
	case <-l.C():
		t.Fatal("burst should collapse into one signal")
	default:
	}
}

func TestListenerCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	l := hub.Subscribe("t")
	other := hub.Subscribe("t")
	assert.Equal(t, 2, hub.Len("t"))

	l.Close()
	l.Close()
	assert.Equal(t, 1, hub.Len("t"))

	other.Close()
	assert.Equal(t, 0, hub.Len("t"))
}

func TestStreamDeliversInitialAndChangedSnapshots(t *testing.T) {
	hub := NewHub()
	var version atomic.Int64
	load := func(context.Context) (int64, error) { return version.Load(), nil }

	s := Watch(context.Background(), hub, []string{"a", "b"}, load, nil)
	defer s.Close()

	assert.EqualValues(t, 0, receive(t, s))

	version.Store(1)
	require.NoError(t, hub.Publish(context.Background(), "b"))
	assert.EqualValues(t, 1, receive(t, s))

	version.Store(2)
	require.NoError(t, hub.Publish(context.Background(), "a"))
	assert.EqualValues(t, 2, receive(t, s))
}

func TestStreamCloseStopsDeliveries(t *testing.T) {
	hub := NewHub()
	s := Watch(context.Background(), hub, []string{"a"}, func(context.Context) (string, error) { return "snap", nil }, nil)

	assert.Equal(t, "snap", receive(t, s))
	s.Close()
	s.Close()

	require.NoError(t, hub.Publish(context.Background(), "a"))
	_, open := <-s.C()
	assert.False(t, open, "channel must be closed after Close")
	assert.Equal(t, 0, hub.Len("a"))
}

func TestStreamCloseWhileDeliveryPending(t *testing.T) {
	hub := NewHub()
	s := Watch(context.Background(), hub, []string{"a"}, func(context.Context) (int, error) { return 1, nil }, nil)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Close blocked on an unread snapshot")
	}
}

func TestStreamReportsLoadErrorsAndRecovers(t *testing.T) {
	hub := NewHub()
	var calls atomic.Int64
	errs := make(chan error, 4)
	load := func(context.Context) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("db down")
		}
		return 7, nil
	}

	s := Watch(context.Background(), hub, []string{"a"}, load, func(err error) { errs <- err })
	defer s.Close()

	select {
	case err := <-errs:
		assert.EqualError(t, err, "db down")
	case <-time.After(waitFor):
		t.Fatal("expected load error")
	}

	require.NoError(t, hub.Publish(context.Background(), "a"))
	assert.EqualValues(t, 7, receive(t, s))
}

func TestRedisBrokerDispatchAndFallback(t *testing.T) {
	fake := &fakeChannels{publishErr: errors.New("redis down")}
	b := NewRedisBroker(fake, nil)
	l := b.Subscribe("conversation:1")
	defer l.Close()

	err := b.Publish(context.Background(), "conversation:1")
	require.Error(t, err)
	expectSignal(t, l)

	b.dispatch("ut:live:conversation:1")
	expectSignal(t, l)

	b.dispatch("unrelated")
	select {
	case <-l.C():
		t.Fatal("foreign channel must be ignored")
	default:
	}
}

func TestTopicsAreScoped(t *testing.T) {
	id := uuid.New()
	assert.NotEqual(t, BuyerInboxTopic(id), SellerInboxTopic(id))
	assert.Contains(t, ConversationTopic(id), id.String())
}

func receive[T any](t *testing.T, s *Stream[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.C():
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func expectSignal(t *testing.T, l *Listener) {
	t.Helper()
	select {
	case <-l.C():
	case <-time.After(waitFor):
		t.Fatal("expected notification")
	}
}

type fakeChannels struct {
	publishErr error
}

func (f *fakeChannels) Publish(context.Context, string, any) error { return f.publishErr }

func (f *fakeChannels) PSubscribeLive(context.Context) (*goredis.PubSub, error) {
	return nil, errors.New("not supported")
}

func (f *fakeChannels) TopicFromChannel(channel string) (string, bool) {
	const prefix = "ut:live:"
	if len(channel) > len(prefix) && channel[:len(prefix)] == prefix {
		return channel[len(prefix):], true
	}
	return "", false
}

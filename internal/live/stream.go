package live

import (
	"context"
	"sync"
)

// LoadFunc produces the current snapshot for a stream.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Stream delivers a fresh snapshot when opened and after every notification
// on its topics. Deliveries are unbuffered, so a slow consumer only ever sees
// the latest state.
type Stream[T any] struct {
	out       chan T
	cancel    context.CancelFunc
	listeners []*Listener
	wg        sync.WaitGroup
	once      sync.Once
}

// Watch opens a stream over topics. onErr receives load failures; the stream
// keeps running and retries on the next notification.
func Watch[T any](ctx context.Context, broker Broker, topics []string, load LoadFunc[T], onErr func(error)) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{out: make(chan T), cancel: cancel}

	merged := make(chan struct{}, 1)
	for _, topic := range topics {
		l := broker.Subscribe(topic)
		s.listeners = append(s.listeners, l)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-l.C():
					select {
					case merged <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, merged, load, onErr)
	}()
	return s
}

func (s *Stream[T]) loop(ctx context.Context, changed <-chan struct{}, load LoadFunc[T], onErr func(error)) {
	for {
		snapshot, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if onErr != nil {
				onErr(err)
			}
		} else {
			select {
			case <-ctx.Done():
				return
			case s.out <- snapshot:
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

// C yields snapshots until Close. The channel is closed by Close.
func (s *Stream[T]) C() <-chan T {
	return s.out
}

// Close stops the stream and waits for its goroutines. No value is delivered
// after Close returns. Safe to call more than once.
func (s *Stream[T]) Close() {
	s.once.Do(func() {
		s.cancel()
		for _, l := range s.listeners {
			l.Close()
		}
		s.wg.Wait()
		close(s.out)
	})
}

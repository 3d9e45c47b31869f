package conversations

import (
	"context"
	"sync"

	"github.com/deorejayesh9663/UniTrade/internal/live"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
)

// Feed is a live inbox merged from the buyer-role and seller-role streams.
type Feed struct {
	out     chan []models.Conversation
	cancel  context.CancelFunc
	streams []*live.Stream[[]models.Conversation]
	wg      sync.WaitGroup
	once    sync.Once
	onClose func()
}

func newFeed(ctx context.Context, buyer, seller *live.Stream[[]models.Conversation], onClose func()) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		out:     make(chan []models.Conversation),
		cancel:  cancel,
		streams: []*live.Stream[[]models.Conversation]{buyer, seller},
		onClose: onClose,
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.merge(ctx, buyer.C(), seller.C())
	}()
	return f
}

func (f *Feed) merge(ctx context.Context, buyer, seller <-chan []models.Conversation) {
	merger := NewMerger()
	for {
		var batch []models.Conversation
		var ok bool
		select {
		case <-ctx.Done():
			return
		case batch, ok = <-buyer:
		case batch, ok = <-seller:
		}
		if !ok {
			return
		}

		snapshot := merger.Apply(batch)
		select {
		case <-ctx.Done():
			return
		case f.out <- snapshot:
		}
	}
}

// C yields merged inbox snapshots until Close.
func (f *Feed) C() <-chan []models.Conversation {
	return f.out
}

// Close is idempotent; no snapshot is delivered after it returns.
func (f *Feed) Close() {
	f.once.Do(func() {
		f.cancel()
		for _, s := range f.streams {
			s.Close()
		}
		f.wg.Wait()
		close(f.out)
		if f.onClose != nil {
			f.onClose()
		}
	})
}

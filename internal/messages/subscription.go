package messages

import (
	"sync"

	"github.com/deorejayesh9663/UniTrade/internal/live"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
)

// Subscription streams full ascending message snapshots of one conversation.
type Subscription struct {
	stream  *live.Stream[[]models.Message]
	once    sync.Once
	onClose func()
}

// C yields a snapshot on open and after every appended message.
func (s *Subscription) C() <-chan []models.Message {
	return s.stream.C()
}

// Close is idempotent; no snapshot is delivered after it returns.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.stream.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

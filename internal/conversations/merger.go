package conversations

import (
	"slices"
	"strings"

	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/google/uuid"
)

// Merger folds role-scoped batches into one inbox. Batches upsert by id; the
// result is always sorted by updated_at desc with the id as tie-break.
type Merger struct {
	byID map[uuid.UUID]models.Conversation
}

func NewMerger() *Merger {
	return &Merger{byID: map[uuid.UUID]models.Conversation{}}
}

// Apply upserts batch and returns the full merged snapshot.
func (m *Merger) Apply(batch []models.Conversation) []models.Conversation {
	for _, conv := range batch {
		m.byID[conv.ID] = conv
	}
	return m.Snapshot()
}

func (m *Merger) Snapshot() []models.Conversation {
	out := make([]models.Conversation, 0, len(m.byID))
	for _, conv := range m.byID {
		out = append(out, conv)
	}
	sortInbox(out)
	return out
}

func sortInbox(rows []models.Conversation) {
	slices.SortFunc(rows, func(a, b models.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
}

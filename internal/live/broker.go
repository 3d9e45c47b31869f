// Package live fans change notifications out to open subscriptions.
// Notifications carry no payload: subscribers re-query and deliver snapshots.
package live

import (
	"context"

	"github.com/google/uuid"
)

// Broker publishes change notifications and registers listeners for them.
type Broker interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(topic string) *Listener
}

// ConversationTopic changes whenever a message is appended to the conversation.
func ConversationTopic(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}

// BuyerInboxTopic changes whenever a conversation where userID is the buyer changes.
func BuyerInboxTopic(userID uuid.UUID) string {
	return "inbox:buyer:" + userID.String()
}

// SellerInboxTopic changes whenever a conversation where userID is the seller changes.
func SellerInboxTopic(userID uuid.UUID) string {
	return "inbox:seller:" + userID.String()
}

package entity

import (
	"sort"
	"time"
)

type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageFailed    MessageStatus = "failed"
	MessageConfirmed MessageStatus = "confirmed"
)

// Message is immutable once acknowledged by the store. LocalID and Status are
// client-session state for optimistic entries and are never persisted.
type Message struct {
	ID             string    `json:"id,omitempty" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	SenderHandle   string    `json:"sender_handle" firestore:"senderHandle"`
	Content        string    `json:"content,omitempty" firestore:"content,omitempty"`
	AttachmentURL  string    `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`

	LocalID string        `json:"local_id,omitempty" firestore:"-"`
	Status  MessageStatus `json:"status,omitempty" firestore:"-"`
}

func (m *Message) sortID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.LocalID
}

// Less is the total order within a conversation: creation timestamp, ties
// broken by id lexical order (local id for unacknowledged entries).
func Less(a, b *Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.sortID() < b.sortID()
}

func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return Less(messages[i], messages[j])
	})
}

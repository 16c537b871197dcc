package repository

import (
	"context"
	"time"

	"unimarket/internal/domain/entity"
)

type ConversationRepository interface {
	// Create fails with CONFLICT when a conversation with the same id (the
	// canonical pair key) already exists.
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// ListByParticipant returns the account's conversations ordered
	// newest-last-message-first.
	ListByParticipant(ctx context.Context, accountID string) ([]*entity.Conversation, error)
	UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	// ListMessages returns the full history ordered by the message ordering
	// invariant (createdAt ascending, id as tiebreak).
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
}

package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// Notifier pushes a payload to one connected account. Satisfied by the
// websocket manager; nil disables pushes (polling still converges).
type Notifier interface {
	SendToAccount(accountID string, payload []byte)
}

// ChatUseCase is the produced interface of the messaging core: conversation
// directory operations plus per-conversation session lifecycle, sends, and
// snapshots. It owns the open sessions; nothing here is shared across
// accounts except through the store.
type ChatUseCase struct {
	convRepo    repository.ConversationRepository
	identity    *IdentityUseCase
	directory   *DirectoryUseCase
	attachments *AttachmentUseCase
	notifier    Notifier
	rateLimiter *ratelimit.RateLimiter
	interval    time.Duration
	maxChars    int

	mu       sync.Mutex
	sessions map[sessionKey]*session
}

type sessionKey struct {
	viewerID       string
	conversationID string
}

func NewChatUseCase(
	convRepo repository.ConversationRepository,
	identity *IdentityUseCase,
	directory *DirectoryUseCase,
	attachments *AttachmentUseCase,
	notifier Notifier,
	interval time.Duration,
	maxChars int,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		convRepo:    convRepo,
		identity:    identity,
		directory:   directory,
		attachments: attachments,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		interval:    interval,
		maxChars:    maxChars,
		sessions:    make(map[sessionKey]*session),
	}
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, viewerAccountID string) ([]*ConversationSummary, error) {
	return uc.directory.ListConversations(ctx, viewerAccountID)
}

// StartConversation resolves the peer handle and returns the pair's single
// conversation id, creating it if needed.
func (uc *ChatUseCase) StartConversation(ctx context.Context, viewerAccountID, peerHandle string) (string, error) {
	allowed, waitTime := uc.rateLimiter.Allow(viewerAccountID, "create_conversation")
	if !allowed {
		return "", errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation", waitTime)
	}

	return uc.directory.FindOrCreate(ctx, viewerAccountID, peerHandle)
}

// OpenConversation starts a sync session for the viewer and returns the
// loaded history. Re-opening replaces any previous session for the same pair,
// so a retry after a load failure starts clean.
func (uc *ChatUseCase) OpenConversation(ctx context.Context, viewerAccountID, conversationID string) ([]*entity.Message, error) {
	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(viewerAccountID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}

	handle, err := uc.identity.ResolveHandle(ctx, viewerAccountID)
	if err != nil {
		return nil, err
	}

	key := sessionKey{viewerID: viewerAccountID, conversationID: conversationID}

	s := newSession(
		conversationID, viewerAccountID, handle,
		uc.convRepo, uc.directory, uc.attachments,
		uc.interval, uc.maxChars,
		uc.pushUpdate(viewerAccountID),
	)

	history, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	if previous, ok := uc.sessions[key]; ok {
		previous.Close()
	}
	uc.sessions[key] = s
	uc.mu.Unlock()

	return history, nil
}

// CloseConversation tears the session down; its poll loop stops and its state
// is released. Closing a conversation that is not open is a no-op.
func (uc *ChatUseCase) CloseConversation(viewerAccountID, conversationID string) {
	key := sessionKey{viewerID: viewerAccountID, conversationID: conversationID}

	uc.mu.Lock()
	s, ok := uc.sessions[key]
	if ok {
		delete(uc.sessions, key)
	}
	uc.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, viewerAccountID, conversationID, content string, attachment *AttachmentUpload) (*entity.Message, error) {
	allowed, waitTime := uc.rateLimiter.Allow(viewerAccountID, "send_message")
	if !allowed {
		logger.Warn("Send rate limited for account %s (wait %v)", viewerAccountID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	s, err := uc.session(viewerAccountID, conversationID)
	if err != nil {
		return nil, err
	}

	message, err := s.Send(ctx, content, attachment)
	if err != nil {
		return message, err
	}

	uc.triggerPeers(conversationID, viewerAccountID)

	return message, nil
}

// RetrySend re-attempts a failed optimistic entry.
func (uc *ChatUseCase) RetrySend(ctx context.Context, viewerAccountID, conversationID, localID string) (*entity.Message, error) {
	s, err := uc.session(viewerAccountID, conversationID)
	if err != nil {
		return nil, err
	}

	message, err := s.RetrySend(ctx, localID)
	if err != nil {
		return message, err
	}

	uc.triggerPeers(conversationID, viewerAccountID)

	return message, nil
}

// DiscardFailed drops a failed optimistic entry the sender gave up on. If its
// attachment already made it to the blob store, the orphaned object is deleted.
func (uc *ChatUseCase) DiscardFailed(ctx context.Context, viewerAccountID, conversationID, localID string) error {
	s, err := uc.session(viewerAccountID, conversationID)
	if err != nil {
		return err
	}

	removed, err := s.Discard(localID)
	if err != nil {
		return err
	}

	uc.attachments.Remove(ctx, removed.AttachmentURL)

	return nil
}

// CurrentMessages returns the session's merged ordered list, including
// pending and failed entries.
func (uc *ChatUseCase) CurrentMessages(viewerAccountID, conversationID string) ([]*entity.Message, error) {
	s, err := uc.session(viewerAccountID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.Messages(), nil
}

func (uc *ChatUseCase) CurrentOwnHandle(ctx context.Context, viewerAccountID string) (string, error) {
	return uc.identity.ResolveHandle(ctx, viewerAccountID)
}

// Refresh early-triggers a reconciliation cycle for an open session. Unknown
// sessions are ignored; polling remains the backstop either way.
func (uc *ChatUseCase) Refresh(viewerAccountID, conversationID string) {
	uc.mu.Lock()
	s, ok := uc.sessions[sessionKey{viewerID: viewerAccountID, conversationID: conversationID}]
	uc.mu.Unlock()

	if ok {
		s.Refresh()
	}
}

func (uc *ChatUseCase) session(viewerAccountID, conversationID string) (*session, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	s, ok := uc.sessions[sessionKey{viewerID: viewerAccountID, conversationID: conversationID}]
	if !ok {
		return nil, errors.BadRequest("Conversation is not open", nil)
	}
	return s, nil
}

// triggerPeers nudges the other participant's open session so a send shows up
// before their next poll tick.
func (uc *ChatUseCase) triggerPeers(conversationID, senderAccountID string) {
	uc.mu.Lock()
	var peers []*session
	for key, s := range uc.sessions {
		if key.conversationID == conversationID && key.viewerID != senderAccountID {
			peers = append(peers, s)
		}
	}
	uc.mu.Unlock()

	for _, s := range peers {
		s.Refresh()
	}
}

func (uc *ChatUseCase) pushUpdate(viewerAccountID string) func(conversationID string, messages []*entity.Message) {
	return func(conversationID string, messages []*entity.Message) {
		if uc.notifier == nil {
			return
		}
		payload, err := json.Marshal(map[string]interface{}{
			"type":            "messages_update",
			"conversation_id": conversationID,
			"messages":        messages,
		})
		if err != nil {
			logger.Error("Failed to marshal messages update: %v", err)
			return
		}
		uc.notifier.SendToAccount(viewerAccountID, payload)
	}
}

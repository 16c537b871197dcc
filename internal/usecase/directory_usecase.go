package usecase

import (
	"context"
	"time"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// ConversationSummary is a directory entry: the conversation plus the peer's
// profile, resolved once per entry.
type ConversationSummary struct {
	*entity.Conversation
	Peer *PeerProfile `json:"peer,omitempty"`
}

// DirectoryUseCase lists a viewer's conversations and creates (or finds) the
// one conversation for a participant pair.
type DirectoryUseCase struct {
	convRepo repository.ConversationRepository
	identity *IdentityUseCase
}

func NewDirectoryUseCase(convRepo repository.ConversationRepository, identity *IdentityUseCase) *DirectoryUseCase {
	return &DirectoryUseCase{
		convRepo: convRepo,
		identity: identity,
	}
}

// ListConversations returns the viewer's conversations newest-last-message
// first. A viewer with no conversations gets an empty slice. Entries whose
// peer cannot be resolved right now are kept without a profile rather than
// dropped.
func (uc *DirectoryUseCase) ListConversations(ctx context.Context, viewerAccountID string) ([]*ConversationSummary, error) {
	conversations, err := uc.convRepo.ListByParticipant(ctx, viewerAccountID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := &ConversationSummary{Conversation: conversation}

		peer, err := uc.identity.ResolveConversationPeer(ctx, conversation.ID, viewerAccountID)
		if err != nil {
			logger.Warn("Peer resolution failed for conversation %s: %v", conversation.ID, err)
		} else {
			summary.Peer = peer
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// FindOrCreate resolves the peer handle (privileged step) and returns the id
// of the single conversation for the pair, creating it only if neither
// ordering exists yet. Safe under concurrent calls from both participants:
// the pair-keyed Create either wins or reports the row someone else just won.
func (uc *DirectoryUseCase) FindOrCreate(ctx context.Context, viewerAccountID, peerHandle string) (string, error) {
	peerAccountID, err := uc.identity.ResolveAccountID(ctx, peerHandle)
	if err != nil {
		return "", err
	}

	if peerAccountID == viewerAccountID {
		return "", errors.SelfConversation()
	}

	id := entity.PairKey(viewerAccountID, peerAccountID)

	conversation := &entity.Conversation{
		ID:             id,
		ParticipantIDs: []string{viewerAccountID, peerAccountID},
	}

	err = uc.convRepo.Create(ctx, conversation)
	if err == nil {
		return id, nil
	}
	if errors.Is(err, "CONFLICT") {
		return id, nil
	}

	return "", err
}

// UpdateLastMessage refreshes the denormalized directory summary. It is
// cosmetic for the list view, so failures are logged and swallowed; the send
// that triggered it has already succeeded.
func (uc *DirectoryUseCase) UpdateLastMessage(ctx context.Context, conversationID, text string, at time.Time) {
	if err := uc.convRepo.UpdateLastMessage(ctx, conversationID, text, at); err != nil {
		logger.Warn("Last-message update failed for conversation %s: %v", conversationID, err)
	}
}

package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

// PeerProfile is everything one participant may learn about the other: the
// derived handle plus display fields. Raw account ids never leave this package
// through it.
type PeerProfile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// IdentityUseCase is the anonymizer: the only component allowed to see an
// account id and its handle together. Handles are HMAC-derived, so they are
// stable for a given account and cannot be reversed without the secret.
type IdentityUseCase struct {
	accountRepo repository.AccountRepository
	convRepo    repository.ConversationRepository
	secret      []byte

	mu       sync.RWMutex
	byID     map[string]string
	byHandle map[string]string
}

func NewIdentityUseCase(
	accountRepo repository.AccountRepository,
	convRepo repository.ConversationRepository,
	handleSecret string,
) *IdentityUseCase {
	return &IdentityUseCase{
		accountRepo: accountRepo,
		convRepo:    convRepo,
		secret:      []byte(handleSecret),
		byID:        make(map[string]string),
		byHandle:    make(map[string]string),
	}
}

func (uc *IdentityUseCase) deriveHandle(accountID string) string {
	mac := hmac.New(sha256.New, uc.secret)
	mac.Write([]byte(accountID))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

func (uc *IdentityUseCase) cached(accountID string) (string, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	handle, ok := uc.byID[accountID]
	return handle, ok
}

func (uc *IdentityUseCase) cache(accountID, handle string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.byID[accountID] = handle
	uc.byHandle[handle] = accountID
}

// ResolveHandle returns the stable handle for an account, deriving and
// persisting it on first use. Cached for the process lifetime.
func (uc *IdentityUseCase) ResolveHandle(ctx context.Context, accountID string) (string, error) {
	if handle, ok := uc.cached(accountID); ok {
		return handle, nil
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return "", errors.IdentityResolution("Could not resolve account handle", err)
	}

	return uc.handleFromAccount(ctx, account)
}

// handleFromAccount resolves the handle from an already-loaded account row,
// deriving and persisting it if the row has none yet.
func (uc *IdentityUseCase) handleFromAccount(ctx context.Context, account *entity.Account) (string, error) {
	if handle, ok := uc.cached(account.ID); ok {
		return handle, nil
	}

	handle := account.Handle
	if handle == "" {
		handle = uc.deriveHandle(account.ID)
		if err := uc.accountRepo.SetHandle(ctx, account.ID, handle); err != nil {
			return "", errors.IdentityResolution("Could not store account handle", err)
		}
	}

	uc.cache(account.ID, handle)
	return handle, nil
}

// ResolveConversationPeer returns the other participant's profile for a
// conversation the viewer belongs to. Non-participants get the same opaque
// error as backend failures, so the call leaks nothing about membership.
func (uc *IdentityUseCase) ResolveConversationPeer(ctx context.Context, conversationID, viewerAccountID string) (*PeerProfile, error) {
	conversation, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, errors.IdentityResolution("Could not resolve conversation peer", err)
	}

	peerID, ok := conversation.PeerOf(viewerAccountID)
	if !ok {
		return nil, errors.IdentityResolution("Could not resolve conversation peer", nil)
	}

	account, err := uc.accountRepo.GetByID(ctx, peerID)
	if err != nil {
		return nil, errors.IdentityResolution("Could not resolve conversation peer", err)
	}

	handle, err := uc.handleFromAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	return &PeerProfile{
		Handle:      handle,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
	}, nil
}

// ResolveAccountID is the privileged reverse mapping, used only by the
// conversation directory when a viewer starts a chat from a handle.
func (uc *IdentityUseCase) ResolveAccountID(ctx context.Context, handle string) (string, error) {
	uc.mu.RLock()
	accountID, ok := uc.byHandle[handle]
	uc.mu.RUnlock()
	if ok {
		return accountID, nil
	}

	account, err := uc.accountRepo.GetByHandle(ctx, handle)
	if err != nil {
		return "", errors.IdentityResolution("Could not resolve handle", err)
	}

	uc.cache(account.ID, handle)
	return account.ID, nil
}

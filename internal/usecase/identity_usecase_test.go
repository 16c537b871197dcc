package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

func TestResolveHandleIsStableAndPersistedOnce(t *testing.T) {
	accountRepo := newFakeAccountRepo(&entity.Account{ID: "alice-uid", DisplayName: "Alice"})
	convRepo := newFakeConversationRepo()
	identity := NewIdentityUseCase(accountRepo, convRepo, "test-secret")

	first, err := identity.ResolveHandle(context.Background(), "alice-uid")
	assert.NoError(t, err)
	assert.Len(t, first, 32)
	assert.NotContains(t, first, "alice-uid")

	second, err := identity.ResolveHandle(context.Background(), "alice-uid")
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	// Derivation happens once; later calls hit the cache.
	assert.Equal(t, 1, accountRepo.setHandleCalls)
}

func TestResolveHandleDiffersPerAccountAndSecret(t *testing.T) {
	accountRepo := newFakeAccountRepo(
		&entity.Account{ID: "alice-uid"},
		&entity.Account{ID: "bob-uid"},
	)
	convRepo := newFakeConversationRepo()

	identity := NewIdentityUseCase(accountRepo, convRepo, "secret-one")
	alice, err := identity.ResolveHandle(context.Background(), "alice-uid")
	assert.NoError(t, err)
	bob, err := identity.ResolveHandle(context.Background(), "bob-uid")
	assert.NoError(t, err)
	assert.NotEqual(t, alice, bob)

	otherSecret := NewIdentityUseCase(newFakeAccountRepo(&entity.Account{ID: "alice-uid"}), convRepo, "secret-two")
	aliceAgain, err := otherSecret.ResolveHandle(context.Background(), "alice-uid")
	assert.NoError(t, err)
	assert.NotEqual(t, alice, aliceAgain)
}

func TestResolveHandleBackendFailure(t *testing.T) {
	accountRepo := newFakeAccountRepo()
	accountRepo.failGetByID = true
	identity := NewIdentityUseCase(accountRepo, newFakeConversationRepo(), "test-secret")

	_, err := identity.ResolveHandle(context.Background(), "alice-uid")
	assert.True(t, errors.Is(err, "IDENTITY_RESOLUTION"))
}

func TestResolveAccountIDRoundTrip(t *testing.T) {
	accountRepo := newFakeAccountRepo(&entity.Account{ID: "alice-uid"})
	identity := NewIdentityUseCase(accountRepo, newFakeConversationRepo(), "test-secret")

	handle, err := identity.ResolveHandle(context.Background(), "alice-uid")
	assert.NoError(t, err)

	accountID, err := identity.ResolveAccountID(context.Background(), handle)
	assert.NoError(t, err)
	assert.Equal(t, "alice-uid", accountID)
}

func TestResolveAccountIDUnknownHandle(t *testing.T) {
	identity := NewIdentityUseCase(newFakeAccountRepo(), newFakeConversationRepo(), "test-secret")

	_, err := identity.ResolveAccountID(context.Background(), "no-such-handle")
	assert.True(t, errors.Is(err, "IDENTITY_RESOLUTION"))
}

func TestResolveConversationPeer(t *testing.T) {
	accountRepo := newFakeAccountRepo(
		&entity.Account{ID: "alice-uid", DisplayName: "Alice", AvatarURL: "https://example.com/a.png"},
		&entity.Account{ID: "bob-uid", DisplayName: "Bob"},
	)
	convRepo := newFakeConversationRepo()
	identity := NewIdentityUseCase(accountRepo, convRepo, "test-secret")

	conversation := &entity.Conversation{
		ID:             entity.PairKey("alice-uid", "bob-uid"),
		ParticipantIDs: []string{"alice-uid", "bob-uid"},
	}
	assert.NoError(t, convRepo.Create(context.Background(), conversation))

	peer, err := identity.ResolveConversationPeer(context.Background(), conversation.ID, "bob-uid")
	assert.NoError(t, err)
	assert.Equal(t, "Alice", peer.DisplayName)
	assert.Equal(t, "https://example.com/a.png", peer.AvatarURL)
	assert.NotEmpty(t, peer.Handle)
	assert.NotEqual(t, "alice-uid", peer.Handle)
}

func TestResolveConversationPeerFetchesAccountOnce(t *testing.T) {
	accountRepo := newFakeAccountRepo(
		&entity.Account{ID: "alice-uid", DisplayName: "Alice"},
		&entity.Account{ID: "bob-uid"},
	)
	convRepo := newFakeConversationRepo()
	identity := NewIdentityUseCase(accountRepo, convRepo, "test-secret")

	conversation := &entity.Conversation{
		ID:             entity.PairKey("alice-uid", "bob-uid"),
		ParticipantIDs: []string{"alice-uid", "bob-uid"},
	}
	assert.NoError(t, convRepo.Create(context.Background(), conversation))

	_, err := identity.ResolveConversationPeer(context.Background(), conversation.ID, "bob-uid")
	assert.NoError(t, err)

	// One account read resolves profile and handle together, even on a cold
	// cache that still has to derive and persist the handle.
	assert.Equal(t, 1, accountRepo.getByIDCalls)
	assert.Equal(t, 1, accountRepo.setHandleCalls)
}

func TestResolveConversationPeerNonParticipantGetsOpaqueError(t *testing.T) {
	accountRepo := newFakeAccountRepo(
		&entity.Account{ID: "alice-uid"},
		&entity.Account{ID: "bob-uid"},
	)
	convRepo := newFakeConversationRepo()
	identity := NewIdentityUseCase(accountRepo, convRepo, "test-secret")

	conversation := &entity.Conversation{
		ID:             entity.PairKey("alice-uid", "bob-uid"),
		ParticipantIDs: []string{"alice-uid", "bob-uid"},
	}
	assert.NoError(t, convRepo.Create(context.Background(), conversation))

	_, outsiderErr := identity.ResolveConversationPeer(context.Background(), conversation.ID, "mallory-uid")
	_, missingErr := identity.ResolveConversationPeer(context.Background(), "no-such-conversation", "alice-uid")

	// Membership must not be inferable from the error shape.
	assert.True(t, errors.Is(outsiderErr, "IDENTITY_RESOLUTION"))
	assert.True(t, errors.Is(missingErr, "IDENTITY_RESOLUTION"))
}

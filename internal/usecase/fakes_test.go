package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

type fakeAccountRepo struct {
	mu             sync.Mutex
	accounts       map[string]*entity.Account
	setHandleCalls int
	getByIDCalls   int
	failGetByID    bool
}

func newFakeAccountRepo(accounts ...*entity.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: make(map[string]*entity.Account)}
	for _, account := range accounts {
		copied := *account
		repo.accounts[account.ID] = &copied
	}
	return repo
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByIDCalls++
	if r.failGetByID {
		return nil, fmt.Errorf("account backend unavailable")
	}
	account, ok := r.accounts[id]
	if !ok {
		return nil, errors.NotFound("Account", nil)
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByHandle(ctx context.Context, handle string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Handle == handle {
			copied := *account
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Account", nil)
}

func (r *fakeAccountRepo) SetHandle(ctx context.Context, id, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return errors.NotFound("Account", nil)
	}
	account.Handle = handle
	r.setHandleCalls++
	return nil
}

type fakeConversationRepo struct {
	mu             sync.Mutex
	conversations  map[string]*entity.Conversation
	messages       map[string][]*entity.Message
	failList       bool
	failCreateMsg  bool
	listCalls      int
	createMsgCalls int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func (r *fakeConversationRepo) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversation.ID]; ok {
		return errors.Conflict("Conversation already exists")
	}
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	copied := *conversation
	copied.ParticipantIDs = append([]string(nil), conversation.ParticipantIDs...)
	r.conversations[conversation.ID] = &copied
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	copied := *conversation
	copied.ParticipantIDs = append([]string(nil), conversation.ParticipantIDs...)
	return &copied, nil
}

func (r *fakeConversationRepo) ListByParticipant(ctx context.Context, accountID string) ([]*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*entity.Conversation, 0)
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(accountID) {
			copied := *conversation
			copied.ParticipantIDs = append([]string(nil), conversation.ParticipantIDs...)
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, nil
}

func (r *fakeConversationRepo) UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.LastMessage = text
	conversation.LastMessageAt = at
	conversation.UpdatedAt = at
	return nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createMsgCalls++
	if r.failCreateMsg {
		return fmt.Errorf("message store unavailable")
	}
	message.ID = uuid.New().String()
	message.CreatedAt = time.Now()
	copied := *message
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], &copied)
	return nil
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.failList {
		return nil, fmt.Errorf("message store unavailable")
	}
	result := make([]*entity.Message, 0, len(r.messages[conversationID]))
	for _, message := range r.messages[conversationID] {
		copied := *message
		copied.Status = entity.MessageConfirmed
		result = append(result, &copied)
	}
	entity.SortMessages(result)
	return result, nil
}

func (r *fakeConversationRepo) storedMessageCount(conversationID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[conversationID])
}

type fakeStorage struct {
	mu         sync.Mutex
	uploads    int
	lastFolder string
	deleted    []string
	failUpload bool
}

func (s *fakeStorage) UploadFile(ctx context.Context, file io.Reader, fileType, folder string, isPublic bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpload {
		return "", fmt.Errorf("object store unavailable")
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}
	s.uploads++
	s.lastFolder = folder
	return fmt.Sprintf("https://storage.example.com/%s/object-%d", folder, s.uploads), nil
}

func (s *fakeStorage) DeleteFile(ctx context.Context, fileURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, fileURL)
	return nil
}

func (s *fakeStorage) deletedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func (s *fakeStorage) Close() error {
	return nil
}

func (s *fakeStorage) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

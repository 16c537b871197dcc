package usecase

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateLoading
	stateSynced
	stateRefreshing
	stateClosed
)

// reconcileWindow bounds the created-at distance when matching an optimistic
// entry against a confirmed row; the optimistic entry carries a client clock,
// the row a store clock.
const reconcileWindow = 2 * time.Minute

// session owns the local ordered message list for one open (viewer,
// conversation) pair. The list is mutated only by the load step, the
// reconciliation merge, and the optimistic-send path, each under mu. The poll
// loop is the correctness backstop: it assumes nothing about change
// notifications and converges even if no early trigger ever fires.
type session struct {
	conversationID string
	viewerID       string
	viewerHandle   string

	convRepo    repository.ConversationRepository
	directory   *DirectoryUseCase
	attachments *AttachmentUseCase
	interval    time.Duration
	maxChars    int
	onUpdate    func(conversationID string, messages []*entity.Message)

	mu       sync.Mutex
	state    sessionState
	messages []*entity.Message

	// sendMu serializes sends from this composer; sends from the other
	// participant land through reconciliation instead.
	sendMu sync.Mutex

	refresh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(
	conversationID, viewerID, viewerHandle string,
	convRepo repository.ConversationRepository,
	directory *DirectoryUseCase,
	attachments *AttachmentUseCase,
	interval time.Duration,
	maxChars int,
	onUpdate func(conversationID string, messages []*entity.Message),
) *session {
	return &session{
		conversationID: conversationID,
		viewerID:       viewerID,
		viewerHandle:   viewerHandle,
		convRepo:       convRepo,
		directory:      directory,
		attachments:    attachments,
		interval:       interval,
		maxChars:       maxChars,
		onUpdate:       onUpdate,
		state:          stateIdle,
		refresh:        make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
}

// open fetches the full ordered history and starts the poll loop. On failure
// the history stays cleared and the session returns to idle, so a rapid
// conversation switch can never show another conversation's messages.
func (s *session) open(ctx context.Context) ([]*entity.Message, error) {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return nil, errors.LoadFailed("Conversation is already open", nil)
	}
	s.state = stateLoading
	s.mu.Unlock()

	history, err := s.convRepo.ListMessages(ctx, s.conversationID)

	s.mu.Lock()
	if err != nil {
		s.messages = nil
		s.state = stateIdle
		s.mu.Unlock()
		return nil, errors.LoadFailed("Failed to load conversation history", err)
	}
	s.messages = history
	s.state = stateSynced
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	go s.loop()

	return snapshot, nil
}

// loop polls on a fixed cadence, with refresh as the optional early trigger.
func (s *session) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.reconcile()
		case <-s.refresh:
			s.reconcile()
		}
	}
}

// Refresh requests an immediate reconciliation cycle without waiting for the
// next tick. Safe to call from any goroutine; coalesces bursts.
func (s *session) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// reconcile re-fetches the authoritative list and merges it with local state.
// The state guard keeps at most one fetch in flight: an overrunning cycle
// makes the next tick a no-op instead of stacking.
func (s *session) reconcile() {
	s.mu.Lock()
	if s.state != stateSynced {
		s.mu.Unlock()
		return
	}
	s.state = stateRefreshing
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.interval*2)
	confirmed, err := s.convRepo.ListMessages(ctx, s.conversationID)
	cancel()

	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	s.state = stateSynced
	if err != nil {
		s.mu.Unlock()
		logger.Warn("Reconciliation fetch failed for conversation %s: %v", s.conversationID, err)
		return
	}

	// Merge against the list as it is now, not as it was when the fetch
	// started: a send that landed mid-fetch is still pending here and
	// survives the merge.
	merged, changed := mergeMessages(confirmed, s.messages)
	var snapshot []*entity.Message
	if changed {
		s.messages = merged
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(snapshot)
	}
}

// Send validates, inserts an optimistic pending entry, resolves the
// attachment, persists, and confirms in place. Persistence or upload failure
// leaves the entry visibly failed so the sender can retry; it is never
// silently removed.
func (s *session) Send(ctx context.Context, content string, attachment *AttachmentUpload) (*entity.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return nil, errors.BadRequest("Message must contain text or an attachment", nil)
	}
	if utf8.RuneCountInString(content) > s.maxChars {
		return nil, errors.BadRequest("Message is too long", nil)
	}
	if attachment != nil {
		// Type and size gate before any pending entry or network write.
		if err := s.attachments.Validate(attachment.ContentType, attachment.Size); err != nil {
			return nil, err
		}
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	pending := &entity.Message{
		LocalID:        uuid.New().String(),
		ConversationID: s.conversationID,
		SenderHandle:   s.viewerHandle,
		Content:        content,
		CreatedAt:      time.Now(),
		Status:         entity.MessagePending,
	}

	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil, errors.LoadFailed("Conversation is closed", nil)
	}
	s.messages = append(s.messages, pending)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	if attachment != nil {
		url, err := s.attachments.Upload(ctx, *attachment, s.viewerID)
		if err != nil {
			s.markFailed(pending)
			return s.copyOf(pending), errors.SendFailed(err)
		}
		s.mu.Lock()
		pending.AttachmentURL = url
		s.mu.Unlock()
	}

	return s.persist(ctx, pending)
}

// RetrySend re-attempts a failed optimistic entry in place.
func (s *session) RetrySend(ctx context.Context, localID string) (*entity.Message, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	var target *entity.Message
	for _, message := range s.messages {
		if message.LocalID == localID && message.Status == entity.MessageFailed {
			target = message
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return nil, errors.NotFound("Failed message", nil)
	}
	target.Status = entity.MessagePending
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	return s.persist(ctx, target)
}

func (s *session) persist(ctx context.Context, pending *entity.Message) (*entity.Message, error) {
	stored := &entity.Message{
		ConversationID: s.conversationID,
		SenderHandle:   s.viewerHandle,
		Content:        pending.Content,
		AttachmentURL:  pending.AttachmentURL,
	}

	if err := s.convRepo.CreateMessage(ctx, stored); err != nil {
		s.markFailed(pending)
		return s.copyOf(pending), errors.SendFailed(err)
	}

	s.mu.Lock()
	pending.ID = stored.ID
	pending.CreatedAt = stored.CreatedAt
	pending.Status = entity.MessageConfirmed
	entity.SortMessages(s.messages)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)

	// Cosmetic for the list view; logged and swallowed on failure.
	s.directory.UpdateLastMessage(ctx, s.conversationID, pending.Content, stored.CreatedAt)

	return s.copyOf(pending), nil
}

func (s *session) markFailed(pending *entity.Message) {
	s.mu.Lock()
	pending.Status = entity.MessageFailed
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Discard removes a failed optimistic entry from the list and returns it so
// the caller can clean up any attachment it already uploaded.
func (s *session) Discard(localID string) (*entity.Message, error) {
	s.mu.Lock()
	for i, message := range s.messages {
		if message.LocalID == localID && message.Status == entity.MessageFailed {
			removed := *message
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			snapshot := s.snapshotLocked()
			s.mu.Unlock()
			s.notify(snapshot)
			return &removed, nil
		}
	}
	s.mu.Unlock()
	return nil, errors.NotFound("Failed message", nil)
}

// Messages returns a copy of the current merged list.
func (s *session) Messages() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *session) snapshotLocked() []*entity.Message {
	snapshot := make([]*entity.Message, len(s.messages))
	for i, message := range s.messages {
		copied := *message
		snapshot[i] = &copied
	}
	return snapshot
}

func (s *session) copyOf(message *entity.Message) *entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *message
	return &copied
}

func (s *session) notify(snapshot []*entity.Message) {
	if s.onUpdate != nil {
		s.onUpdate(s.conversationID, snapshot)
	}
}

// Close stops the poll loop deterministically and releases local state.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = stateClosed
		s.messages = nil
		s.mu.Unlock()
		close(s.done)
	})
}

// mergeMessages folds the authoritative list over local state: confirmed rows
// replace matching optimistic entries, unseen rows are added, unmatched
// pending/failed entries survive, and the result keeps the ordering
// invariant. Returns the merged list and whether anything visible changed.
func mergeMessages(confirmed, local []*entity.Message) ([]*entity.Message, bool) {
	merged := make([]*entity.Message, 0, len(confirmed)+len(local))
	merged = append(merged, confirmed...)

	confirmedByID := make(map[string]bool, len(confirmed))
	for _, message := range confirmed {
		confirmedByID[message.ID] = true
	}

	// Server rows the local list already holds as confirmed entries are
	// spoken for. Without this, a pending entry repeating the same content
	// would match one of them and vanish mid-send.
	localConfirmed := make(map[string]bool, len(local))
	for _, message := range local {
		if message.Status == entity.MessageConfirmed && message.ID != "" {
			localConfirmed[message.ID] = true
		}
	}
	used := make([]bool, len(confirmed))
	for i, message := range confirmed {
		if localConfirmed[message.ID] {
			used[i] = true
		}
	}

	for _, message := range local {
		if message.Status == entity.MessageConfirmed && message.ID != "" {
			// Keep acknowledged entries the fetch has not caught up with
			// yet; dropping them would show a regression.
			if !confirmedByID[message.ID] {
				merged = append(merged, message)
			}
			continue
		}
		if i, ok := matchConfirmed(confirmed, used, message); ok {
			used[i] = true
			continue
		}
		merged = append(merged, message)
	}

	entity.SortMessages(merged)

	return merged, !sameMessages(local, merged)
}

// matchConfirmed finds an unused confirmed row for an optimistic entry. The
// entry has no server id yet, so the key is sender handle + content +
// attachment within the reconcile window.
func matchConfirmed(confirmed []*entity.Message, used []bool, pending *entity.Message) (int, bool) {
	for i, candidate := range confirmed {
		if used[i] {
			continue
		}
		if candidate.SenderHandle != pending.SenderHandle ||
			candidate.Content != pending.Content ||
			candidate.AttachmentURL != pending.AttachmentURL {
			continue
		}
		delta := candidate.CreatedAt.Sub(pending.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= reconcileWindow {
			return i, true
		}
	}
	return 0, false
}

func sameMessages(a, b []*entity.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].LocalID != b[i].LocalID || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}

package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Conversation stores the raw participant ids, but each side only ever
// perceives the other participant's handle. ParticipantIDs therefore never
// appears in JSON payloads.
type Conversation struct {
	ID             string    `json:"id" firestore:"id"`
	ParticipantIDs []string  `json:"-" firestore:"participantIds"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time `json:"updated_at" firestore:"updatedAt"`
	LastMessage    string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt  time.Time `json:"last_message_at" firestore:"lastMessageAt"`
}

func (c *Conversation) HasParticipant(accountID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// PeerOf returns the other participant's account id from the viewer's side.
func (c *Conversation) PeerOf(viewerID string) (string, bool) {
	if !c.HasParticipant(viewerID) {
		return "", false
	}
	for _, id := range c.ParticipantIDs {
		if id != viewerID {
			return id, true
		}
	}
	return "", false
}

// PairKey is the canonical document id for the unordered participant pair.
// Hashing keeps raw account ids out of the exposed conversation id, and using
// it as the document id makes creation idempotent: concurrent find-or-create
// from both sides collapses onto the same key.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + ":" + b))
	return hex.EncodeToString(sum[:])
}

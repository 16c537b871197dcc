package entity

import "time"

// Account is the identity-provider-owned profile row. The raw ID is never
// serialized across a conversation boundary; only the derived Handle is.
type Account struct {
	ID            string    `json:"id" firestore:"id"`
	Email         string    `json:"email" firestore:"email"`
	EmailVerified bool      `json:"email_verified" firestore:"emailVerified"`
	DisplayName   string    `json:"display_name" firestore:"displayName"`
	AvatarURL     string    `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	Handle        string    `json:"handle,omitempty" firestore:"handle,omitempty"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

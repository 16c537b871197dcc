package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"unimarket/internal/domain/entity"
)

// FirebaseAuthClient adapts the external identity provider. It is the only
// source of truth for the email-verified flag.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) GetAccount(ctx context.Context, uid string) (*entity.Account, error) {
	user, err := f.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	return &entity.Account{
		ID:            user.UID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		DisplayName:   user.DisplayName,
		AvatarURL:     user.PhotoURL,
	}, nil
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}

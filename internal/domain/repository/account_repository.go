package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	// GetByHandle is the privileged reverse lookup; only the identity
	// anonymizer may call it.
	GetByHandle(ctx context.Context, handle string) (*entity.Account, error)
	SetHandle(ctx context.Context, id, handle string) error
}

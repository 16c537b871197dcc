package usecase

import (
	"context"
	"fmt"
	"io"

	"unimarket/internal/domain/service"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AttachmentUpload describes an image the sender picked, before any network
// write has happened.
type AttachmentUpload struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

// AttachmentUseCase gates uploads on type and size, then stores the object
// and yields its durable URL. A message referencing an attachment is only
// persisted after this completes.
type AttachmentUseCase struct {
	storage  service.FileUploadService
	maxBytes int64
}

func NewAttachmentUseCase(storage service.FileUploadService, maxBytes int64) *AttachmentUseCase {
	return &AttachmentUseCase{
		storage:  storage,
		maxBytes: maxBytes,
	}
}

// Validate rejects unsupported or oversized uploads before any network write.
func (uc *AttachmentUseCase) Validate(contentType string, size int64) error {
	if !allowedImageTypes[contentType] {
		return errors.UnsupportedMediaType(fmt.Sprintf("Attachment type %q is not supported", contentType))
	}
	if size > uc.maxBytes {
		return errors.PayloadTooLarge(fmt.Sprintf("Attachment exceeds the %d byte limit", uc.maxBytes))
	}
	return nil
}

// Upload validates and stores the attachment under the owner's folder,
// returning the public URL.
func (uc *AttachmentUseCase) Upload(ctx context.Context, upload AttachmentUpload, ownerAccountID string) (string, error) {
	if err := uc.Validate(upload.ContentType, upload.Size); err != nil {
		return "", err
	}

	// LimitReader backstops a lying Content-Length.
	reader := io.LimitReader(upload.Reader, uc.maxBytes)

	url, err := uc.storage.UploadFile(ctx, reader, upload.ContentType, "chat-images/"+ownerAccountID, true)
	if err != nil {
		return "", errors.Internal("Failed to upload attachment", err)
	}

	return url, nil
}

// Remove deletes a stored attachment object. Used when a failed send is
// discarded after its upload already succeeded; best-effort, the orphaned
// blob is not worth failing the discard over.
func (uc *AttachmentUseCase) Remove(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := uc.storage.DeleteFile(ctx, url); err != nil {
		logger.Warn("Failed to delete orphaned attachment %s: %v", url, err)
	}
}

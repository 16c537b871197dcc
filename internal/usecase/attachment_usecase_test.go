package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"unimarket/pkg/errors"
)

const testMaxAttachmentBytes = 5 * 1024 * 1024

func TestValidateRejectsOversizedBeforeUpload(t *testing.T) {
	storage := &fakeStorage{}
	attachments := NewAttachmentUseCase(storage, testMaxAttachmentBytes)

	err := attachments.Validate("image/png", 6*1024*1024)
	assert.True(t, errors.Is(err, "PAYLOAD_TOO_LARGE"))

	_, err = attachments.Upload(context.Background(), AttachmentUpload{
		Reader:      strings.NewReader("x"),
		ContentType: "image/png",
		Size:        6 * 1024 * 1024,
	}, "alice-uid")
	assert.True(t, errors.Is(err, "PAYLOAD_TOO_LARGE"))

	// Rejection happens before any network write.
	assert.Equal(t, 0, storage.uploadCount())
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	storage := &fakeStorage{}
	attachments := NewAttachmentUseCase(storage, testMaxAttachmentBytes)

	for _, contentType := range []string{"application/pdf", "video/mp4", "text/html", ""} {
		err := attachments.Validate(contentType, 1024)
		assert.True(t, errors.Is(err, "UNSUPPORTED_MEDIA_TYPE"), "type %q should be rejected", contentType)
	}
	assert.Equal(t, 0, storage.uploadCount())
}

func TestValidateAcceptsImageTypes(t *testing.T) {
	attachments := NewAttachmentUseCase(&fakeStorage{}, testMaxAttachmentBytes)

	for _, contentType := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		assert.NoError(t, attachments.Validate(contentType, 1024), "type %q should be accepted", contentType)
	}
}

func TestUploadStoresUnderOwnerFolder(t *testing.T) {
	storage := &fakeStorage{}
	attachments := NewAttachmentUseCase(storage, testMaxAttachmentBytes)

	url, err := attachments.Upload(context.Background(), AttachmentUpload{
		Reader:      strings.NewReader("fake image bytes"),
		ContentType: "image/webp",
		Size:        16,
	}, "alice-uid")

	assert.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Equal(t, 1, storage.uploadCount())
	assert.Equal(t, "chat-images/alice-uid", storage.lastFolder)
}

func TestUploadStorageFailure(t *testing.T) {
	storage := &fakeStorage{failUpload: true}
	attachments := NewAttachmentUseCase(storage, testMaxAttachmentBytes)

	_, err := attachments.Upload(context.Background(), AttachmentUpload{
		Reader:      strings.NewReader("fake image bytes"),
		ContentType: "image/png",
		Size:        16,
	}, "alice-uid")

	assert.True(t, errors.Is(err, "INTERNAL_ERROR"))
}

package handler

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startConversationRequest struct {
	PeerHandle string `json:"peer_handle" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// ListConversations returns the viewer's conversations, newest last message
// first, each with the peer's handle and profile.
func (h *ChatHandler) ListConversations(c echo.Context) error {
	uid := c.Get("uid").(string)

	conversations, err := h.chatUseCase.ListConversations(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

// StartConversation finds or creates the conversation with the peer behind
// the given handle.
func (h *ChatHandler) StartConversation(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conversationID, err := h.chatUseCase.StartConversation(c.Request().Context(), uid, req.PeerHandle)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"conversation_id": conversationID})
}

// OpenConversation starts the sync session and returns the loaded history.
func (h *ChatHandler) OpenConversation(c echo.Context) error {
	uid := c.Get("uid").(string)
	conversationID := c.Param("id")

	messages, err := h.chatUseCase.OpenConversation(c.Request().Context(), uid, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// CloseConversation stops the sync session for this viewer.
func (h *ChatHandler) CloseConversation(c echo.Context) error {
	uid := c.Get("uid").(string)
	conversationID := c.Param("id")

	h.chatUseCase.CloseConversation(uid, conversationID)

	return response.Success(c, map[string]string{"status": "closed"})
}

// CurrentMessages returns the session's merged ordered list, including
// pending and failed entries.
func (h *ChatHandler) CurrentMessages(c echo.Context) error {
	uid := c.Get("uid").(string)
	conversationID := c.Param("id")

	messages, err := h.chatUseCase.CurrentMessages(uid, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// SendMessage accepts JSON for text-only messages or multipart/form-data
// with a "content" field and an optional "image" part.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid := c.Get("uid").(string)
	conversationID := c.Param("id")

	var content string
	var attachment *usecase.AttachmentUpload

	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return response.Error(c, errors.BadRequest("Could not read attachment", err))
		}
		defer file.Close()

		attachment = &usecase.AttachmentUpload{
			Reader:      file,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
		}
		content = c.FormValue("content")
	} else {
		var req sendMessageRequest
		if err := c.Bind(&req); err != nil {
			return response.Error(c, errors.BadRequest("Invalid request body", err))
		}
		content = req.Content
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), uid, conversationID, content, attachment)
	if err != nil {
		// The failed optimistic entry stays visible in CurrentMessages so
		// the caller can offer retry.
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// RetrySend re-attempts a failed optimistic entry by its local id.
func (h *ChatHandler) RetrySend(c echo.Context) error {
	uid := c.Get("uid").(string)
	conversationID := c.Param("id")
	localID := c.Param("localId")

	message, err := h.chatUseCase.RetrySend(c.Request().Context(), uid, conversationID, localID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

// DiscardFailed removes a failed optimistic entry the sender gave up on,
// cleaning up its uploaded attachment if there is one.
func (h *ChatHandler) DiscardFailed(c echo.Context) error {
	uid := c.Get("uid").(string)
	conversationID := c.Param("id")
	localID := c.Param("localId")

	if err := h.chatUseCase.DiscardFailed(c.Request().Context(), uid, conversationID, localID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "discarded"})
}

// OwnHandle returns the viewer's own pseudonymous handle.
func (h *ChatHandler) OwnHandle(c echo.Context) error {
	uid := c.Get("uid").(string)

	handle, err := h.chatUseCase.CurrentOwnHandle(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"handle": handle})
}

package handler

import (
	"encoding/json"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	fb "unimarket/internal/infrastructure/firebase"
	ws "unimarket/internal/infrastructure/websocket"
	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// WebSocketHandler is the push side of the produced interface: the server
// pushes message-list updates for the account's open sessions, and inbound
// "refresh" frames early-trigger reconciliation. The poll loop does not
// depend on any of this.
type WebSocketHandler struct {
	wsManager   *ws.Manager
	authClient  *fb.FirebaseAuthClient
	chatUseCase *usecase.ChatUseCase
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, authClient *fb.FirebaseAuthClient, chatUseCase *usecase.ChatUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		authClient:  authClient,
		chatUseCase: chatUseCase,
	}
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	// Browsers cannot set headers on WebSocket dials, so the token rides a
	// query parameter.
	token := c.QueryParam("token")
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	uid, err := h.authClient.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		AccountID: uid,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}

	h.wsManager.Register <- client

	go client.ReadPump(h.wsManager, h.handleFrame)
	go client.WritePump()

	return nil
}

func (h *WebSocketHandler) handleFrame(accountID string, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		logger.Debug("Ignoring malformed frame from %s: %v", accountID, err)
		return
	}

	switch frame.Type {
	case "refresh":
		if frame.ConversationID != "" {
			h.chatUseCase.Refresh(accountID, frame.ConversationID)
		}
	default:
		logger.Debug("Ignoring unknown frame type %q from %s", frame.Type, accountID)
	}
}

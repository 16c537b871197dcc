package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"unimarket/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one account's WebSocket connection.
type Client struct {
	AccountID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Manager keeps the registry of connected accounts so the sync engine can
// push message-list updates to whoever has a conversation open.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if old, ok := m.clients[client.AccountID]; ok {
					close(old.Send)
				}
				m.clients[client.AccountID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s", client.AccountID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.AccountID]; ok && current == client {
					delete(m.clients, client.AccountID)
					close(client.Send)
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.AccountID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToAccount pushes a payload to one account's connection, dropping it if
// the client cannot keep up.
func (m *Manager) SendToAccount(accountID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[accountID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("Dropping push for slow client %s", accountID)
	}
}

// ReadPump reads frames from the connection, handing each to onMessage, and
// unregisters the client when the connection drops.
func (c *Client) ReadPump(m *Manager, onMessage func(accountID string, payload []byte)) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.AccountID, err)
			}
			break
		}
		if onMessage != nil {
			onMessage(c.AccountID, message)
		}
	}
}

// WritePump forwards queued payloads to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

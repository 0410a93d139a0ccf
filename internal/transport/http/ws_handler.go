package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message types spoken on the push channel besides the domain event kinds.
const (
	msgConnected   = "connected"
	msgJoinGame    = "join-game"
	msgJoinedGame  = "joined-game"
	msgLeaveGame   = "leave-game"
	msgLeftGame    = "left-game"
	msgError       = "error"
	sendBufferSize = 16
)

// WSHandler serves the push channel. Clients watch games and re-poll the
// REST read models whenever an event arrives; no game state travels here.
type WSHandler struct {
	games    *app.GameService
	hub      *notify.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(games *app.GameService, hub *notify.Hub, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		games:  games,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type gamePayload struct {
	GameID int64 `json:"gameId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wsClient is one connection and the games it watches.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan outboundMessage
	done   chan struct{}
	closed chan struct{}
	subs   map[int64]func()
	wg     sync.WaitGroup
}

// ServeWS upgrades GET /ws. An optional gameId query parameter subscribes
// right away; more games can be watched with join-game messages.
func (h *WSHandler) ServeWS(c *gin.Context) {
	var initial int64
	if raw := c.Query("gameId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(c, h.logger, domain.Validation("invalid gameId"))
			return
		}
		if _, err := h.games.GetGame(c.Request.Context(), id); err != nil {
			writeError(c, h.logger, err)
			return
		}
		initial = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := &wsClient{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan outboundMessage, sendBufferSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		subs:   make(map[int64]func()),
	}
	logger := h.logger.With(zap.String("client_id", client.id))

	go h.writePump(client, logger)

	if initial != 0 {
		h.watch(client, initial)
	}
	client.push(outboundMessage{Type: msgConnected, Payload: gin.H{"clientId": client.id, "gameIds": client.watching()}})

	h.readPump(c, client, logger)

	close(client.done)
	for _, cancel := range client.subs {
		cancel()
	}
	client.wg.Wait()
	close(client.send)
	<-client.closed
}

func (h *WSHandler) readPump(c *gin.Context, client *wsClient, logger *zap.Logger) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read ended", zap.Error(err))
			}
			return
		}

		var payload gamePayload
		switch inbound.Type {
		case msgJoinGame, msgLeaveGame:
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.GameID <= 0 {
				client.push(errorMessage("invalid game payload"))
				continue
			}
		default:
			client.push(errorMessage("unsupported message type"))
			continue
		}

		if inbound.Type == msgLeaveGame {
			if cancel, ok := client.subs[payload.GameID]; ok {
				cancel()
				delete(client.subs, payload.GameID)
			}
			client.push(outboundMessage{Type: msgLeftGame, Payload: payload})
			continue
		}

		if _, err := h.games.GetGame(c.Request.Context(), payload.GameID); err != nil {
			client.push(errorMessage(err.Error()))
			continue
		}
		h.watch(client, payload.GameID)
		client.push(outboundMessage{Type: msgJoinedGame, Payload: payload})
	}
}

// watch subscribes the client to gameID once and forwards its events.
func (h *WSHandler) watch(client *wsClient, gameID int64) {
	if _, ok := client.subs[gameID]; ok {
		return
	}
	events, cancel := h.hub.Subscribe(gameID)
	client.subs[gameID] = cancel
	client.wg.Add(1)
	go func() {
		defer client.wg.Done()
		for event := range events {
			if !client.push(outboundMessage{Type: string(event.Kind), Payload: event}) {
				return
			}
		}
	}()
}

func (h *WSHandler) writePump(client *wsClient, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(client.closed)
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", zap.Error(err))
				_ = client.conn.Close()
				drain(client.send)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = client.conn.Close()
				drain(client.send)
				return
			}
		}
	}
}

// push queues msg unless the connection is shutting down.
func (c *wsClient) push(msg outboundMessage) bool {
	select {
	case <-c.done:
		return false
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	case <-c.closed:
		return false
	}
}

func (c *wsClient) watching() []int64 {
	ids := make([]int64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	return ids
}

func drain(ch <-chan outboundMessage) {
	go func() {
		for range ch {
		}
	}()
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: msgError, Payload: errorPayload{Message: msg}}
}

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg
}

func TestWebSocketPushesGameEvents(t *testing.T) {
	env := newTestEnv(t)
	_, _, game := env.seedGame(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dial(t, server, pathf("?gameId=%d", game.ID))
	defer conn.Close()

	hello := readNext(t, conn, msgConnected)
	if hello.Payload["clientId"] == "" {
		t.Fatalf("expected client id, got %v", hello.Payload)
	}

	if _, err := env.games.Join(context.Background(), *game.PIN, "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	joined := readNext(t, conn, "player-joined")
	event, _ := joined.Payload["payload"].(map[string]any)
	if event == nil || event["gameId"] != float64(game.ID) {
		t.Fatalf("unexpected player-joined payload %v", joined.Payload)
	}

	if _, err := env.games.Start(context.Background(), game.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	readNext(t, conn, "game-state-update")
}

func TestWebSocketJoinGameMessage(t *testing.T) {
	env := newTestEnv(t)
	_, _, game := env.seedGame(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()
	readNext(t, conn, msgConnected)

	if err := conn.WriteJSON(map[string]any{"type": "join-game", "payload": map[string]any{"gameId": 999}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(t, conn, msgError)

	if err := conn.WriteJSON(map[string]any{"type": "join-game", "payload": map[string]any{"gameId": game.ID}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(t, conn, msgJoinedGame)
	if n := env.hub.Subscribers(game.ID); n != 1 {
		t.Fatalf("expected one subscriber, got %d", n)
	}

	if _, err := env.games.Start(context.Background(), game.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	readNext(t, conn, "game-state-update")

	if err := conn.WriteJSON(map[string]any{"type": "leave-game", "payload": map[string]any{"gameId": game.ID}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(t, conn, msgLeftGame)
	if n := env.hub.Subscribers(game.ID); n != 0 {
		t.Fatalf("expected no subscribers after leave, got %d", n)
	}

	if err := conn.WriteJSON(map[string]any{"type": "shout"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(t, conn, msgError)
}

func TestWebSocketRejectsUnknownGame(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?gameId=42"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func TestWebSocketUnsubscribesOnClose(t *testing.T) {
	env := newTestEnv(t)
	_, _, game := env.seedGame(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dial(t, server, pathf("?gameId=%d", game.ID))
	readNext(t, conn, msgConnected)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers(game.ID) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription leaked after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

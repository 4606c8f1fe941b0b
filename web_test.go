package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/impostor/assign"
	"github.com/Seednode/impostor/catalog"
	"github.com/Seednode/impostor/hub"
	"github.com/Seednode/impostor/protocol"
	"github.com/Seednode/impostor/room"
)

func testConfig() *Config {
	return &Config{
		bind:        "127.0.0.1",
		maxPlayers:  20,
		origins:     []string{"*"},
		port:        8080,
		roomTimeout: time.Hour,
		trustHost:   true,
	}
}

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	h := hub.New(nil)
	svc := room.New(h, room.Options{
		Catalog:     cat,
		Engine:      assign.NewSeeded(1),
		TrustHost:   cfg.trustHost,
		MaxPlayers:  cfg.maxPlayers,
		RoomTimeout: cfg.roomTimeout,
	})

	errs := make(chan error, 64)
	srv := httptest.NewServer(newRouter(cfg, cat, h, svc, errs))
	t.Cleanup(srv.Close)

	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, evt string, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": evt, "payload": payload}))
}

func readEvent(t *testing.T, conn *websocket.Conn, want string) protocol.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg protocol.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, want, msg.Type, "payload: %s", msg.Payload)

	return msg
}

func decodePayload[T any](t *testing.T, msg protocol.Message) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(msg.Payload, &out))
	return out
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestRoomLifecycleOverWebsocket(t *testing.T) {
	srv := newTestServer(t, testConfig())

	host := dial(t, srv)
	sendEvent(t, host, protocol.EventCreateRoom, map[string]any{"playerName": "Ana", "gameType": "impostor"})

	created := decodePayload[protocol.RoomCreated](t, readEvent(t, host, protocol.EventRoomCreated))
	require.True(t, created.IsHost)
	readEvent(t, host, protocol.EventUpdateRoom)

	guest := dial(t, srv)
	sendEvent(t, guest, protocol.EventJoinRoom, map[string]any{"roomCode": strings.ToLower(created.RoomCode), "playerName": "Beto"})

	snap := decodePayload[protocol.RoomSnapshot](t, readEvent(t, host, protocol.EventUpdateRoom))
	require.Len(t, snap.Players, 2)
	require.Equal(t, snap, decodePayload[protocol.RoomSnapshot](t, readEvent(t, guest, protocol.EventUpdateRoom)))

	intruder := dial(t, srv)
	sendEvent(t, intruder, protocol.EventJoinRoom, map[string]any{"roomCode": created.RoomCode, "playerName": "Beto"})
	require.Equal(t, "Ya existe un jugador con ese nombre", decodePayload[string](t, readEvent(t, intruder, protocol.EventError)))

	hostID, guestID := snap.Players[0].ID, snap.Players[1].ID
	sendEvent(t, host, protocol.EventStartGame, map[string]any{
		"roomCode": created.RoomCode,
		"gameData": []protocol.Assignment{
			{ID: hostID, Name: "Ana", Type: protocol.RoleCivilian, Word: "Playa"},
			{ID: guestID, Name: "Beto", Type: protocol.RoleImpostor},
		},
	})

	mine := decodePayload[protocol.Assignment](t, readEvent(t, guest, protocol.EventGameStarted))
	require.Equal(t, guestID, mine.ID)
	require.Equal(t, protocol.RoleImpostor, mine.Type)
	require.Empty(t, mine.Word)
	readEvent(t, guest, protocol.EventRoomGameStart)

	require.Equal(t, "Playa", decodePayload[protocol.Assignment](t, readEvent(t, host, protocol.EventGameStarted)).Word)
	readEvent(t, host, protocol.EventRoomGameStart)

	resp, body := get(t, srv, "/rooms/"+created.RoomCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"code":"`+created.RoomCode+`","gameType":"impostor","phase":"playing","players":["Ana","Beto"]}`, string(body))

	require.NoError(t, host.Close())

	after := decodePayload[protocol.RoomSnapshot](t, readEvent(t, guest, protocol.EventUpdateRoom))
	require.Equal(t, guestID, after.HostID)
	require.Len(t, after.Players, 1)
	require.True(t, after.Players[0].IsHost)

	sendEvent(t, guest, protocol.EventRestartGame, map[string]any{"roomCode": created.RoomCode})
	require.Equal(t, protocol.PhaseLobby, decodePayload[protocol.RoomSnapshot](t, readEvent(t, guest, protocol.EventUpdateRoom)).GameState.Phase)
	readEvent(t, guest, protocol.EventGameReset)
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	srv := newTestServer(t, testConfig())
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	readEvent(t, conn, protocol.EventError)

	sendEvent(t, conn, protocol.EventJoinRoom, map[string]any{"roomCode": "ZZZZZZ", "playerName": "Ana"})
	require.Equal(t, "Sala no encontrada", decodePayload[string](t, readEvent(t, conn, protocol.EventError)))
}

func TestRoomEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, _ := get(t, srv, "/rooms/NOPE12")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv, "/rooms/NOPE12/qr")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	host := dial(t, srv)
	sendEvent(t, host, protocol.EventCreateRoom, map[string]any{"playerName": "Ana"})
	code := decodePayload[protocol.RoomCreated](t, readEvent(t, host, protocol.EventRoomCreated)).RoomCode

	resp, body := get(t, srv, "/rooms/"+code+"/qr")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func TestCategoriesEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, body := get(t, srv, "/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []categorySummary
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.NotEmpty(t, summaries)

	cat, err := catalog.Default()
	require.NoError(t, err)
	require.Len(t, summaries, cat.Len())
	require.Equal(t, cat.IDs()[0], summaries[0].ID)
}

func TestStaticEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, body := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Ok\n", string(body))

	resp, body = get(t, srv, "/version")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "impostor v"+releaseVersion+"\n", string(body))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, _ = get(t, srv, "/robots.txt")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.origins = []string{"https://party.example"}
	srv := newTestServer(t, cfg)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://party.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "https://party.example", resp.Header.Get("Access-Control-Allow-Origin"))

	header := http.Header{"Origin": {"https://evil.example"}}
	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://party.example/", "http://localhost:5173"}

	require.True(t, originAllowed(allowed, ""))
	require.True(t, originAllowed(allowed, "https://PARTY.example"))
	require.True(t, originAllowed(allowed, "http://localhost:5173"))
	require.False(t, originAllowed(allowed, "http://localhost:3000"))
	require.False(t, originAllowed(allowed, "::::"))
	require.True(t, originAllowed([]string{"*"}, "https://anything.example"))
}

func TestHomePage(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, body := get(t, srv, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "impostor v"+releaseVersion)
}

func TestProfileHandlers(t *testing.T) {
	resp, _ := get(t, newTestServer(t, testConfig()), "/pprof/heap")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	cfg := testConfig()
	cfg.profile = true

	resp, _ = get(t, newTestServer(t, cfg), "/pprof/heap")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/party"
	srv := newTestServer(t, cfg)

	resp, _ := get(t, srv, "/party/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, srv, "/healthz")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHumanReadableSize(t *testing.T) {
	require.Equal(t, "999 B", humanReadableSize(999))
	require.Equal(t, "1.5 kB", humanReadableSize(1500))
	require.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}

func TestJoinURL(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/party"

	req := httptest.NewRequest(http.MethodGet, "http://games.example/party/rooms/ABC123/qr", nil)
	require.Equal(t, "http://games.example/party/?room=ABC123", joinURL(cfg, req, "ABC123"))

	req.Header.Set("X-Forwarded-Proto", "https")
	require.Equal(t, "https://games.example/party/?room=ABC123", joinURL(cfg, req, "ABC123"))
}

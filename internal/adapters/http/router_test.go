package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan357015/raja-mantri-game/internal/app"
	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/store"
)

type noopGateway struct{}

func (noopGateway) NotifyRoom(string, any)        {}
func (noopGateway) NotifyOne(core.SessionID, any) {}
func (noopGateway) NotifyGlobal(any)              {}

func newTestRouter(t *testing.T) (*gin.Engine, *app.Lobby) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.NewMemoryStore(store.NewCodeGenerator())
	lobby := app.NewLobby(s, app.NewRegistry(), noopGateway{}, app.Options{})
	h := NewHandler(lobby, s, "memory")

	r := gin.New()
	api := r.Group("/api")
	api.POST("/create-room", h.createRoom)
	api.POST("/join-room", h.joinRoom)
	api.GET("/room/:roomCode", h.getRoom)
	api.POST("/start-game", h.startGame)
	api.GET("/health", h.health)
	return r, lobby
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type roomEnvelope struct {
	Message string `json:"message"`
	Room    struct {
		RoomCode string `json:"roomCode"`
		HostName string `json:"hostName"`
		Round    int    `json:"round"`
		Status   string `json:"status"`
		Players  []struct {
			UserID string `json:"userId"`
			Name   string `json:"name"`
			IsHost bool   `json:"isHost"`
		} `json:"players"`
	} `json:"room"`
}

func TestCreateRoomEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/create-room", gin.H{"name": "Alice", "round": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp roomEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^[A-Z0-9]{6}$`, resp.Room.RoomCode)
	assert.Equal(t, "Alice", resp.Room.HostName)
	assert.Equal(t, "waiting", resp.Room.Status)
	require.Len(t, resp.Room.Players, 1)
	assert.True(t, resp.Room.Players[0].IsHost)
	// The host id never leaks into the payload.
	assert.NotContains(t, w.Body.String(), "hostId")
}

func TestCreateRoomEndpointRejects(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/create-room", gin.H{"name": "Alice", "round": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/create-room", gin.H{"name": "", "round": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/create-room", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRoomEndpoint(t *testing.T) {
	r, lobby := newTestRouter(t)
	room, err := lobby.CreateRoom(context.Background(), "Alice", 3)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/join-room", gin.H{"roomCode": room.Code, "name": "Bob"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp roomEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Room.Players, 2)

	// Unknown room.
	w = doJSON(t, r, http.MethodPost, "/api/join-room", gin.H{"roomCode": "NOSUCH", "name": "Carol"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Duplicate name, case-insensitive.
	w = doJSON(t, r, http.MethodPost, "/api/join-room", gin.H{"roomCode": room.Code, "name": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRoomEndpointFull(t *testing.T) {
	r, lobby := newTestRouter(t)
	room, err := lobby.CreateRoom(context.Background(), "Alice", 3)
	require.NoError(t, err)
	for _, name := range []string{"Bob", "Carol", "Dan"} {
		_, err = lobby.JoinRoom(context.Background(), room.Code, name)
		require.NoError(t, err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/join-room", gin.H{"roomCode": room.Code, "name": "Eve"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoomEndpoint(t *testing.T) {
	r, lobby := newTestRouter(t)
	room, err := lobby.CreateRoom(context.Background(), "Alice", 3)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/api/room/"+room.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp roomEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, room.Code, resp.Room.RoomCode)

	w = doJSON(t, r, http.MethodGet, "/api/room/NOSUCH", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartGameEndpoint(t *testing.T) {
	r, lobby := newTestRouter(t)
	room, err := lobby.CreateRoom(context.Background(), "Alice", 3)
	require.NoError(t, err)
	joined, err := lobby.JoinRoom(context.Background(), room.Code, "Bob")
	require.NoError(t, err)
	bobID := joined.Players[1].UserID

	// Only the host may start.
	w := doJSON(t, r, http.MethodPost, "/api/start-game", gin.H{"roomCode": room.Code, "userId": string(bobID)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/start-game", gin.H{"roomCode": room.Code, "userId": string(room.HostID)})
	require.Equal(t, http.StatusOK, w.Code)
	var resp roomEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "playing", resp.Room.Status)

	// A started room cannot be started again.
	w = doJSON(t, r, http.MethodPost, "/api/start-game", gin.H{"roomCode": room.Code, "userId": string(room.HostID)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartGameEndpointNeedsPlayers(t *testing.T) {
	r, lobby := newTestRouter(t)
	room, err := lobby.CreateRoom(context.Background(), "Alice", 3)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/start-game", gin.H{"roomCode": room.Code, "userId": string(room.HostID)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r, lobby := newTestRouter(t)
	_, err := lobby.CreateRoom(context.Background(), "Alice", 3)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Store  string `json:"store"`
		Rooms  int    `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "memory", resp.Store)
	assert.Equal(t, 1, resp.Rooms)
}

var _ core.Gateway = noopGateway{}

// Package http is the request/response adapter: it binds JSON bodies,
// calls the lobby, and maps domain errors onto status codes.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Rohan357015/raja-mantri-game/internal/app"
	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

type Handler struct {
	Lobby *app.Lobby
	Store core.RoomStore
	// StoreKind names the selected backing for the health endpoint.
	StoreKind string
}

func NewHandler(lobby *app.Lobby, store core.RoomStore, storeKind string) *Handler {
	return &Handler{Lobby: lobby, Store: store, StoreKind: storeKind}
}

type createRoomRequest struct {
	Name  string `json:"name"`
	Round int    `json:"round"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type startGameRequest struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
}

func (h *Handler) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name and round are required"})
		return
	}

	room, err := h.Lobby.CreateRoom(c.Request.Context(), req.Name, req.Round)
	if err != nil {
		h.fail(c, "create-room", "", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room":    room,
	})
}

func (h *Handler) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Room code and name are required"})
		return
	}

	room, err := h.Lobby.JoinRoom(c.Request.Context(), req.RoomCode, req.Name)
	if err != nil {
		h.fail(c, "join-room", req.RoomCode, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully joined room",
		"room":    room,
	})
}

func (h *Handler) getRoom(c *gin.Context) {
	code := c.Param("roomCode")
	room, err := h.Lobby.GetRoom(c.Request.Context(), code)
	if err != nil {
		h.fail(c, "get-room", code, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *Handler) startGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Room code and user id are required"})
		return
	}

	room, err := h.Lobby.StartGame(c.Request.Context(), req.RoomCode, domain.UserID(req.UserID))
	if err != nil {
		h.fail(c, "start-game", req.RoomCode, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Game started successfully",
		"room":    room,
	})
}

func (h *Handler) health(c *gin.Context) {
	count, err := h.Store.RoomCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": h.StoreKind})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": h.StoreKind, "rooms": count})
}

func (h *Handler) fail(c *gin.Context, op, code string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("op", op).Str("room", code).Msg("request failed")
	} else {
		log.Info().Err(err).Str("module", "adapters.http").Str("op", op).Str("room", code).Msg("request rejected")
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNameEmpty),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrInvalidRound),
		errors.Is(err, domain.ErrCodeEmpty),
		errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrRoomNotWaiting),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrNotEnoughPlayers):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

func (ctl *Controller) handleCreateRoom(ctx context.Context, sid core.SessionID, c *WsConn, data []byte) {
	var p struct {
		Type  string `json:"type"`
		Name  string `json:"name"`
		Round int    `json:"round"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-room payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	room, err := ctl.Lobby.CreateRoom(ctx, p.Name, p.Round)
	if err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	ctl.Reg.Bind(sid, room.Code, p.Name, true)

	ctl.sendJSON(c, struct {
		Type    string       `json:"type"`
		Message string       `json:"message"`
		Room    *domain.Room `json:"room"`
	}{"room-created", "Room created successfully", room})
}

func (ctl *Controller) handleJoinRoom(ctx context.Context, sid core.SessionID, c *WsConn, data []byte) {
	var p struct {
		Type       string `json:"type"`
		RoomCode   string `json:"roomCode"`
		PlayerName string `json:"playerName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-room payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	// Bind before the join commits so the room-updated broadcast also
	// reaches the joiner; roll back on failure.
	code := domain.NormalizeCode(p.RoomCode)
	ctl.Reg.Bind(sid, code, p.PlayerName, false)
	room, err := ctl.Lobby.JoinRoom(ctx, code, p.PlayerName)
	if err != nil {
		ctl.Reg.Unbind(sid)
		ctl.sendError(c, err.Error())
		return
	}

	ctl.sendJSON(c, struct {
		Type       string `json:"type"`
		Message    string `json:"message"`
		RoomCode   string `json:"roomCode"`
		PlayerName string `json:"playerName"`
	}{"joined-room", "Successfully joined room", room.Code, p.PlayerName})
}

func (ctl *Controller) handleGetRoom(ctx context.Context, sid core.SessionID, c *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		RoomCode string `json:"roomCode"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad get-room payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	room, err := ctl.Lobby.GetRoom(ctx, p.RoomCode)
	if err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	ctl.sendJSON(c, struct {
		Type string       `json:"type"`
		Room *domain.Room `json:"room"`
	}{"room-details", room})
}

func (ctl *Controller) handleStartGame(ctx context.Context, sid core.SessionID, c *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		RoomCode string `json:"roomCode"`
		UserID   string `json:"userId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad start-game payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	// game-started is broadcast by the lobby; the sender is a bound
	// member, so no direct ack is needed.
	if _, err := ctl.Lobby.StartGame(ctx, p.RoomCode, domain.UserID(p.UserID)); err != nil {
		ctl.sendError(c, err.Error())
	}
}

func (ctl *Controller) handleLeaveRoom(ctx context.Context, sid core.SessionID, c *WsConn, data []byte) {
	var p struct {
		Type       string `json:"type"`
		RoomCode   string `json:"roomCode"`
		PlayerName string `json:"playerName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave-room payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	if err := ctl.Lobby.LeaveRoom(ctx, p.RoomCode, p.PlayerName); err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	ctl.Reg.Unbind(sid)
	ctl.sendJSON(c, struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{"left-room", "Successfully left room"})
}

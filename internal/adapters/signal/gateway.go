package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Rohan357015/raja-mantri-game/internal/app"
	"github.com/Rohan357015/raja-mantri-game/internal/core"
)

// WSGateway implements core.Gateway over the connection registry.
// Fire-and-forget: the payload is marshaled once and TrySend drops on
// backpressure rather than blocking the lobby.
type WSGateway struct {
	Reg *app.Registry
}

func NewGateway(reg *app.Registry) *WSGateway {
	return &WSGateway{Reg: reg}
}

var _ core.Gateway = (*WSGateway)(nil)

func (g *WSGateway) NotifyRoom(code string, v any) {
	frame, ok := marshalFrame(v)
	if !ok {
		return
	}
	for _, m := range g.Reg.MembersOf(code) {
		g.deliver(m, frame)
	}
}

func (g *WSGateway) NotifyOne(sid core.SessionID, v any) {
	conn, ok := g.Reg.Conn(sid)
	if !ok {
		return
	}
	frame, ok := marshalFrame(v)
	if !ok {
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal.gateway").Str("sid", string(sid)).Msg("notify dropped")
	}
}

func (g *WSGateway) NotifyGlobal(v any) {
	frame, ok := marshalFrame(v)
	if !ok {
		return
	}
	for _, m := range g.Reg.All() {
		g.deliver(m, frame)
	}
}

func (g *WSGateway) deliver(m app.MemberSnap, frame core.Frame) {
	if err := m.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal.gateway").Str("sid", string(m.SID)).Msg("notify dropped")
	}
}

func marshalFrame(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.gateway").Msg("marshal event")
		return nil, false
	}
	return b, true
}

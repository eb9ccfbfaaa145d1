package websocket

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	boardsvc "go-board/internal/board"
	"go-board/internal/message"
	"go-board/pkg/board"
)

// Relay is the per-frame pipeline: decode, authorize, stamp, publish, and for
// chat, hand off a durable copy. Authorization and decode failures drop the
// frame without any reply; a bad frame from one client never reaches the
// others, and non-members learn nothing about the board.
type Relay struct {
	hub      *Hub
	gate     *boardsvc.MembershipGate
	messages *message.MessageService
	log      zerolog.Logger
}

func NewRelay(hub *Hub, gate *boardsvc.MembershipGate, messages *message.MessageService, log zerolog.Logger) *Relay {
	return &Relay{
		hub:      hub,
		gate:     gate,
		messages: messages,
		log:      log,
	}
}

func (r *Relay) Handle(s *Session, raw []byte) {
	frame, err := DecodeFrame(raw)
	if err != nil {
		r.log.Debug().Err(err).Uint("user_id", s.UserID()).Msg("dropping malformed frame")
		return
	}

	// Leaving a channel needs no approval.
	if frame.Kind == board.FrameKindUnsubscribe {
		r.hub.Unsubscribe(frame.BoardID(), s)
		s.untrackBoard(frame.BoardID())
		return
	}

	// Membership is re-checked on every frame; a revoked member's next frame
	// is rejected even though the socket stays up.
	if err := r.gate.Authorize(s.Identity(), frame.BoardID(), boardsvc.RoleMember); err != nil {
		if !errors.Is(err, boardsvc.ErrDenied) {
			r.log.Error().Err(err).Msg("membership store query failed")
		}
		r.log.Debug().Uint("user_id", s.UserID()).Uint("board_id", frame.BoardID()).
			Msg("dropping unauthorized frame")
		return
	}

	switch frame.Kind {
	case board.FrameKindSubscribe:
		r.hub.Subscribe(frame.BoardID(), s)
		s.trackBoard(frame.BoardID())
	case board.FrameKindAction:
		r.relayAction(s, frame.Action)
	case board.FrameKindChat:
		r.relayChat(s, frame.Chat)
	}
}

// relayAction fans an action out to every subscriber of the board, the sender
// included: instanceId round-trips unchanged, so the originating client
// reconciles its own optimistic update instead of double-applying it.
func (r *Relay) relayAction(s *Session, env *board.ActionEnvelope) {
	// Sender comes from the session, never from the client payload.
	env.Sender = &board.Sender{
		Email: s.Identity().Email,
		Name:  s.Identity().Name,
	}

	data, err := EncodeAction(env)
	if err != nil {
		r.log.Error().Err(err).Msg("encoding action broadcast")
		return
	}

	r.hub.Publish(env.BoardID, data, nil)
}

func (r *Relay) relayChat(s *Session, env *board.ChatEnvelope) {
	env.SenderEmail = s.Identity().Email
	env.SenderName = s.Identity().Name
	env.Timestamp = time.Now()
	env.ID = 0

	data, err := EncodeChat(env)
	if err != nil {
		r.log.Error().Err(err).Msg("encoding chat broadcast")
		return
	}

	r.hub.Publish(env.BoardID, data, nil)

	// Durable copy is fire-and-forget with respect to the broadcast: a small
	// durability-vs-visibility window traded for latency.
	userID := s.UserID()
	go func(boardID uint, content, instanceID string) {
		if _, err := r.messages.SaveMessage(userID, boardID, content, instanceID); err != nil {
			r.log.Error().Err(err).Uint("board_id", boardID).Msg("persisting chat message")
		}
	}(env.BoardID, env.Content, env.InstanceID)
}

package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"go-board/pkg/board"
)

// Decode failures are per-frame: the frame is dropped, the connection stays
// open, and nothing reaches other subscribers.
var (
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrUnknownKind       = errors.New("unknown frame kind")
	ErrMissingBoard      = errors.New("frame missing boardId")
	ErrUnknownActionType = errors.New("unknown action type")
	ErrMissingInstanceID = errors.New("action missing instanceId")
	ErrEmptyContent      = errors.New("chat missing content")
)

// Frame is the decoded form of one inbound message. Exactly one of Action,
// Chat, Subscribe is set, matching Kind.
type Frame struct {
	Kind      board.FrameKind
	Action    *board.ActionEnvelope
	Chat      *board.ChatEnvelope
	Subscribe *board.SubscribeEnvelope
}

func (f *Frame) BoardID() uint {
	switch f.Kind {
	case board.FrameKindAction:
		return f.Action.BoardID
	case board.FrameKindChat:
		return f.Chat.BoardID
	default:
		return f.Subscribe.BoardID
	}
}

// DecodeFrame validates shape only. Action payloads are opaque; the channel
// transports them, it does not interpret drawing semantics.
func DecodeFrame(raw []byte) (*Frame, error) {
	var head struct {
		Kind board.FrameKind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch head.Kind {
	case board.FrameKindAction:
		var env board.ActionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if env.BoardID == 0 {
			return nil, ErrMissingBoard
		}
		if !env.Type.Valid() {
			return nil, ErrUnknownActionType
		}
		// Outbound actions require the idempotency token and the server never
		// invents one, so a tokenless action can never be broadcast.
		if env.InstanceID == "" {
			return nil, ErrMissingInstanceID
		}
		return &Frame{Kind: head.Kind, Action: &env}, nil

	case board.FrameKindChat:
		var env board.ChatEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if env.BoardID == 0 {
			return nil, ErrMissingBoard
		}
		if env.Content == "" {
			return nil, ErrEmptyContent
		}
		return &Frame{Kind: head.Kind, Chat: &env}, nil

	case board.FrameKindSubscribe, board.FrameKindUnsubscribe:
		var env board.SubscribeEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if env.BoardID == 0 {
			return nil, ErrMissingBoard
		}
		return &Frame{Kind: head.Kind, Subscribe: &env}, nil

	default:
		return nil, ErrUnknownKind
	}
}

func EncodeAction(env *board.ActionEnvelope) ([]byte, error) {
	env.Kind = board.FrameKindAction
	return json.Marshal(env)
}

func EncodeChat(env *board.ChatEnvelope) ([]byte, error) {
	env.Kind = board.FrameKindChat
	return json.Marshal(env)
}

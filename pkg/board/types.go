package board

import (
	"encoding/json"
	"time"
)

// FrameKind addresses the logical stream of a frame: one channel per board,
// demultiplexed by kind.
type FrameKind string

const (
	FrameKindSubscribe   FrameKind = "subscribe"
	FrameKindUnsubscribe FrameKind = "unsubscribe"
	FrameKindAction      FrameKind = "action"
	FrameKindChat        FrameKind = "chat"
)

// ActionType is the closed enumeration of drawing actions the channel relays.
// The payload itself is opaque to the server.
type ActionType string

const (
	ActionObjectAdd    ActionType = "OBJECT_ADD"
	ActionObjectUpdate ActionType = "OBJECT_UPDATE"
	ActionObjectDelete ActionType = "OBJECT_DELETE"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionObjectAdd, ActionObjectUpdate, ActionObjectDelete:
		return true
	}
	return false
}

type Sender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ActionEnvelope carries one drawing action. InstanceID is a client-generated
// idempotency token, echoed verbatim on broadcast so the originating client can
// reconcile its own optimistic update. Sender is stamped server-side.
type ActionEnvelope struct {
	Kind       FrameKind       `json:"kind"`
	BoardID    uint            `json:"boardId"`
	Type       ActionType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	InstanceID string          `json:"instanceId"`
	Sender     *Sender         `json:"sender,omitempty"`
}

// ChatEnvelope carries one chat message. ID is the durable message id and only
// appears on history reads; the live broadcast does not wait on persistence.
type ChatEnvelope struct {
	Kind        FrameKind `json:"kind"`
	ID          uint      `json:"id,omitempty"`
	BoardID     uint      `json:"boardId"`
	Content     string    `json:"content"`
	InstanceID  string    `json:"instanceId,omitempty"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	SenderName  string    `json:"senderName,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SubscribeEnvelope joins or leaves a board's channel, depending on Kind.
type SubscribeEnvelope struct {
	Kind    FrameKind `json:"kind"`
	BoardID uint      `json:"boardId"`
}

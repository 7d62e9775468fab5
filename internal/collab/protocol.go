package collab

import (
	"encoding/json"

	"github.com/inamate/pixelkit/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Tool        string     `json:"tool,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is in canvas pixels.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// DocSyncPayload carries the full document, sent on join and on doc.request.
type DocSyncPayload struct {
	Document      json.RawMessage `json:"document"`
	ServerSeq     int64           `json:"serverSeq"`
	PixelsVersion int             `json:"pixelsVersion"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync    = "doc.sync"
	TypeDocRequest = "doc.request"

	// Engine commands
	TypeCmdSubmit    = "cmd.submit"
	TypeCmdAck       = "cmd.ack"
	TypeCmdNack      = "cmd.nack"
	TypeCmdBroadcast = "cmd.broadcast"
)

// CommandSubmitPayload is the payload for cmd.submit. ID is chosen by the client
// and echoed in the ack or nack.
type CommandSubmitPayload struct {
	ID      string         `json:"id"`
	Command engine.Command `json:"command"`
}

type CommandAckPayload struct {
	ID            string `json:"id"`
	ServerSeq     int64  `json:"serverSeq"`
	PixelsVersion int    `json:"pixelsVersion"`
	Result        any    `json:"result,omitempty"`
}

type CommandNackPayload struct {
	ID            string `json:"id"`
	Reason        string `json:"reason"`
	PixelsVersion int    `json:"pixelsVersion"`
}

// CommandBroadcastPayload tells peers that a document-changing command was applied.
type CommandBroadcastPayload struct {
	Command       engine.Command `json:"command"`
	UserID        string         `json:"userId"`
	ServerSeq     int64          `json:"serverSeq"`
	PixelsVersion int            `json:"pixelsVersion"`
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
		typ = TypeError
	}
	return &Message{Type: typ, Payload: data}
}

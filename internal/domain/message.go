package domain

import (
	"bytes"
	"errors"

	json "github.com/goccy/go-json"
)

type MessageType string

// Inbound.
const (
	TypeCreate       MessageType = "create"
	TypeJoin         MessageType = "join"
	TypeRegister     MessageType = "register"
	TypeConnect      MessageType = "connect"
	TypeSignal       MessageType = "signal"
	TypeICECandidate MessageType = "ice-candidate"
)

// Outbound.
const (
	TypeWelcome     MessageType = "welcome"
	TypeRoomCreated MessageType = "room-created"
	TypeRoomJoined  MessageType = "room-joined"
	TypeRegistered  MessageType = "registered"
	TypeConnecting  MessageType = "connecting"
	TypePeerJoined  MessageType = "peer-joined"
	TypePeerLeft    MessageType = "peer-left"
	TypeError       MessageType = "error"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Message is the relay envelope. Only the fields relevant to Type are set;
// Payload is forwarded untouched.
type Message struct {
	Type            MessageType     `json:"type"`
	From            PeerID          `json:"from,omitempty"`
	To              PeerID          `json:"to,omitempty"`
	RoomID          RoomID          `json:"roomId,omitempty"`
	PeerID          PeerID          `json:"peerId,omitempty"`
	UserID          UserID          `json:"userId,omitempty"`
	TargetUserID    UserID          `json:"targetUserId,omitempty"`
	InitiatorID     UserID          `json:"initiatorId,omitempty"`
	InitiatorPeerID PeerID          `json:"initiatorPeerId,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Error           ErrorCode       `json:"error,omitempty"`
}

// DecodeInbound parses a client frame. Only the type tag and the fields of
// that type are read; anything else in the frame is ignored. Anything a
// client is not allowed to send decodes to ErrUnknownType, so callers can
// ignore it uniformly.
func DecodeInbound(data []byte) (Message, error) {
	var m Message
	if len(data) == 0 {
		return m, ErrMalformed
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return m, errors.Join(ErrMalformed, err)
	}
	typ, _ := stringField(fields["type"])
	m.Type = MessageType(typ)
	switch m.Type {
	case TypeCreate:
	case TypeJoin:
		// No room id is ever a number or an object.
		if id, ok := stringField(fields["roomId"]); ok {
			m.RoomID = RoomID(id)
		}
	case TypeRegister:
		m.UserID = UserID(idField(fields["userId"]))
	case TypeConnect:
		m.TargetUserID = UserID(idField(fields["targetUserId"]))
	case TypeSignal, TypeICECandidate:
		m.To = PeerID(idField(fields["to"]))
		if p := fields["payload"]; len(p) > 0 {
			m.Payload = p
		}
	default:
		return m, ErrUnknownType
	}
	return m, nil
}

// stringField reports whether raw holds a JSON string and returns it.
func stringField(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// idField reads an identifier leniently. Strings are taken as is, falsy
// values (null, false, 0, "") read as absent, and any other value becomes
// "#" plus its compact JSON text, so a numeric id only matches the same
// numeric id.
func idField(raw json.RawMessage) string {
	if s, ok := stringField(raw); ok {
		return s
	}
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if !x {
			return ""
		}
	case float64:
		if x == 0 {
			return ""
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return "#" + string(out)
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Welcome(peer PeerID) Message { return Message{Type: TypeWelcome, PeerID: peer} }

func ErrorMessage(code ErrorCode) Message { return Message{Type: TypeError, Error: code} }

// Package control implements the protocol spoken over the peer-to-peer
// control channel once signaling is done: remote input, clipboard sync and
// chunked file transfer.
package control

import (
	"errors"

	json "github.com/goccy/go-json"
)

// ChannelLabel names the ordered, reliable data channel carrying events.
const ChannelLabel = "mouse-control"

type EventType string

const (
	EventHelloHost    EventType = "hello-host"
	EventHelloViewer  EventType = "hello-viewer"
	EventMove         EventType = "move"
	EventDown         EventType = "down"
	EventUp           EventType = "up"
	EventDoubleClick  EventType = "double-click"
	EventContextClick EventType = "context-click"
	EventWheel        EventType = "wheel"
	EventClipboard    EventType = "clipboard-text"
	EventFileMeta     EventType = "file-meta"
	EventFileChunk    EventType = "file-chunk"
	EventFileEnd      EventType = "file-end"
)

var (
	ErrMalformedEvent = errors.New("malformed control event")
	ErrUnknownEvent   = errors.New("unknown control event")
)

// Event is one control message. Which fields are meaningful depends on Type;
// X and Y are optional on down and up.
type Event struct {
	Type   EventType `json:"type"`
	X      *float64  `json:"x,omitempty"`
	Y      *float64  `json:"y,omitempty"`
	Button int       `json:"button,omitempty"`
	DX     float64   `json:"dx,omitempty"`
	DY     float64   `json:"dy,omitempty"`
	Text   string    `json:"text,omitempty"`
	Name   string    `json:"name,omitempty"`
	Size   int64     `json:"size,omitempty"`
	Bytes  []byte    `json:"bytes,omitempty"`
}

func (e Event) Point() (Point, bool) {
	if e.X == nil || e.Y == nil {
		return Point{}, false
	}
	return Point{X: *e.X, Y: *e.Y}, true
}

// Decode parses a text frame. Unknown types return ErrUnknownEvent so the
// receiver can skip them.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return e, errors.Join(ErrMalformedEvent, err)
	}
	switch e.Type {
	case EventHelloHost, EventHelloViewer,
		EventMove, EventDown, EventUp, EventDoubleClick, EventContextClick, EventWheel,
		EventClipboard, EventFileMeta, EventFileChunk, EventFileEnd:
	default:
		return e, ErrUnknownEvent
	}
	if e.Type == EventMove {
		if _, ok := e.Point(); !ok {
			return e, ErrMalformedEvent
		}
	}
	return e, nil
}

func (e Event) Encode() ([]byte, error) { return json.Marshal(e) }

func Hello(host bool, name string) Event {
	if host {
		return Event{Type: EventHelloHost, Name: name}
	}
	return Event{Type: EventHelloViewer, Name: name}
}

func Move(p Point) Event { return Event{Type: EventMove, X: &p.X, Y: &p.Y} }

// Press builds a down or up event, optionally carrying the pointer position.
func Press(down bool, button int, at *Point) Event {
	e := Event{Type: EventUp, Button: button}
	if down {
		e.Type = EventDown
	}
	if at != nil {
		x, y := at.X, at.Y
		e.X, e.Y = &x, &y
	}
	return e
}

func DoubleClick(button int) Event { return Event{Type: EventDoubleClick, Button: button} }

func ContextClick() Event { return Event{Type: EventContextClick} }

func Wheel(dx, dy float64) Event { return Event{Type: EventWheel, DX: dx, DY: dy} }

func ClipboardText(text string) Event { return Event{Type: EventClipboard, Text: text} }

func FileMeta(name string, size int64) Event { return Event{Type: EventFileMeta, Name: name, Size: size} }

func FileEnd() Event { return Event{Type: EventFileEnd} }

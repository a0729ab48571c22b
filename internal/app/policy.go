package app

import (
	"fmt"

	"github.com/dkeye/RemoteDesk/internal/core"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackPressure(member core.MemberSession) BackpressureAction
}

// SimplePolicy drops the frame and keeps the member.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.MemberSession) BackpressureAction { return DropFrame }

// StrictPolicy disconnects members that cannot keep up.
type StrictPolicy struct{}

func (StrictPolicy) OnBackPressure(core.MemberSession) BackpressureAction { return Disconnect }

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{}, nil
	case "disconnect":
		return StrictPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}

package x11

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dkeye/RemoteDesk/internal/control"
)

// Xdotool injects input through the XTEST extension via xdotool.
type Xdotool struct {
	run Runner
}

func NewXdotool(run Runner) *Xdotool { return &Xdotool{run: run} }

func (x *Xdotool) Name() string { return "xdotool" }

func (x *Xdotool) InjectPointer(ctx context.Context, px, py int) error {
	_, err := x.run.Run(ctx, nil, "xdotool", "mousemove", strconv.Itoa(px), strconv.Itoa(py))
	return err
}

func (x *Xdotool) InjectButton(ctx context.Context, b control.Button, down bool) error {
	verb := "mouseup"
	if down {
		verb = "mousedown"
	}
	_, err := x.run.Run(ctx, nil, "xdotool", verb, strconv.Itoa(xButton(b)))
	return err
}

// InjectScroll clicks the wheel buttons: 4 up, 5 down, 6 left, 7 right.
func (x *Xdotool) InjectScroll(ctx context.Context, dx, dy int) error {
	if err := x.wheel(ctx, dy, 5, 4); err != nil {
		return err
	}
	return x.wheel(ctx, dx, 7, 6)
}

func (x *Xdotool) wheel(ctx context.Context, steps, positive, negative int) error {
	if steps == 0 {
		return nil
	}
	button := positive
	if steps < 0 {
		button, steps = negative, -steps
	}
	_, err := x.run.Run(ctx, nil, "xdotool", "click", "--repeat", strconv.Itoa(steps), strconv.Itoa(button))
	return err
}

// ScreenSize reads the root window geometry.
func (x *Xdotool) ScreenSize(ctx context.Context) (control.Size, error) {
	out, err := x.run.Run(ctx, nil, "xdotool", "getdisplaygeometry")
	if err != nil {
		return control.Size{}, err
	}
	return parseGeometry(string(out))
}

func parseGeometry(s string) (control.Size, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return control.Size{}, fmt.Errorf("unexpected geometry %q", s)
	}
	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return control.Size{}, fmt.Errorf("geometry width: %w", err)
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil {
		return control.Size{}, fmt.Errorf("geometry height: %w", err)
	}
	return control.Size{Width: w, Height: h}, nil
}

func xButton(b control.Button) int {
	switch b {
	case control.ButtonMiddle:
		return 2
	case control.ButtonRight:
		return 3
	default:
		return 1
	}
}

// Ydotool injects through uinput, which also works under Wayland.
type Ydotool struct {
	run Runner
}

func NewYdotool(run Runner) *Ydotool { return &Ydotool{run: run} }

func (y *Ydotool) Name() string { return "ydotool" }

func (y *Ydotool) InjectPointer(ctx context.Context, px, py int) error {
	_, err := y.run.Run(ctx, nil, "ydotool", "mousemove", "--absolute", "-x", strconv.Itoa(px), "-y", strconv.Itoa(py))
	return err
}

// InjectButton uses ydotool click codes: low nibble is the button,
// 0x40 presses and 0x80 releases.
func (y *Ydotool) InjectButton(ctx context.Context, b control.Button, down bool) error {
	code := 0x00
	switch b {
	case control.ButtonRight:
		code = 0x01
	case control.ButtonMiddle:
		code = 0x02
	}
	if down {
		code |= 0x40
	} else {
		code |= 0x80
	}
	_, err := y.run.Run(ctx, nil, "ydotool", "click", fmt.Sprintf("0x%02X", code))
	return err
}

func (y *Ydotool) InjectScroll(ctx context.Context, dx, dy int) error {
	_, err := y.run.Run(ctx, nil, "ydotool", "mousemove", "--wheel", "-x", strconv.Itoa(dx), "-y", strconv.Itoa(-dy))
	return err
}

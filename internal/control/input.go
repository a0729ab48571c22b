package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrInjectionUnavailable is returned when no injector in the chain could
// perform an action.
var ErrInjectionUnavailable = errors.New("MOUSE_INJECTION_NOT_AVAILABLE")

type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// ButtonFromWire maps the wire button index; unknown values are left.
func ButtonFromWire(b int) Button {
	switch b {
	case 1:
		return ButtonMiddle
	case 2:
		return ButtonRight
	default:
		return ButtonLeft
	}
}

func (b Button) String() string {
	switch b {
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "left"
	}
}

// Injector performs OS-level input. Coordinates are screen pixels, scroll
// amounts are whole steps with positive meaning right/down.
type Injector interface {
	Name() string
	InjectPointer(ctx context.Context, x, y int) error
	InjectButton(ctx context.Context, b Button, down bool) error
	InjectScroll(ctx context.Context, dx, dy int) error
}

// FallbackInjector tries each injector in order until one succeeds.
type FallbackInjector struct {
	chain []Injector
}

func NewFallbackInjector(chain ...Injector) *FallbackInjector {
	return &FallbackInjector{chain: chain}
}

func (f *FallbackInjector) Name() string { return "fallback" }

func (f *FallbackInjector) InjectPointer(ctx context.Context, x, y int) error {
	return f.try(ctx, "pointer", func(i Injector) error { return i.InjectPointer(ctx, x, y) })
}

func (f *FallbackInjector) InjectButton(ctx context.Context, b Button, down bool) error {
	return f.try(ctx, "button", func(i Injector) error { return i.InjectButton(ctx, b, down) })
}

func (f *FallbackInjector) InjectScroll(ctx context.Context, dx, dy int) error {
	return f.try(ctx, "scroll", func(i Injector) error { return i.InjectScroll(ctx, dx, dy) })
}

func (f *FallbackInjector) try(ctx context.Context, action string, fn func(Injector) error) error {
	var errs []error
	for _, inj := range f.chain {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(inj)
		if err == nil {
			return nil
		}
		log.Debug().Err(err).Str("module", "control").Str("injector", inj.Name()).Str("action", action).Msg("injector failed")
		errs = append(errs, fmt.Errorf("%s: %w", inj.Name(), err))
	}
	if len(errs) == 0 {
		return ErrInjectionUnavailable
	}
	return fmt.Errorf("%w: %w", ErrInjectionUnavailable, errors.Join(errs...))
}

package control

import (
	"context"

	"github.com/rs/zerolog/log"
)

// WheelScale converts wheel deltas into whole scroll steps.
const WheelScale = 50

// Dispatcher turns input events into injector calls against the local screen.
type Dispatcher struct {
	inj    Injector
	screen *CachedScreen
}

func NewDispatcher(inj Injector, screen *CachedScreen) *Dispatcher {
	return &Dispatcher{inj: inj, screen: screen}
}

// Apply performs e. Non-input events are ignored.
func (d *Dispatcher) Apply(ctx context.Context, e Event) error {
	switch e.Type {
	case EventMove:
		p, _ := e.Point()
		return d.moveTo(ctx, p)
	case EventDown, EventUp:
		if p, ok := e.Point(); ok {
			if err := d.moveTo(ctx, p); err != nil {
				return err
			}
		}
		return d.inj.InjectButton(ctx, ButtonFromWire(e.Button), e.Type == EventDown)
	case EventDoubleClick:
		b := ButtonFromWire(e.Button)
		for range 2 {
			if err := d.click(ctx, b); err != nil {
				return err
			}
		}
		return nil
	case EventContextClick:
		return d.click(ctx, ButtonRight)
	case EventWheel:
		dx, dy := int(e.DX*WheelScale), int(e.DY*WheelScale)
		if dx == 0 && dy == 0 {
			return nil
		}
		return d.inj.InjectScroll(ctx, dx, dy)
	}
	return nil
}

func (d *Dispatcher) moveTo(ctx context.Context, p Point) error {
	x, y := Denormalize(p, d.screen.Size(ctx))
	log.Trace().Str("module", "control").Int("x", x).Int("y", y).Msg("move")
	return d.inj.InjectPointer(ctx, x, y)
}

func (d *Dispatcher) click(ctx context.Context, b Button) error {
	if err := d.inj.InjectButton(ctx, b, true); err != nil {
		return err
	}
	return d.inj.InjectButton(ctx, b, false)
}

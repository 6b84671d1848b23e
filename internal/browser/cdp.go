// Package browser adapts the abstract replay sink onto a live Chrome
// DevTools session. It is the concrete transport for driving a real browser;
// the core pipeline never depends on it.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
)

// CDPSink delivers InputEvents as CDP Input-domain dispatches. Deliver must
// be called with a chromedp target context.
type CDPSink struct {
	log *zap.Logger
}

// NewCDPSink creates a sink for a chromedp session.
func NewCDPSink(logger *zap.Logger) *CDPSink {
	return &CDPSink{log: logger.Named("cdpsink")}
}

// Deliver maps one event onto the matching CDP dispatch. Unknown kinds are a
// delivery error so replay aborts instead of silently skipping.
func (s *CDPSink) Deliver(ctx context.Context, ev schemas.InputEvent) error {
	switch ev.Kind {
	case schemas.EventPointerMove, schemas.EventButtonDown, schemas.EventButtonUp, schemas.EventScroll:
		return MouseParams(ev).Do(ctx)
	case schemas.EventKeyDown, schemas.EventKeyUp:
		return KeyParams(ev).Do(ctx)
	case schemas.EventCaptureLost:
		// Terminal marker; nothing to dispatch.
		return nil
	default:
		return fmt.Errorf("browser: cannot dispatch event kind %q", ev.Kind)
	}
}

// MouseParams builds the CDP mouse dispatch for a pointer event.
func MouseParams(ev schemas.InputEvent) *input.DispatchMouseEventParams {
	var kind input.MouseType
	switch ev.Kind {
	case schemas.EventButtonDown:
		kind = input.MousePressed
	case schemas.EventButtonUp:
		kind = input.MouseReleased
	case schemas.EventScroll:
		kind = input.MouseWheel
	default:
		kind = input.MouseMoved
	}

	params := input.DispatchMouseEvent(kind, ev.X, ev.Y).
		WithButton(cdpButton(ev.Button)).
		WithModifiers(cdpModifiers(ev.Modifiers))

	switch ev.Kind {
	case schemas.EventButtonDown:
		params = params.WithClickCount(1).WithButtons(buttonBit(ev.Button))
	case schemas.EventButtonUp:
		params = params.WithClickCount(1)
	case schemas.EventScroll:
		params = params.WithDeltaX(ev.DeltaX).WithDeltaY(ev.DeltaY)
	}
	return params
}

// KeyParams builds the CDP key dispatch for a keyboard event.
func KeyParams(ev schemas.InputEvent) *input.DispatchKeyEventParams {
	kind := input.KeyUp
	if ev.Kind == schemas.EventKeyDown {
		kind = input.KeyDown
	}
	params := input.DispatchKeyEvent(kind).
		WithKey(ev.Key).
		WithModifiers(cdpModifiers(ev.Modifiers))
	if ev.Kind == schemas.EventKeyDown && len([]rune(ev.Key)) == 1 {
		params = params.WithText(ev.Key)
	}
	return params
}

func cdpButton(b schemas.MouseButton) input.MouseButton {
	if b == "" {
		b = schemas.ButtonNone
	}
	// The schema values align with the CDP protocol strings.
	return input.MouseButton(b)
}

// buttonBit is the standard buttons bitfield (1 left, 2 right, 4 middle).
func buttonBit(b schemas.MouseButton) int64 {
	switch b {
	case schemas.ButtonLeft:
		return 1
	case schemas.ButtonRight:
		return 2
	case schemas.ButtonMiddle:
		return 4
	}
	return 0
}

func cdpModifiers(m schemas.Modifiers) input.Modifier {
	var out input.Modifier
	if m&schemas.ModAlt != 0 {
		out |= input.ModifierAlt
	}
	if m&schemas.ModCtrl != 0 {
		out |= input.ModifierCtrl
	}
	if m&schemas.ModMeta != 0 {
		out |= input.ModifierMeta
	}
	if m&schemas.ModShift != 0 {
		out |= input.ModifierShift
	}
	return out
}

// Navigate is a convenience for command-line replay: open a target page in
// the chromedp context before streaming events at it.
func Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

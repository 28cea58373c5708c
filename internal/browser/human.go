package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Type focuses the first element matching selector and types text one
// character at a time with a random delay between keystrokes.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	page := s.page.Context(ctx)
	el, err := page.Timeout(s.waitTimeout).Element(selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}

	for _, r := range text {
		if err := el.Input(string(r)); err != nil {
			return err
		}
		if err := pause(ctx, s.jitter(s.cfg.TypingDelayMin, s.cfg.TypingDelayMax)); err != nil {
			return err
		}
	}
	return nil
}

// Submit presses Enter and waits for the page to settle.
func (s *Session) Submit(ctx context.Context) error {
	page := s.page.Context(ctx)
	if err := page.Keyboard.Press(input.Enter); err != nil {
		return err
	}
	s.settle(ctx)
	return nil
}

// Wander moves the pointer along a few random segments and scrolls the page
// in uneven steps. Failures are ignored.
func (s *Session) Wander(ctx context.Context) {
	page := s.page.Context(ctx)
	w, h := float64(s.fp.ViewportWidth), float64(s.fp.ViewportHeight)

	for i := 0; i < 2+rand.Intn(3); i++ {
		to := proto.Point{X: w * (0.1 + 0.8*rand.Float64()), Y: h * (0.1 + 0.8*rand.Float64())}
		if err := page.Mouse.MoveLinear(to, 5+rand.Intn(15)); err != nil {
			return
		}
		if pause(ctx, s.jitter(80*time.Millisecond, 300*time.Millisecond)) != nil {
			return
		}
	}

	for i := 0; i < 1+rand.Intn(3); i++ {
		dy := 150 + rand.Float64()*450
		if err := page.Mouse.Scroll(0, dy, 3+rand.Intn(5)); err != nil {
			return
		}
		if pause(ctx, s.jitter(200*time.Millisecond, 700*time.Millisecond)) != nil {
			return
		}
	}
}

func (s *Session) jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

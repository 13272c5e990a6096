package game

import (
	"context"
	"errors"
	"time"
)

// ErrDrainTimeout is returned when tiles are still in flight after the drain
// deadline.
var ErrDrainTimeout = errors.New("drain timed out")

type controlTicker interface {
	controlTick(delta time.Duration, stopping bool) (drained bool)
}

type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

// controlLoop drives the control goroutine at a fixed rate. After the context
// ends it keeps ticking with stopping set until the target reports it is
// drained or the drain deadline passes.
type controlLoop struct {
	target       controlTicker
	tick         time.Duration
	drainTimeout time.Duration
	newTicker    tickerFactory
	now          timeSource
	after        func(time.Duration) <-chan time.Time
}

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

func newControlLoop(target controlTicker, tick, drainTimeout time.Duration) *controlLoop {
	if tick <= 0 {
		tick = time.Second / 30
	}
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	return &controlLoop{
		target:       target,
		tick:         tick,
		drainTimeout: drainTimeout,
		newTicker:    defaultTickerFactory(),
		now:          time.Now,
		after:        time.After,
	}
}

func (m *controlLoop) Run(ctx context.Context) error {
	tickerC, stop := m.newTicker(m.tick)
	defer stop()

	done := ctx.Done()
	var deadline <-chan time.Time
	stopping := false
	last := m.now()
	for {
		select {
		case <-done:
			done = nil
			stopping = true
			deadline = m.after(m.drainTimeout)
		case <-deadline:
			return ErrDrainTimeout
		case now := <-tickerC:
			delta := now.Sub(last)
			if delta <= 0 {
				delta = m.tick
			} else if delta > 10*m.tick {
				delta = m.tick
			}
			last = now
			if m.target.controlTick(delta, stopping) && stopping {
				return nil
			}
		}
	}
}

package app

import (
	"sync"
	"time"
)

// Ticker is the part of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (t stdTicker) C() <-chan time.Time { return t.t.C }
func (t stdTicker) Stop()               { t.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// countdown is the handle for the single live per-question timer. A session holds at most one;
// ticks from a handle that is no longer the session's current one are ignored.
type countdown struct {
	ticker Ticker
	stop   chan struct{}
	once   sync.Once
}

func newCountdown(newTicker TickerFunc) *countdown {
	return &countdown{
		ticker: newTicker(time.Second),
		stop:   make(chan struct{}),
	}
}

func (c *countdown) cancel() {
	c.once.Do(func() {
		close(c.stop)
		c.ticker.Stop()
	})
}

// run delivers ticks to onTick until the countdown is canceled or onTick reports it is done.
func (c *countdown) run(onTick func(*countdown) bool) {
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.C():
			if done := onTick(c); done {
				return
			}
		}
	}
}

package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
)

// Ticker is the subset of time.Ticker the clock needs
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Clock is a pausable stopwatch counting whole seconds.
// While running exactly one ticker goroutine exists; pausing or closing
// stops it and waits for it to exit.
type Clock struct {
	mu        sync.Mutex
	elapsed   int
	state     domain.ClockState
	newTicker TickerFunc
	stop      chan struct{}
	done      chan struct{}
	closed    bool
}

// NewClock creates a clock with an initial elapsed time and state.
// A running clock starts ticking immediately.
func NewClock(newTicker TickerFunc, elapsed int, state domain.ClockState) *Clock {
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	if elapsed < 0 {
		elapsed = 0
	}
	c := &Clock{
		elapsed:   elapsed,
		state:     domain.ClockPaused,
		newTicker: newTicker,
	}
	if state != domain.ClockPaused {
		c.mu.Lock()
		c.startLocked()
		c.mu.Unlock()
	}
	return c
}

// Elapsed returns the elapsed seconds
func (c *Clock) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// State returns running or paused
func (c *Clock) State() domain.ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle flips between running and paused and returns the new state
func (c *Clock) Toggle() domain.ClockState {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ClockPaused
	}
	if c.state == domain.ClockRunning {
		done := c.stopLocked()
		c.mu.Unlock()
		<-done
		return domain.ClockPaused
	}
	c.startLocked()
	c.mu.Unlock()
	return domain.ClockRunning
}

// Close stops the ticker for good. Safe to call more than once.
func (c *Clock) Close() {
	c.mu.Lock()
	c.closed = true
	var done chan struct{}
	if c.state == domain.ClockRunning {
		done = c.stopLocked()
	}
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Clock) startLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	c.state = domain.ClockRunning
	go c.run(c.newTicker(time.Second), stop, done)
}

// stopLocked signals the ticker goroutine; the caller waits on the returned
// channel after releasing the lock.
func (c *Clock) stopLocked() chan struct{} {
	close(c.stop)
	done := c.done
	c.stop, c.done = nil, nil
	c.state = domain.ClockPaused
	return done
}

func (c *Clock) run(t Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			c.mu.Lock()
			select {
			case <-stop:
				c.mu.Unlock()
				return
			default:
			}
			c.elapsed++
			c.mu.Unlock()
		}
	}
}

// FormatElapsed renders seconds as MM:SS; minutes are not wrapped at 60
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

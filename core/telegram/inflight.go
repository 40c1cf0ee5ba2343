package telegram

import (
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

const defaultDrainTimeout = 30 * time.Second

// inflight counts running handlers so shutdown can wait for them before
// releasing what they use.
type inflight struct {
	mu       sync.Mutex
	running  int
	draining bool
	idle     chan struct{}
}

func newInflight() *inflight {
	return &inflight{idle: make(chan struct{})}
}

func (f *inflight) enter() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draining {
		return false
	}
	f.running++
	return true
}

func (f *inflight) leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running--
	if f.draining && f.running == 0 {
		close(f.idle)
	}
}

// track runs h unless draining has started; updates arriving after that are
// dropped.
func (f *inflight) track(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !f.enter() {
			return nil
		}
		defer f.leave()
		return h(c)
	}
}

// drain refuses new handlers and waits up to timeout for running ones. It
// reports how many were still running when it gave up. Call it once.
func (f *inflight) drain(timeout time.Duration) int {
	f.mu.Lock()
	f.draining = true
	if f.running == 0 {
		f.mu.Unlock()
		return 0
	}
	f.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.idle:
		return 0
	case <-timer.C:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.running
	}
}

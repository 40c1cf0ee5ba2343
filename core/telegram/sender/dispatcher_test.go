package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func newTestDispatcher(t *testing.T, opts Options) (*Dispatcher, *[]time.Duration) {
	t.Helper()
	d := NewDispatcher(opts)
	t.Cleanup(d.Close)
	var slept []time.Duration
	d.sleep = func(_ context.Context, delay time.Duration) error {
		slept = append(slept, delay)
		return nil
	}
	return d, &slept
}

func TestDispatcherDoRetriesTransientErrors(t *testing.T) {
	d, slept := newTestDispatcher(t, Options{MaxRetries: 2, RetryBackoff: time.Second})
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	var calls int
	err := d.Do(context.Background(), "send.document", "sendDocument", func() error {
		calls++
		if calls < 3 {
			return dial
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestDispatcherDoStopsOnPermanentError(t *testing.T) {
	d, slept := newTestDispatcher(t, Options{MaxRetries: 3})
	badRequest := &tele.Error{Code: 400, Description: "Bad Request: file is too big"}

	var calls int
	err := d.Do(context.Background(), "send.document", "sendDocument", func() error {
		calls++
		return badRequest
	})

	assert.ErrorIs(t, err, badRequest)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDispatcherDoGivesUpAfterMaxRetries(t *testing.T) {
	d, _ := newTestDispatcher(t, Options{MaxRetries: 1})

	var calls int
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error {
		calls++
		return &tele.Error{Code: 502}
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDispatcherEnqueueRunsJob(t *testing.T) {
	d, _ := newTestDispatcher(t, Options{Workers: 1})

	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()

	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherEnqueueRacesClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
					if err != nil && !errors.Is(err, ErrQueueClosed) && !errors.Is(err, ErrQueueFull) {
						t.Errorf("unexpected enqueue error: %v", err)
					}
				}
			}()
		}
		d.Close()
		wg.Wait()
		d.Close()
	}
}

func TestDispatcherEnqueueQueueFull(t *testing.T) {
	d, _ := newTestDispatcher(t, Options{Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	var ran atomic.Int32
	block := func() error {
		ran.Add(1)
		close(started)
		<-release
		return nil
	}
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", block))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil }))

	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "rate_limited", classifyError(tele.FloodError{RetryAfter: 1}))
	assert.Equal(t, "http_5xx", classifyError(&tele.Error{Code: 503}))
	assert.Equal(t, "http_4xx", classifyError(&tele.Error{Code: 403}))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
	assert.Empty(t, classifyError(nil))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendDocument": EOF`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendDocument": EOF`, sanitizeErrorMessage(err))
}

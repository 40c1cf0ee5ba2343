package logger

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ err error }

func (f failingSink) Write([]byte) (int, error) { return 0, f.err }

func TestAsyncWriterFansOut(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{a, nil, b}, 0)

	require.NoError(t, w.Write([]byte("one\n")))
	require.NoError(t, w.Write([]byte("two\n")))
	require.NoError(t, w.Flush())

	assert.Equal(t, "one\ntwo\n", a.String())
	assert.Equal(t, "one\ntwo\n", b.String())
	require.NoError(t, w.Close())
}

func TestAsyncWriterFlushWritesQueuedLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 0)
	defer w.Close()

	for round := 1; round <= 20; round++ {
		for i := 0; i < 100; i++ {
			require.NoError(t, w.Write([]byte("x\n")))
		}
		require.NoError(t, w.Flush())
		assert.Equal(t, round*100, bytes.Count(buf.Bytes(), []byte("\n")))
	}
}

func TestAsyncWriterAfterClose(t *testing.T) {
	w := newAsyncWriter([]io.Writer{&bytes.Buffer{}}, 0)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Write([]byte("late\n")), errWriterClosed)
	assert.NoError(t, w.Flush())
	assert.NoError(t, w.Close())
}

func TestAsyncWriterReportsSinkError(t *testing.T) {
	boom := errors.New("disk full")
	w := newAsyncWriter([]io.Writer{failingSink{err: boom}}, 16)

	require.NoError(t, w.Write([]byte("line\n")))
	assert.ErrorIs(t, w.Close(), boom)
	assert.ErrorIs(t, w.Write([]byte("again\n")), boom)
}

func TestAsyncWriterConcurrentWriters(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = w.Write([]byte("x\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	assert.Equal(t, 400, bytes.Count(buf.Bytes(), []byte("\n")))
}

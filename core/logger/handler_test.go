package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emit writes one event through a fresh handler and returns the flushed line.
func emit(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	LogEvent(ctx, slog.New(handler).With("component", component), level, event, attrs...)
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)

	line := emit(t, formatKV, ctx, "convert", slog.LevelInfo, "convert.done",
		slog.String("status", "ok"),
		slog.Int("pages", 3),
	)

	tokens := strings.Split(line, " ")
	require.GreaterOrEqual(t, len(tokens), 6, line)
	expected := []string{"ts=", "level=INFO", "component=convert", "event=convert.done", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "pages=3")
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-json"), 11, 22, 33)

	line := emit(t, formatJSON, ctx, "stats", slog.LevelError, "stats.save",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "stats_write"),
	)

	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"stats"`, `"event":"stats.save"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greater(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"
	line := emit(t, formatKV, WithRID(Background(), raw), "app", slog.LevelInfo, "rid.test")

	assert.Contains(t, line, "rid="+CompactRID(raw))
	assert.NotContains(t, line, "rid_full=")
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	raw := "12:34:56"
	line := emit(t, formatJSON, WithRID(Background(), raw), "app", slog.LevelInfo, "rid.test")

	assert.Contains(t, line, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, line, `"rid_full":"`+raw+`"`)
	assert.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerDurations(t *testing.T) {
	line := emit(t, formatKV, Background(), "convert", slog.LevelInfo, "convert.done",
		slog.Duration("duration", 1500*time.Millisecond),
		slog.Duration("encode_duration", 20*time.Millisecond),
	)

	assert.Contains(t, line, "duration_ms=1500")
	assert.Contains(t, line, "encode_duration_ms=20")
}

func TestStructuredHandlerClosedEnums(t *testing.T) {
	line := emit(t, formatKV, Background(), "session", slog.LevelDebug, "session.callback",
		slog.String("choice", "MENU"),
		slog.String("backend", "mem"),
	)

	assert.Contains(t, line, "choice=menu")
	assert.NotContains(t, line, "backend=")
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:1":  "z.10.1",
		"-1:0:10":  "-1.0.a",
		"1:2":      "1:2",
		"a:b:c":    "a:b:c",
		"":         "",
		" 1:1:1 ":  "1.1.1",
		"10:x:100": "10:x:100",
	}
	for in, want := range cases {
		assert.Equal(t, want, CompactRID(in), "CompactRID(%q)", in)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "line\nnext\tcol", Sanitize("line\nnext\tcol"))
	assert.Equal(t, "ab", Sanitize("a\x00\x1bb"))
	assert.Equal(t, "rtl", Sanitize("r\u200ftl"))
	assert.Equal(t, "привет", SanitizeLimit("привет мир", 6))
	assert.Empty(t, SanitizeLimit("anything", 0))
}

func TestContextAccessors(t *testing.T) {
	ctx := WithHandler(WithUpdateMeta(context.Background(), 5, 6, 7), "convert")

	assert.Equal(t, 5, UpdateIDFrom(ctx))
	assert.Equal(t, int64(6), UserIDFrom(ctx))
	assert.Equal(t, int64(7), ChatIDFrom(ctx))
	assert.Equal(t, "convert", HandlerFrom(ctx))
	assert.Empty(t, RIDFrom(ctx))
	assert.Same(t, L, FromContext(ctx))
}

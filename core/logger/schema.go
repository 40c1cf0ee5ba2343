package logger

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

func enum(values ...string) map[string]string {
	return lo.SliceToMap(values, func(v string) (string, string) { return v, v })
}

// status keeps unknown values as they are; the closed enums below drop them.
var allowedStatus = enum("ok", "fail", "skip", "retry", "rate_limited", "cancelled")

var closedEnums = map[string]map[string]string{
	"outcome": enum("ok", "fail", "cancelled", "rate_limited"),
	// session choice as logged by the interaction layer
	"choice":  enum("none", "menu", "image_index"),
	"backend": enum("file", "postgres", "redis"),
}

// levelName collapses custom slog levels onto the nearest standard name.
func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func normalizeStatus(status string) (string, bool) {
	mapped, ok := allowedStatus[strings.ToLower(strings.TrimSpace(status))]
	return mapped, ok
}

// defaultKeyOrder fixes where well-known keys appear; other keys follow
// sorted by name.
var defaultKeyOrder = strings.Fields(`
	ts level component event status rid rid_full ts_unix_nano
	update_id user_id chat_id chat_type handler operation op cb_key
	outcome duration_ms messages kb count choice payload lang username
	mode listen public_url http_code
	db host port backend location
	images conversions pages bytes path
	err err_code cause retryable attempts backoff_ms rate_limited
	collapsed repeats pending_count migrated
`)

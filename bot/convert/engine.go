// Package convert turns a user's pending images into a single PDF document
// and records the conversion in the statistics store.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m3rciful/pdfbot/bot/files"
	"github.com/m3rciful/pdfbot/bot/stats"
	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/observability"
)

// Document describes a produced output file.
type Document struct {
	Path  string
	Name  string
	Pages int
	// StatsErr is set when the document was produced but the conversion
	// could not be recorded.
	StatsErr error
}

// Engine produces documents and keeps conversion statistics.
type Engine struct {
	encoder Encoder
	storage *files.Storage
	stats   *stats.Repository
}

// NewEngine wires an engine. repo may be nil to skip statistics.
func NewEngine(enc Encoder, storage *files.Storage, repo *stats.Repository) *Engine {
	return &Engine{encoder: enc, storage: storage, stats: repo}
}

// Convert encodes images, in order, into the user's output slot, replacing
// any previous document.
func (e *Engine) Convert(ctx context.Context, userID int64, images []string) (*Document, error) {
	if len(images) == 0 {
		return nil, ErrEmptyInput
	}
	start := time.Now()

	path, err := e.write(ctx, userID, images)
	if err != nil {
		observability.ConversionsTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "convert", "convert.done",
			slog.String("status", "error"),
			slog.Int("images", len(images)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, err
	}
	observability.ConvertDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	observability.ConversionsTotal.WithLabelValues("ok").Inc()
	observability.ConvertedImagesTotal.Add(float64(len(images)))

	doc := &Document{Path: path, Name: files.DocumentName, Pages: len(images)}
	if e.stats != nil {
		doc.StatsErr = e.record(ctx, userID, len(images))
	}

	logger.Info(ctx, "convert", "convert.done",
		slog.String("status", "ok"),
		slog.Int("pages", len(images)),
		slog.Duration("duration", logger.Took(start)),
	)
	return doc, nil
}

func (e *Engine) write(ctx context.Context, userID int64, images []string) (string, error) {
	dir, err := e.storage.EnsureUserDir(userID)
	if err != nil {
		return "", &EncodingError{Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".output-*.pdf")
	if err != nil {
		return "", &EncodingError{Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := e.encoder.Encode(ctx, images, tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		var encErr *EncodingError
		if errors.As(err, &encErr) || errors.Is(err, ErrEmptyInput) {
			return "", err
		}
		return "", &EncodingError{Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", &EncodingError{Err: err}
	}

	dst := filepath.Join(dir, files.DocumentName)
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return "", &EncodingError{Err: fmt.Errorf("replace output: %w", err)}
	}
	return dst, nil
}

func (e *Engine) record(ctx context.Context, userID int64, images int) error {
	key := stats.UserKey(userID)
	err := e.stats.Update(ctx, func(s *stats.Store) error {
		s.EnsureUser(key)
		return s.RecordConversion(key, images)
	})
	if err == nil {
		return nil
	}

	code := "stats_error"
	var se *stats.StorageError
	if errors.As(err, &se) {
		code = se.Code()
	}
	observability.StatsFailures.WithLabelValues(code).Inc()
	logger.Warn(ctx, "convert", "convert.stats",
		slog.String("status", "error"),
		slog.String("err_code", code),
		slog.String("err", err.Error()),
	)
	return err
}

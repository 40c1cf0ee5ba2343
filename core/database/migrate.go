package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/pdfbot/core/logger"
)

const (
	readyTimeout   = 30 * time.Second
	previewLimit   = 6
	upMigrationExt = ".up.sql"
)

// RunMigrations applies all up migrations found in src. A non-empty
// cfg.MigrationsDir replaces src with that directory on disk.
func RunMigrations(cfg Config, src fs.FS) error {
	ctx := context.Background()
	if cfg.MigrationsDir != "" {
		src = os.DirFS(cfg.MigrationsDir)
	}
	if src == nil {
		return errors.New("database: no migrations source")
	}

	if err := waitReady(ctx, cfg.DSN(), readyTimeout); err != nil {
		logger.Error(ctx, "db.migrate", "db.migrate", slog.String("status", "fail"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	files, err := fs.Glob(src, "*"+upMigrationExt)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	logger.Debug(ctx, "db.migrate", "resolve", previewAttrs(files, slog.String("path", sourceName(cfg)))...)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("open migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URL())
	if err != nil {
		logger.Error(ctx, "db.migrate", "db.migrate", slog.String("status", "fail"), slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}
	toVer, _, _ := m.Version()

	applied := appliedBetween(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "apply", previewAttrs(applied)...)
	}
	logger.Info(ctx, "db.migrate", "summary",
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func sourceName(cfg Config) string {
	if cfg.MigrationsDir != "" {
		return cfg.MigrationsDir
	}
	return "embedded"
}

func previewAttrs(files []string, extra ...slog.Attr) []slog.Attr {
	attrs := append(extra, slog.Int("files_total", len(files)))
	preview, truncated := logger.SummarizeStrings(files, previewLimit)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

// migrationVersion reads the numeric prefix of "000001_name.up.sql".
func migrationVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns the files with from < version <= to.
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := migrationVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}

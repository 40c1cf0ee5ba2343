// Package interaction implements the conversation rules of the bot: what
// each command, photo and keyboard press does to a user's session and what
// the user is told in return. It is transport agnostic; the Telegram
// adapter translates updates into calls on Controller.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/m3rciful/pdfbot/bot/convert"
	"github.com/m3rciful/pdfbot/bot/files"
	"github.com/m3rciful/pdfbot/bot/session"
	"github.com/m3rciful/pdfbot/bot/stats"
	"github.com/m3rciful/pdfbot/core/logger"
)

// Deps bundles the collaborators of a Controller.
type Deps struct {
	Sessions *session.Registry
	Engine   *convert.Engine
	Stats    *stats.Repository
	Storage  *files.Storage
	// AdminID is the operator allowed to read global statistics; 0 disables it.
	AdminID int64
}

// Controller runs one user event at a time under the user's session lock.
type Controller struct {
	sessions *session.Registry
	engine   *convert.Engine
	stats    *stats.Repository
	storage  *files.Storage
	adminID  int64
}

// NewController builds a controller from its dependencies.
func NewController(d Deps) *Controller {
	return &Controller{
		sessions: d.Sessions,
		engine:   d.Engine,
		stats:    d.Stats,
		storage:  d.Storage,
		adminID:  d.AdminID,
	}
}

// Start registers the user in statistics and sends the welcome text.
func (c *Controller) Start(ctx context.Context, ev Event, r Responder) error {
	defer c.sessions.Lock(ev.UserID)()

	key := stats.UserKey(ev.UserID)
	err := c.stats.Update(ctx, func(s *stats.Store) error {
		s.EnsureUser(key)
		return nil
	})
	if err != nil {
		return c.fail(ctx, ev, r, err)
	}
	return r.SendText(ctx, ev.ChatID, msgWelcome)
}

// Photo stores a new image. fetch writes the image to the path it is given.
func (c *Controller) Photo(ctx context.Context, ev Event, fetch func(path string) error, r Responder) error {
	defer c.sessions.Lock(ev.UserID)()

	path, err := c.storage.NewImagePath(ev.UserID)
	if err == nil {
		err = fetch(path)
	}
	if err != nil {
		logger.Warn(ctx, "session", "session.image",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
		_ = r.SendText(ctx, ev.ChatID, msgDownloadFailure)
		return fmt.Errorf("store image: %w", err)
	}

	n := c.sessions.AddImage(ev.UserID, path)
	logger.Debug(ctx, "session", "session.image",
		slog.String("status", "ok"),
		slog.Int("images", n),
	)
	return r.SendText(ctx, ev.ChatID, fmt.Sprintf(msgImageReceived, n))
}

// Convert converts a single pending image directly or offers the menu when
// there are several.
func (c *Controller) Convert(ctx context.Context, ev Event, r Responder) error {
	defer c.sessions.Lock(ev.UserID)()

	images := c.sessions.Images(ev.UserID)
	switch len(images) {
	case 0:
		c.sessions.ConsumeChoice(ev.UserID)
		return r.SendText(ctx, ev.ChatID, msgNoImagesYet)
	case 1:
		c.sessions.ConsumeChoice(ev.UserID)
		return c.deliver(ctx, ev, images, r)
	default:
		return c.prompt(ctx, ev, r, session.ChoiceMenu, msgMenu, menuOptions())
	}
}

// Callback handles a keyboard press. A press is honored only while the
// keyboard it belongs to is the outstanding one; it then acts on the images
// pending now.
func (c *Controller) Callback(ctx context.Context, ev Event, kind Kind, index int, r Responder) error {
	defer c.sessions.Lock(ev.UserID)()

	prev := c.sessions.ConsumeChoice(ev.UserID)
	images := c.sessions.Images(ev.UserID)
	logger.Debug(ctx, "session", "session.callback",
		slog.String("kind", kind.String()),
		slog.String("choice", prev.String()),
		slog.Int("images", len(images)),
	)

	switch {
	case len(images) == 0 && kind == KindClear:
		return r.SendText(ctx, ev.ChatID, msgAlreadyCleared)
	case len(images) == 0:
		return c.fail(ctx, ev, r, ErrStaleSelection)
	case prev != kind.answers():
		return c.fail(ctx, ev, r, fmt.Errorf("%s pressed while %s: %w", kind, prev, ErrChoiceExpired))
	}

	switch kind {
	case KindSpecific:
		if len(images) > MaxImageButtons {
			return r.SendText(ctx, ev.ChatID, fmt.Sprintf(msgTooManyToPick, len(images), MaxImageButtons))
		}
		options := lo.Map(images, func(_ string, i int) Option {
			return Option{
				Label:   fmt.Sprintf(labelImage, i+1),
				Unique:  UniqueImage,
				Payload: strconv.Itoa(i),
			}
		})
		return c.prompt(ctx, ev, r, session.ChoiceImageIndex, msgPickImage, options)
	case KindAll:
		return c.deliver(ctx, ev, images, r)
	case KindImage:
		if index < 0 || index >= len(images) {
			return c.fail(ctx, ev, r, fmt.Errorf("image %d of %d: %w", index+1, len(images), ErrStaleSelection))
		}
		return c.deliver(ctx, ev, images[index:index+1], r)
	case KindClear:
		if err := c.clear(ctx, ev); err != nil {
			return c.fail(ctx, ev, r, err)
		}
		return r.SendText(ctx, ev.ChatID, msgCleared)
	default:
		return fmt.Errorf("%w: kind %d", ErrUnknownCallback, kind)
	}
}

// prompt sends a keyboard and records it as the outstanding choice once it
// was delivered.
func (c *Controller) prompt(ctx context.Context, ev Event, r Responder, choice session.Choice, text string, options []Option) error {
	if err := r.SendKeyboard(ctx, ev.ChatID, text, options); err != nil {
		return err
	}
	c.sessions.SetChoice(ev.UserID, choice)
	return nil
}

// Clear drops pending images and files and resets the user's statistics.
func (c *Controller) Clear(ctx context.Context, ev Event, r Responder) error {
	defer c.sessions.Lock(ev.UserID)()

	if err := c.clear(ctx, ev); err != nil {
		return c.fail(ctx, ev, r, err)
	}
	return r.SendText(ctx, ev.ChatID, msgCleared)
}

// Usage reports the user's own statistics.
func (c *Controller) Usage(ctx context.Context, ev Event, r Responder) error {
	defer c.sessions.Lock(ev.UserID)()

	s, err := c.stats.Snapshot(ctx)
	if err != nil {
		return c.fail(ctx, ev, r, err)
	}
	u, ok := s.User(stats.UserKey(ev.UserID))
	if !ok {
		return r.SendText(ctx, ev.ChatID, msgNoUsage)
	}
	return r.SendText(ctx, ev.ChatID, fmt.Sprintf(msgUsage, u.Conversions, u.Images))
}

// AdminStats reports totals and the top users to the operator. Requests
// from anyone else are ignored without a reply.
func (c *Controller) AdminStats(ctx context.Context, ev Event, r Responder) error {
	if c.adminID == 0 || ev.UserID != c.adminID {
		return ErrNotPrivileged
	}
	s, err := c.stats.Snapshot(ctx)
	if err != nil {
		return c.fail(ctx, ev, r, err)
	}
	return r.SendText(ctx, ev.ChatID, FormatAdminStats(s, TopUsersLimit))
}

// FormatAdminStats renders the operator report for s.
func FormatAdminStats(s *stats.Store, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgAdminStatsHeader, s.UserCount(), s.TotalConversions(), s.TotalImages())
	for i, e := range s.TopUsers(limit) {
		fmt.Fprintf(&b, msgAdminStatsLine, i+1, e.ID, e.Conversions, e.Images)
	}
	return b.String()
}

func (c *Controller) clear(ctx context.Context, ev Event) error {
	removed := c.sessions.Clear(ev.UserID)
	if _, err := c.storage.DeleteUserFiles(ctx, ev.UserID); err != nil {
		logger.Warn(ctx, "files", "files.clear",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
	}

	key := stats.UserKey(ev.UserID)
	err := c.stats.Update(ctx, func(s *stats.Store) error {
		s.ResetUser(key)
		return nil
	})
	logger.Info(ctx, "session", "session.clear",
		slog.String("status", logger.Status(err)),
		slog.Int("images", removed),
	)
	return err
}

func (c *Controller) deliver(ctx context.Context, ev Event, images []string, r Responder) error {
	doc, err := c.engine.Convert(ctx, ev.UserID, images)
	if err != nil {
		return c.fail(ctx, ev, r, err)
	}
	return r.SendDocument(ctx, ev.ChatID, doc.Path, doc.Name)
}

// fail resets the outstanding choice, sends the single reply that matches
// err and returns err for the handler summary log.
func (c *Controller) fail(ctx context.Context, ev Event, r Responder, err error) error {
	c.sessions.ConsumeChoice(ev.UserID)

	var encErr *convert.EncodingError
	text := msgStorageFailure
	switch {
	case errors.Is(err, ErrChoiceExpired):
		text = msgChoiceExpired
	case errors.Is(err, convert.ErrEmptyInput):
		text = msgNoImagesFound
	case errors.As(err, &encErr):
		text = msgEncodingFailure
	case errors.Is(err, stats.ErrStorageRead), errors.Is(err, stats.ErrStorageWrite):
		text = msgStorageFailure
	}
	if sendErr := r.SendText(ctx, ev.ChatID, text); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

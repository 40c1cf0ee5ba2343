// Package handlers adapts Telegram updates to the interaction controller.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/pdfbot/bot/interaction"
	"github.com/m3rciful/pdfbot/core/logger"
	tg "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/callbacks"
	"github.com/m3rciful/pdfbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/pdfbot/core/telegram/helpers"
	"github.com/m3rciful/pdfbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

const (
	msgSendAsPhoto     = "Please send images as photos, not as files."
	msgUnknownText     = "Send me images, then use /convert to create a PDF."
	msgUnknownCallback = "This button is no longer available."
)

// Handlers binds bot commands, callbacks and photos to a Controller.
type Handlers struct {
	ctrl *interaction.Controller
}

var _ ui.FallbackProvider = (*Handlers)(nil)

// New returns handlers for ctrl.
func New(ctrl *interaction.Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// Register adds the bot's commands and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.start,
		Description: "Show help",
	})
	reg.RegisterCommand("/convert", commands.Command{
		Handler:     h.convert,
		Description: "Create PDF from your images",
	})
	reg.RegisterCommand("/clear", commands.Command{
		Handler:     h.clear,
		Description: "Reset your images",
	})
	reg.RegisterCommand("/usage", commands.Command{
		Handler:     h.usage,
		Description: "View your usage statistics",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     h.adminStats,
		Description: "Bot statistics",
		AdminOnly:   true,
		Hidden:      true,
	})

	for _, unique := range []string{
		interaction.UniqueSpecific,
		interaction.UniqueAll,
		interaction.UniqueClear,
		interaction.UniqueImage,
	} {
		if err := reg.RegisterCallback(unique, h.callback); err != nil {
			return fmt.Errorf("register callback %s: %w", unique, err)
		}
	}
	return nil
}

func event(c tele.Context) interaction.Event {
	var ev interaction.Event
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		ev.UserID = user.ID
	}
	return ev
}

func (h *Handlers) start(c tele.Context) error {
	return h.ctrl.Start(tghelpers.BuildContext(c), event(c), teleResponder{c: c})
}

func (h *Handlers) convert(c tele.Context) error {
	return h.ctrl.Convert(tghelpers.BuildContext(c), event(c), teleResponder{c: c})
}

func (h *Handlers) clear(c tele.Context) error {
	return h.ctrl.Clear(tghelpers.BuildContext(c), event(c), teleResponder{c: c})
}

func (h *Handlers) usage(c tele.Context) error {
	return h.ctrl.Usage(tghelpers.BuildContext(c), event(c), teleResponder{c: c})
}

func (h *Handlers) adminStats(c tele.Context) error {
	err := h.ctrl.AdminStats(tghelpers.BuildContext(c), event(c), teleResponder{c: c})
	if errors.Is(err, interaction.ErrNotPrivileged) {
		return nil
	}
	return err
}

// Photo stores the largest size of an incoming photo.
func (h *Handlers) Photo(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	photo := msg.Photo
	fetch := func(path string) error {
		return c.Bot().Download(&photo.File, path)
	}
	return h.ctrl.Photo(tghelpers.BuildContext(c), event(c), fetch, teleResponder{c: c})
}

func (h *Handlers) callback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if err := c.Delete(); err != nil {
		logger.Debug(ctx, "tg", "callback.delete",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
	}

	kind, index, err := interaction.ParseCallback(callbacks.CallbackKey(c), callbacks.CallbackPayload(c))
	if err != nil {
		return err
	}
	return h.ctrl.Callback(ctx, event(c), kind, index, teleResponder{c: c})
}

// UnknownText answers free text that is not a command.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgUnknownText)
	}
}

// UnknownDocument answers images sent as files.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgSendAsPhoto)
	}
}

// UnknownCallback answers presses on keyboards this bot no longer serves.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgUnknownCallback)
	}
}

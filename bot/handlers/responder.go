package handlers

import (
	"context"

	"github.com/samber/lo"

	"github.com/m3rciful/pdfbot/bot/interaction"
	tghelpers "github.com/m3rciful/pdfbot/core/telegram/helpers"
	"github.com/m3rciful/pdfbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// teleResponder replies through the update's context, so chatID is always
// the chat the update came from.
type teleResponder struct {
	c tele.Context
}

var _ interaction.Responder = teleResponder{}

func (r teleResponder) SendText(_ context.Context, _ int64, text string) error {
	return tghelpers.SendText(r.c, text)
}

// SendDocument blocks until the upload finished so a failed delivery keeps
// the session intact.
func (r teleResponder) SendDocument(_ context.Context, _ int64, path, name string) error {
	return tghelpers.SendDocument(r.c, &tele.Document{File: tele.FromDisk(path), FileName: name})
}

func (r teleResponder) SendKeyboard(_ context.Context, _ int64, text string, options []interaction.Option) error {
	buttons := lo.Map(options, func(o interaction.Option, _ int) keyboard.Button {
		return keyboard.Button{Text: o.Label, Unique: o.Unique, Data: o.Payload}
	})
	markup := keyboard.Inline(buttons, keyboard.Columns(len(buttons), 4, 3))
	return tghelpers.SendText(r.c, text, &tele.SendOptions{ReplyMarkup: markup})
}

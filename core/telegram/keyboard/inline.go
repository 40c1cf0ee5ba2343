// Package keyboard builds inline reply markup from plain button values.
package keyboard

import (
	"github.com/samber/lo"

	tele "gopkg.in/telebot.v4"
)

// Button is one inline callback button. Unique routes the callback, Data is
// its payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Inline lays buttons out left to right with at most perRow per row.
// perRow below one puts every button on its own row.
func Inline(buttons []Button, perRow int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = lo.Map(lo.Chunk(buttons, max(perRow, 1)), func(row []Button, _ int) []tele.InlineButton {
		return lo.Map(row, func(b Button, _ int) tele.InlineButton {
			return *markup.Data(b.Text, b.Unique, b.Data).Inline()
		})
	})
	return markup
}

// Columns picks a row width for n buttons: short lists stay one per row,
// longer ones wrap at width.
func Columns(n, short, width int) int {
	if n <= short {
		return 1
	}
	return width
}

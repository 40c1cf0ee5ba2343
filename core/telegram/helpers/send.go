package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the sender used by SendText and SendDocument; nil
// makes them send directly.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// SendText queues a plain text reply (no parse mode) to the current chat.
// With no dispatcher, or when its queue rejects the job, it sends inline.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	run := func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	}

	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, "send.text", "sendMessage", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", "send.text"),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendDocument uploads a document to the current recipient. Uploads are not
// queued: the caller learns whether delivery succeeded, with transient
// failures retried by the dispatcher when one is wired.
func SendDocument(c tele.Context, doc *tele.Document) error {
	run := func() error { return c.Send(doc) }
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	return d.Do(BuildContext(c), "send.document", "sendDocument", run)
}

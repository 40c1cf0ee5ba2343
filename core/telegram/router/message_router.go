package router

import (
	tg "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/middleware"
	"github.com/m3rciful/pdfbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// orSkip runs h as name, or only logs a skip when h is nil.
func orSkip(c tele.Context, name string, h tele.HandlerFunc) error {
	if h == nil {
		skip(c, name)
		return nil
	}
	return handle(c, name, h)
}

// TextRoutes builds handlers for text and document routing.
// Text naming a registered command in another spelling is dispatched to it.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handle(c, handlerName(key), cmd.Handler)
			}
		}
		return orSkip(c, "unknown_text", opts.UnknownText)
	}
	document := func(c tele.Context) error {
		return orSkip(c, "unexpected_document", opts.UnknownDocument)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(document)},
	}
}

// PhotoRoute wraps a photo handler with the shared middleware and summary log.
func PhotoRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnPhoto,
		Handler: wrap(func(c tele.Context) error {
			return handle(c, "photo", h)
		}),
	}
}

// FallbackRoutes installs fb's callback fallback on reg and returns the text
// and document routes answered by fb.
func FallbackRoutes(reg *tg.Registry, fb ui.FallbackProvider) []tg.Route {
	if reg != nil {
		reg.SetCallbackNotFound(fb.UnknownCallback())
	}
	return TextRoutes(reg, TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})
}

// Package ui declares what a bot supplies for updates nothing else handles.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider answers text that names no command, documents the bot
// does not accept and callbacks whose button is no longer known.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

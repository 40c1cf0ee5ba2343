package interaction

import "context"

// Event identifies who triggered an interaction and where replies go.
type Event struct {
	ChatID int64
	UserID int64
}

// Option is one inline keyboard button.
type Option struct {
	Label   string
	Unique  string
	Payload string
}

// Responder delivers replies back to the user.
type Responder interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, path, name string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, options []Option) error
}

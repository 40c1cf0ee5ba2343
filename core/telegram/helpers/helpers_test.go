package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pdfbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func newContext() tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: 12,
		Message: &tele.Message{
			Sender: &tele.User{ID: 34},
			Chat:   &tele.Chat{ID: 56},
		},
	})
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := newContext()

	ctx := BuildContext(c)

	assert.Equal(t, "12:56:34", logger.RIDFrom(ctx))
	assert.Equal(t, 12, logger.UpdateIDFrom(ctx))
	assert.Equal(t, int64(34), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(56), logger.ChatIDFrom(ctx))

	cached, ok := ContextFrom(c)
	require.True(t, ok)
	assert.Equal(t, ctx, cached)
}

func TestWithHandlerUpdatesStoredContext(t *testing.T) {
	c := newContext()

	WithHandler(c, "convert")

	assert.Equal(t, "convert", logger.HandlerFrom(BuildContext(c)))
}

func TestBuildContextPrefersStoredRID(t *testing.T) {
	c := newContext()
	c.Set("rid", "custom-rid")

	assert.Equal(t, "custom-rid", logger.RIDFrom(BuildContext(c)))
}

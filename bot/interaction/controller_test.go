package interaction

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pdfbot/bot/convert"
	"github.com/m3rciful/pdfbot/bot/files"
	"github.com/m3rciful/pdfbot/bot/session"
	"github.com/m3rciful/pdfbot/bot/stats"
)

type reply struct {
	kind    string
	text    string
	path    string
	options []Option
}

type fakeResponder struct {
	replies []reply
}

func (f *fakeResponder) SendText(_ context.Context, _ int64, text string) error {
	f.replies = append(f.replies, reply{kind: "text", text: text})
	return nil
}

func (f *fakeResponder) SendDocument(_ context.Context, _ int64, path, _ string) error {
	f.replies = append(f.replies, reply{kind: "document", path: path})
	return nil
}

func (f *fakeResponder) SendKeyboard(_ context.Context, _ int64, text string, options []Option) error {
	f.replies = append(f.replies, reply{kind: "keyboard", text: text, options: options})
	return nil
}

func (f *fakeResponder) last(t *testing.T) reply {
	t.Helper()
	require.NotEmpty(t, f.replies)
	return f.replies[len(f.replies)-1]
}

// listEncoder writes the base names of its inputs so tests can see which
// images ended up in the document and in which order.
type listEncoder struct{ err error }

func (e listEncoder) Encode(_ context.Context, images []string, w io.Writer) error {
	if e.err != nil {
		return e.err
	}
	names := make([]string, len(images))
	for i, p := range images {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		names[i] = string(b)
	}
	_, err := io.WriteString(w, strings.Join(names, ","))
	return err
}

type harness struct {
	ctrl      *Controller
	sessions  *session.Registry
	repo      *stats.Repository
	storage   *files.Storage
	resp      *fakeResponder
	statsPath string
}

const (
	testUser  int64 = 100
	testAdmin int64 = 1
)

func newHarness(t *testing.T, enc convert.Encoder) *harness {
	t.Helper()
	dir := t.TempDir()
	storage := files.NewStorage(filepath.Join(dir, "user_data"))
	statsPath := filepath.Join(dir, "data", "user_database.json")
	repo := stats.NewRepository(stats.NewFileBackend(
		statsPath,
		filepath.Join(dir, "user_data", "users.json"),
	))
	sessions := session.NewRegistry()
	ctrl := NewController(Deps{
		Sessions: sessions,
		Engine:   convert.NewEngine(enc, storage, repo),
		Stats:    repo,
		Storage:  storage,
		AdminID:  testAdmin,
	})
	return &harness{ctrl: ctrl, sessions: sessions, repo: repo, storage: storage, resp: &fakeResponder{}, statsPath: statsPath}
}

func (h *harness) event(user int64) Event { return Event{ChatID: user, UserID: user} }

func (h *harness) sendPhotos(t *testing.T, user int64, names ...string) {
	t.Helper()
	for _, name := range names {
		name := name
		err := h.ctrl.Photo(context.Background(), h.event(user), func(path string) error {
			return os.WriteFile(path, []byte(name), 0o644)
		}, h.resp)
		require.NoError(t, err)
	}
}

func (h *harness) documentBody(t *testing.T, r reply) string {
	t.Helper()
	require.Equal(t, "document", r.kind)
	b, err := os.ReadFile(r.path)
	require.NoError(t, err)
	return string(b)
}

func (h *harness) userStats(t *testing.T, user int64) (stats.UserStats, bool) {
	t.Helper()
	s, err := h.repo.Snapshot(context.Background())
	require.NoError(t, err)
	return s.User(stats.UserKey(user))
}

func TestPhotoRepliesRunningCount(t *testing.T) {
	h := newHarness(t, listEncoder{})

	h.sendPhotos(t, testUser, "a", "b")
	assert.Equal(t, "Image received! You have 2 images. Send more or use /convert to create a PDF.", h.resp.last(t).text)
	assert.Equal(t, 2, h.sessions.Pending(testUser))
}

func TestPhotoDownloadFailure(t *testing.T) {
	h := newHarness(t, listEncoder{})

	err := h.ctrl.Photo(context.Background(), h.event(testUser), func(string) error {
		return errors.New("telegram timeout")
	}, h.resp)
	require.Error(t, err)
	assert.Zero(t, h.sessions.Pending(testUser))
	assert.Equal(t, msgDownloadFailure, h.resp.last(t).text)
}

func TestConvertWithoutImages(t *testing.T) {
	h := newHarness(t, listEncoder{})

	require.NoError(t, h.ctrl.Convert(context.Background(), h.event(testUser), h.resp))
	assert.Equal(t, msgNoImagesYet, h.resp.last(t).text)
}

func TestConvertSingleImageDeliversDirectly(t *testing.T) {
	h := newHarness(t, listEncoder{})
	h.sendPhotos(t, testUser, "only")

	require.NoError(t, h.ctrl.Convert(context.Background(), h.event(testUser), h.resp))
	assert.Equal(t, "only", h.documentBody(t, h.resp.last(t)))
	assert.Equal(t, 1, h.sessions.Pending(testUser), "images are retained after conversion")

	u, ok := h.userStats(t, testUser)
	require.True(t, ok)
	assert.Equal(t, stats.UserStats{Conversions: 1, Images: 1}, u)
}

func TestConvertAllImages(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a", "b", "c")

	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	menu := h.resp.last(t)
	require.Equal(t, "keyboard", menu.kind)
	assert.Equal(t, msgMenu, menu.text)
	assert.Equal(t, []string{UniqueSpecific, UniqueAll, UniqueClear}, uniques(menu.options))
	assert.Equal(t, session.ChoiceMenu, h.sessions.Choice(testUser))

	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindAll, 0, h.resp))
	assert.Equal(t, "a,b,c", h.documentBody(t, h.resp.last(t)))
	assert.Equal(t, session.ChoiceNone, h.sessions.Choice(testUser))

	u, _ := h.userStats(t, testUser)
	assert.Equal(t, stats.UserStats{Conversions: 1, Images: 3}, u)
}

func TestConvertSpecificImage(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a", "b", "c")

	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindSpecific, 0, h.resp))

	picker := h.resp.last(t)
	require.Equal(t, "keyboard", picker.kind)
	assert.Equal(t, msgPickImage, picker.text)
	require.Len(t, picker.options, 3)
	assert.Equal(t, Option{Label: "Image 3", Unique: UniqueImage, Payload: "2"}, picker.options[2])
	assert.Equal(t, session.ChoiceImageIndex, h.sessions.Choice(testUser))

	kind, idx, err := ParseCallback(picker.options[2].Unique, picker.options[2].Payload)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), kind, idx, h.resp))
	assert.Equal(t, "c", h.documentBody(t, h.resp.last(t)))

	u, _ := h.userStats(t, testUser)
	assert.Equal(t, stats.UserStats{Conversions: 1, Images: 1}, u)
}

func TestStaleImageIndex(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a", "b")
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindSpecific, 0, h.resp))

	err := h.ctrl.Callback(ctx, h.event(testUser), KindImage, 5, h.resp)
	assert.ErrorIs(t, err, ErrStaleSelection)
	assert.ErrorIs(t, err, convert.ErrEmptyInput)
	assert.Equal(t, msgNoImagesFound, h.resp.last(t).text)
	assert.Equal(t, 2, h.sessions.Pending(testUser))
	assert.Equal(t, session.ChoiceNone, h.sessions.Choice(testUser))
}

func TestCallbackWithoutImages(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx, h.event(testUser), h.resp))
	h.sendPhotos(t, testUser, "a")
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	h.sessions.Clear(testUser)

	err := h.ctrl.Callback(ctx, h.event(testUser), KindAll, 0, h.resp)
	assert.ErrorIs(t, err, ErrStaleSelection)
	assert.Equal(t, msgNoImagesFound, h.resp.last(t).text)

	before, err := os.ReadFile(h.statsPath)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindClear, 0, h.resp))
	assert.Equal(t, msgAlreadyCleared, h.resp.last(t).text)

	after, err := os.ReadFile(h.statsPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "already cleared press must not touch stats")
	u, ok := h.userStats(t, testUser)
	require.True(t, ok)
	assert.Equal(t, stats.UserStats{Conversions: 1, Images: 1}, u)
}

func TestCallbackOutsideItsChoiceExpires(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a", "b")

	err := h.ctrl.Callback(ctx, h.event(testUser), KindAll, 0, h.resp)
	assert.ErrorIs(t, err, ErrChoiceExpired)
	assert.Equal(t, msgChoiceExpired, h.resp.last(t).text)

	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	err = h.ctrl.Callback(ctx, h.event(testUser), KindImage, 0, h.resp)
	assert.ErrorIs(t, err, ErrChoiceExpired, "picker press while the menu is outstanding")

	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindSpecific, 0, h.resp))
	err = h.ctrl.Callback(ctx, h.event(testUser), KindAll, 0, h.resp)
	assert.ErrorIs(t, err, ErrChoiceExpired, "menu press while the picker is outstanding")

	assert.Equal(t, 2, h.sessions.Pending(testUser))
	assert.Equal(t, session.ChoiceNone, h.sessions.Choice(testUser))
	_, ok := h.userStats(t, testUser)
	assert.False(t, ok, "nothing was converted")
}

func TestSpecificWithTooManyImages(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	for i := 0; i <= MaxImageButtons; i++ {
		h.sessions.AddImage(testUser, "img.jpg")
	}
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))

	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindSpecific, 0, h.resp))
	last := h.resp.last(t)
	assert.Equal(t, "text", last.kind)
	assert.Contains(t, last.text, "101 images")
	assert.Equal(t, session.ChoiceNone, h.sessions.Choice(testUser))
}

func TestKeyboardSendFailureLeavesNoChoice(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a", "b")

	err := h.ctrl.Convert(ctx, h.event(testUser), failingKeyboard{h.resp})
	require.Error(t, err)
	assert.Equal(t, session.ChoiceNone, h.sessions.Choice(testUser))
}

type failingKeyboard struct{ *fakeResponder }

func (failingKeyboard) SendKeyboard(context.Context, int64, string, []Option) error {
	return errors.New("Bad Request: too many buttons")
}

func TestStorageFailureRepliesTryAgain(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a")
	require.NoError(t, os.MkdirAll(h.statsPath, 0o755))

	err := h.ctrl.Usage(ctx, h.event(testUser), h.resp)
	assert.ErrorIs(t, err, stats.ErrStorageRead)
	assert.Equal(t, "Something went wrong with your data. Please try again.", h.resp.last(t).text)

	before := len(h.resp.replies)
	err = h.ctrl.Clear(ctx, h.event(testUser), h.resp)
	assert.ErrorIs(t, err, stats.ErrStorageRead)
	assert.Len(t, h.resp.replies, before+1, "exactly one reply")
	assert.Equal(t, msgStorageFailure, h.resp.last(t).text)

	err = h.ctrl.Start(ctx, h.event(testUser), h.resp)
	assert.ErrorIs(t, err, stats.ErrStorageRead)
	assert.Equal(t, msgStorageFailure, h.resp.last(t).text)
}

func TestClearThenConvert(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a")
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))

	require.NoError(t, h.ctrl.Clear(ctx, h.event(testUser), h.resp))
	assert.Equal(t, msgCleared, h.resp.last(t).text)

	entries, err := os.ReadDir(h.storage.UserDir(testUser))
	require.NoError(t, err)
	assert.Empty(t, entries)

	u, ok := h.userStats(t, testUser)
	require.True(t, ok)
	assert.Equal(t, stats.UserStats{}, u)

	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))
	assert.Equal(t, msgNoImagesYet, h.resp.last(t).text)
}

func TestClearCallbackFromMenu(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a", "b")
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))

	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindAll, 0, h.resp))
	u, _ := h.userStats(t, testUser)
	require.Equal(t, stats.UserStats{Conversions: 1, Images: 2}, u)
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))

	require.NoError(t, h.ctrl.Callback(ctx, h.event(testUser), KindClear, 0, h.resp))
	assert.Equal(t, msgCleared, h.resp.last(t).text)
	assert.Zero(t, h.sessions.Pending(testUser))
	assert.Equal(t, session.ChoiceNone, h.sessions.Choice(testUser))

	entries, err := os.ReadDir(h.storage.UserDir(testUser))
	require.NoError(t, err)
	assert.Empty(t, entries, "images and output.pdf are deleted")

	u, ok := h.userStats(t, testUser)
	require.True(t, ok)
	assert.Equal(t, stats.UserStats{}, u)
}

func TestEncodingFailureKeepsSession(t *testing.T) {
	h := newHarness(t, listEncoder{err: errors.New("corrupt")})
	ctx := context.Background()
	h.sendPhotos(t, testUser, "a")

	err := h.ctrl.Convert(ctx, h.event(testUser), h.resp)
	var encErr *convert.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, msgEncodingFailure, h.resp.last(t).text)
	assert.Equal(t, 1, h.sessions.Pending(testUser))
}

func TestStartAndUsage(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()

	require.NoError(t, h.ctrl.Usage(ctx, h.event(testUser), h.resp))
	assert.Equal(t, msgNoUsage, h.resp.last(t).text)

	require.NoError(t, h.ctrl.Start(ctx, h.event(testUser), h.resp))
	assert.Equal(t, msgWelcome, h.resp.last(t).text)

	h.sendPhotos(t, testUser, "a")
	require.NoError(t, h.ctrl.Convert(ctx, h.event(testUser), h.resp))

	require.NoError(t, h.ctrl.Usage(ctx, h.event(testUser), h.resp))
	assert.Equal(t, "📊 Your Usage Stats:\n\nPDFs Created: 1\nImages Processed: 1\n\nThank you for using the bot!", h.resp.last(t).text)
}

func TestAdminStats(t *testing.T) {
	h := newHarness(t, listEncoder{})
	ctx := context.Background()

	for _, u := range []int64{10, 20, 30} {
		require.NoError(t, h.ctrl.Start(ctx, h.event(u), h.resp))
	}
	h.sendPhotos(t, 20, "x", "y")
	for i := 0; i < 2; i++ {
		require.NoError(t, h.ctrl.Convert(ctx, h.event(20), h.resp))
		require.NoError(t, h.ctrl.Callback(ctx, h.event(20), KindAll, 0, h.resp))
	}
	h.sendPhotos(t, 30, "z")
	require.NoError(t, h.ctrl.Convert(ctx, h.event(30), h.resp))

	before := len(h.resp.replies)
	err := h.ctrl.AdminStats(ctx, h.event(testUser), h.resp)
	assert.ErrorIs(t, err, ErrNotPrivileged)
	assert.Len(t, h.resp.replies, before, "non-operator gets no reply")

	require.NoError(t, h.ctrl.AdminStats(ctx, h.event(testAdmin), h.resp))
	want := "📊 Bot Statistics:\n\n" +
		"Total Users: 3\n" +
		"Total PDFs Generated: 3\n" +
		"Total Images Processed: 5\n\n" +
		"Top Users:\n" +
		"1. User 20: 2 PDFs, 4 images\n" +
		"2. User 30: 1 PDFs, 1 images\n" +
		"3. User 10: 0 PDFs, 0 images\n"
	assert.Equal(t, want, h.resp.last(t).text)
}

func TestParseCallback(t *testing.T) {
	kind, idx, err := ParseCallback(UniqueImage, "4")
	require.NoError(t, err)
	assert.Equal(t, KindImage, kind)
	assert.Equal(t, 4, idx)

	kind, _, err = ParseCallback(UniqueClear, "")
	require.NoError(t, err)
	assert.Equal(t, KindClear, kind)

	_, _, err = ParseCallback(UniqueImage, "-1")
	assert.ErrorIs(t, err, ErrUnknownCallback)
	_, _, err = ParseCallback("noop", "")
	assert.ErrorIs(t, err, ErrUnknownCallback)
}

func uniques(options []Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Unique
	}
	return out
}

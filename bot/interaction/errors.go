package interaction

import (
	"errors"

	"github.com/m3rciful/pdfbot/bot/convert"
)

var (
	// ErrStaleSelection is returned when a callback refers to images that are
	// no longer pending. It matches convert.ErrEmptyInput.
	ErrStaleSelection = staleError{}
	// ErrNotPrivileged is returned when a non-operator asks for admin stats.
	ErrNotPrivileged = errors.New("interaction: not privileged")
	// ErrChoiceExpired is returned for a press on a keyboard that is no
	// longer the outstanding one.
	ErrChoiceExpired = codedError{msg: "interaction: choice expired", code: "choice_expired"}
	// ErrUnknownCallback is returned for callback data this bot never produced.
	ErrUnknownCallback = errors.New("interaction: unknown callback")
)

type staleError struct{}

func (staleError) Error() string { return "interaction: stale selection" }

func (staleError) Is(target error) bool { return target == convert.ErrEmptyInput }

func (staleError) Code() string { return "stale_selection" }

type codedError struct{ msg, code string }

func (e codedError) Error() string { return e.msg }

func (e codedError) Code() string { return e.code }

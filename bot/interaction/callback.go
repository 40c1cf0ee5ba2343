package interaction

import (
	"fmt"
	"strconv"

	"github.com/m3rciful/pdfbot/bot/session"
)

// Callback uniques carried in telebot's \f<unique>|<payload> data.
const (
	UniqueSpecific = "specific_image"
	UniqueAll      = "all_images"
	UniqueClear    = "clear"
	UniqueImage    = "convert_image"
)

// Kind is the decoded meaning of a callback.
type Kind int

const (
	KindSpecific Kind = iota + 1
	KindAll
	KindClear
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindSpecific:
		return UniqueSpecific
	case KindAll:
		return UniqueAll
	case KindClear:
		return UniqueClear
	case KindImage:
		return UniqueImage
	default:
		return "unknown"
	}
}

// ParseCallback maps a callback unique and payload to a kind and, for
// KindImage, the 0-based image index.
func ParseCallback(unique, payload string) (Kind, int, error) {
	switch unique {
	case UniqueSpecific:
		return KindSpecific, 0, nil
	case UniqueAll:
		return KindAll, 0, nil
	case UniqueClear:
		return KindClear, 0, nil
	case UniqueImage:
		idx, err := strconv.Atoi(payload)
		if err != nil || idx < 0 {
			return 0, 0, fmt.Errorf("%w: image index %q", ErrUnknownCallback, payload)
		}
		return KindImage, idx, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownCallback, unique)
	}
}

// answers is the outstanding choice a press of kind replies to.
func (k Kind) answers() session.Choice {
	if k == KindImage {
		return session.ChoiceImageIndex
	}
	return session.ChoiceMenu
}

func menuOptions() []Option {
	return []Option{
		{Label: labelSpecific, Unique: UniqueSpecific},
		{Label: labelAll, Unique: UniqueAll},
		{Label: labelClear, Unique: UniqueClear},
	}
}

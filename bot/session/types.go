package session

// Choice identifies which keyboard the user is expected to answer.
type Choice int

const (
	// ChoiceNone means no keyboard is outstanding.
	ChoiceNone Choice = iota
	// ChoiceMenu is the specific/all/clear menu shown for multi-image sessions.
	ChoiceMenu
	// ChoiceImageIndex is the per-image picker shown after "specific".
	ChoiceImageIndex
)

// String returns the log name of the choice.
func (c Choice) String() string {
	switch c {
	case ChoiceMenu:
		return "menu"
	case ChoiceImageIndex:
		return "image_index"
	default:
		return "none"
	}
}

// Session stores the pending images and outstanding choice for one user.
type Session struct {
	Images []string
	Choice Choice
}

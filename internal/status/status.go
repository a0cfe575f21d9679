// ABOUTME: Status enumeration and the fixed selector emoji table
// ABOUTME: Maps Modding/Break/Away to and from their reaction emoji

package status

// Status is a user's current availability. The zero value means unset.
type Status int

const (
	Modding Status = iota + 1
	Break
	Away
)

// Selector emoji attached to the roster message.
const (
	EmojiModding = "🟢"
	EmojiBreak   = "☕"
	EmojiAway    = "⛔"
)

// All lists every status in display order.
var All = []Status{Modding, Break, Away}

// String returns the status name, or "Unset" for the zero value.
func (s Status) String() string {
	switch s {
	case Modding:
		return "Modding"
	case Break:
		return "Break"
	case Away:
		return "Away"
	default:
		return "Unset"
	}
}

// Valid reports whether s is one of the three statuses.
func (s Status) Valid() bool {
	return s >= Modding && s <= Away
}

// Emoji returns the selector emoji for s, or "" for an invalid status.
func (s Status) Emoji() string {
	switch s {
	case Modding:
		return EmojiModding
	case Break:
		return EmojiBreak
	case Away:
		return EmojiAway
	default:
		return ""
	}
}

// FromEmoji maps a selector emoji to its status. Any other emoji is not a selector.
func FromEmoji(emoji string) (Status, bool) {
	switch emoji {
	case EmojiModding:
		return Modding, true
	case EmojiBreak:
		return Break, true
	case EmojiAway:
		return Away, true
	default:
		return 0, false
	}
}

// Selectors returns the selector emoji in attach order.
func Selectors() []string {
	return []string{EmojiModding, EmojiBreak, EmojiAway}
}

// IsSelector reports whether emoji is one of the three selector emoji.
func IsSelector(emoji string) bool {
	_, ok := FromEmoji(emoji)
	return ok
}

// ABOUTME: Renders topic and roster text from a status snapshot
// ABOUTME: Pure functions over snapshot + name resolver + clock; no platform I/O

package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2389/modclock/internal/status"
)

const (
	// DefaultLabel heads both the topic and the roster.
	DefaultLabel = "🕒 Mod List"

	// TopicLimit is the platform's channel topic length limit, in characters.
	TopicLimit = 1024

	topicEmpty  = "~"
	rosterEmpty = "—"
	separator   = "-------------------"
	stampLayout = "15:04 UTC"
	ellipsis    = "..."
)

// NameResolver returns a member's display name. ok is false when the member
// cannot be resolved, typically because they left the guild.
type NameResolver func(user status.UserID) (name string, ok bool)

// Renderer builds topic and roster text.
type Renderer struct {
	// Label is the board title.
	Label string

	// Now is the clock used for the "HH:MM UTC" stamp.
	Now func() time.Time

	// Mention renders an unresolved member in the roster.
	Mention func(user status.UserID) string
}

// New creates a Renderer with the wall clock and Discord-style mentions.
func New(label string) *Renderer {
	if label == "" {
		label = DefaultLabel
	}
	return &Renderer{
		Label:   label,
		Now:     time.Now,
		Mention: DiscordMention,
	}
}

// DiscordMention renders a user as a raw <@id> mention.
func DiscordMention(user status.UserID) string {
	return fmt.Sprintf("<@%s>", user)
}

// Topic renders the single-line topic summary, clipped to TopicLimit characters.
func (r *Renderer) Topic(entries []status.Entry, resolve NameResolver) string {
	groups := group(entries, resolve)

	text := fmt.Sprintf("%s • 🟢Modding: %s | ☕Break: %s | ⛔Away: %s • %s",
		r.Label,
		joinOr(groups[status.Modding], topicEmpty),
		joinOr(groups[status.Break], topicEmpty),
		joinOr(groups[status.Away], topicEmpty),
		r.stamp(),
	)
	return clip(text, TopicLimit)
}

// Roster renders the multi-line roster body. It is never clipped.
func (r *Renderer) Roster(entries []status.Entry, resolve NameResolver) string {
	mention := r.Mention
	if mention == nil {
		mention = DiscordMention
	}
	groups := group(entries, func(u status.UserID) (string, bool) {
		if name, ok := resolve(u); ok {
			return name, true
		}
		return mention(u), true
	})

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", r.Label)
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "🟢 Modding: %s\n", joinOr(groups[status.Modding], rosterEmpty))
	fmt.Fprintf(&b, "☕ Break: %s\n", joinOr(groups[status.Break], rosterEmpty))
	fmt.Fprintf(&b, "⛔ Away: %s\n", joinOr(groups[status.Away], rosterEmpty))
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "*Updated %s*", r.stamp())
	return b.String()
}

func (r *Renderer) stamp() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().UTC().Format(stampLayout)
}

// group buckets names by status, preserving snapshot order. Entries the
// naming func rejects are skipped.
func group(entries []status.Entry, name func(status.UserID) (string, bool)) map[status.Status][]string {
	out := make(map[status.Status][]string, len(status.All))
	for _, e := range entries {
		if !e.Status.Valid() {
			continue
		}
		n, ok := name(e.User)
		if !ok {
			continue
		}
		out[e.Status] = append(out[e.Status], n)
	}
	return out
}

func joinOr(names []string, empty string) string {
	if len(names) == 0 {
		return empty
	}
	return strings.Join(names, ", ")
}

// clip keeps s within limit characters, replacing the tail with "..." when it
// has to cut.
func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString(ellipsis)
	runes := []rune(s)
	return string(runes[:keep]) + ellipsis
}

package client

import (
	"errors"
	"strings"

	"github.com/candidhq/collab/backend/internal/directory"
	"github.com/candidhq/collab/backend/internal/mention"
)

// ErrEmptyDraft indicates a submit attempt with no content. Whitespace-only
// drafts count as empty; the rejection happens before any network call.
var ErrEmptyDraft = errors.New("client: draft is empty")

// Composer holds the note draft and the suggestion state derived from it.
// Parsing re-runs on every text change and cursor move because suggestion
// relevance depends on cursor position, not just content.
type Composer struct {
	cache       *directory.Cache
	limit       int
	text        string
	cursor      int
	active      bool
	activeTag   string
	suggestions []directory.User
	selected    int
}

// NewComposer constructs a composer over a session's directory cache.
func NewComposer(cache *directory.Cache, limit int) *Composer {
	if limit <= 0 {
		limit = mention.DefaultSuggestionLimit
	}
	return &Composer{cache: cache, limit: limit}
}

// SetText records a text change with the cursor position after the edit.
func (c *Composer) SetText(text string, cursor int) {
	c.text = text
	c.cursor = clampCursor(cursor, text)
	c.refresh()
}

// SetCursor records a cursor move without a text change.
func (c *Composer) SetCursor(cursor int) {
	c.cursor = clampCursor(cursor, c.text)
	c.refresh()
}

func (c *Composer) refresh() {
	active, ok := mention.Parse(c.text, c.cursor)
	if !ok {
		c.dismiss()
		return
	}
	c.active = true
	c.activeTag = active.Tag
	c.suggestions = mention.Suggest(active.Tag, c.cache.Snapshot(), c.cache.SelfID(), c.limit)
	if c.selected >= len(c.suggestions) {
		c.selected = 0
	}
}

func (c *Composer) dismiss() {
	c.active = false
	c.activeTag = ""
	c.suggestions = nil
	c.selected = 0
}

// Text returns the current draft.
func (c *Composer) Text() string {
	return c.text
}

// Cursor returns the current cursor offset.
func (c *Composer) Cursor() int {
	return c.cursor
}

// Suggesting reports whether an active, non-empty suggestion list is shown.
func (c *Composer) Suggesting() bool {
	return c.active && len(c.suggestions) > 0
}

// Suggestions returns the ranked candidate list for the active tag.
func (c *Composer) Suggestions() []directory.User {
	return c.suggestions
}

// Selected returns the highlighted suggestion index.
func (c *Composer) Selected() int {
	return c.selected
}

// MoveSelection shifts the highlight by delta, wrapping at both ends.
func (c *Composer) MoveSelection(delta int) {
	if !c.Suggesting() {
		return
	}
	count := len(c.suggestions)
	c.selected = ((c.selected+delta)%count + count) % count
}

// Confirm inserts the highlighted suggestion, replacing the run from the
// triggering '@' through the cursor with the display name and one space,
// and repositions the cursor after that space. It reports whether the
// keystroke was consumed, so Enter confirms instead of submitting the form.
func (c *Composer) Confirm() bool {
	if !c.Suggesting() {
		return false
	}
	return c.ConfirmUser(c.suggestions[c.selected])
}

// ConfirmUser applies a specific suggestion; mouse selection and keyboard
// confirmation share this insertion path.
func (c *Composer) ConfirmUser(user directory.User) bool {
	if !c.active {
		return false
	}
	text, cursor := mention.Insert(c.text, c.cursor, user.DisplayName)
	c.text = text
	c.cursor = cursor
	c.dismiss()
	return true
}

// Dismiss hides suggestions without mutating the draft (the Escape path).
func (c *Composer) Dismiss() {
	c.dismiss()
}

// Submit validates the draft and returns its trimmed content. Empty and
// whitespace-only drafts are rejected locally with ErrEmptyDraft.
func (c *Composer) Submit() (string, error) {
	trimmed := strings.TrimSpace(c.text)
	if trimmed == "" {
		return "", ErrEmptyDraft
	}
	return trimmed, nil
}

// Reset clears the draft after a successful submission.
func (c *Composer) Reset() {
	c.text = ""
	c.cursor = 0
	c.dismiss()
}

func clampCursor(cursor int, text string) int {
	if cursor < 0 {
		return 0
	}
	if cursor > len(text) {
		return len(text)
	}
	return cursor
}

package client

import (
	"context"
	"errors"
	"testing"

	"github.com/candidhq/collab/backend/internal/directory"
)

type fixedLister struct {
	users []directory.User
}

func (f fixedLister) ListMentionableUsers(ctx context.Context) ([]directory.User, error) {
	return f.users, nil
}

func newTestComposer(t *testing.T, selfID string) *Composer {
	t.Helper()
	cache := directory.NewCache(fixedLister{users: []directory.User{
		{ID: "u1", DisplayName: "Alice"},
		{ID: "u2", DisplayName: "Bob"},
		{ID: "u3", DisplayName: "Albert"},
	}}, selfID)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return NewComposer(cache, 0)
}

func TestComposerSuggestsWhileTyping(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("ping @al", 8)

	if !composer.Suggesting() {
		t.Fatal("expected active suggestions")
	}
	suggestions := composer.Suggestions()
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].DisplayName != "Alice" || suggestions[1].DisplayName != "Albert" {
		t.Fatalf("unexpected ranking %q %q", suggestions[0].DisplayName, suggestions[1].DisplayName)
	}
}

func TestComposerConfirmInsertsMentionAndMovesCursor(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("ping @al", 8)

	if !composer.Confirm() {
		t.Fatal("expected confirm to consume the keystroke")
	}
	if composer.Text() != "ping @Alice " {
		t.Fatalf("unexpected text %q", composer.Text())
	}
	if composer.Cursor() != len("ping @Alice ") {
		t.Fatalf("unexpected cursor %d", composer.Cursor())
	}
	if composer.Suggesting() {
		t.Fatal("suggestions must close after confirmation")
	}
}

func TestComposerConfirmWithoutSuggestionsNotConsumed(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("plain text", 10)

	if composer.Confirm() {
		t.Fatal("expected confirm to pass through without an active tag")
	}
}

func TestComposerSelectionWrapsBothWays(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("@al", 3)

	if composer.Selected() != 0 {
		t.Fatalf("expected initial selection 0, got %d", composer.Selected())
	}
	composer.MoveSelection(1)
	if composer.Selected() != 1 {
		t.Fatalf("expected selection 1, got %d", composer.Selected())
	}
	composer.MoveSelection(1)
	if composer.Selected() != 0 {
		t.Fatalf("expected wrap to 0, got %d", composer.Selected())
	}
	composer.MoveSelection(-1)
	if composer.Selected() != 1 {
		t.Fatalf("expected reverse wrap to 1, got %d", composer.Selected())
	}
}

func TestComposerDismissKeepsDraft(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("ping @al", 8)

	composer.Dismiss()
	if composer.Suggesting() {
		t.Fatal("expected suggestions hidden")
	}
	if composer.Text() != "ping @al" {
		t.Fatalf("dismiss must not mutate the draft, got %q", composer.Text())
	}
}

func TestComposerCursorMoveReevaluates(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("see @bob later", 8)
	if !composer.Suggesting() {
		t.Fatal("expected suggestions with cursor inside the run")
	}

	composer.SetCursor(len("see @bob later"))
	if composer.Suggesting() {
		t.Fatal("expected suggestions closed once cursor leaves the run")
	}
}

func TestComposerExcludesSelfFromSuggestions(t *testing.T) {
	composer := newTestComposer(t, "u1")
	composer.SetText("@a", 2)

	for _, user := range composer.Suggestions() {
		if user.ID == "u1" {
			t.Fatal("author must not be suggested to themselves")
		}
	}
}

func TestComposerSubmitRejectsEmptyDraft(t *testing.T) {
	composer := newTestComposer(t, "u9")

	if _, err := composer.Submit(); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("expected ErrEmptyDraft, got %v", err)
	}
	composer.SetText("   \n\t ", 3)
	if _, err := composer.Submit(); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("expected ErrEmptyDraft for whitespace draft, got %v", err)
	}
}

func TestComposerSubmitTrimsAndResetClears(t *testing.T) {
	composer := newTestComposer(t, "u9")
	composer.SetText("  ping @Alice  ", 15)

	content, err := composer.Submit()
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if content != "ping @Alice" {
		t.Fatalf("expected trimmed content, got %q", content)
	}

	composer.Reset()
	if composer.Text() != "" || composer.Cursor() != 0 || composer.Suggesting() {
		t.Fatal("expected cleared composer after reset")
	}
}

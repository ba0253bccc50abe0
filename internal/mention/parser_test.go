package mention

import (
	"strings"
	"testing"
)

func TestParseFindsActiveTag(t *testing.T) {
	active, ok := Parse("ping @al", 8)
	if !ok {
		t.Fatal("expected an active tag")
	}
	if active.Tag != "al" {
		t.Fatalf("expected tag al, got %q", active.Tag)
	}
	if active.Start != 5 {
		t.Fatalf("expected tag start 5, got %d", active.Start)
	}
}

func TestParseBareTriggerYieldsEmptyTag(t *testing.T) {
	active, ok := Parse("hello @", 7)
	if !ok {
		t.Fatal("expected an active tag for a bare trigger")
	}
	if active.Tag != "" {
		t.Fatalf("expected empty tag, got %q", active.Tag)
	}
}

func TestParseNoTriggerBeforeCursor(t *testing.T) {
	if _, ok := Parse("plain text", 5); ok {
		t.Fatal("expected no active tag without a trigger")
	}
}

func TestParseWhitespaceInRunDisablesTag(t *testing.T) {
	cases := []string{
		"ping @alice hello",
		"ping @alice\thello",
		"ping @alice\nhello",
	}
	for _, text := range cases {
		if _, ok := Parse(text, len(text)); ok {
			t.Fatalf("expected no active tag for %q", text)
		}
	}
}

func TestParseDependsOnCursorNotJustText(t *testing.T) {
	text := "see @bob later"
	if _, ok := Parse(text, 8); !ok {
		t.Fatal("expected active tag with cursor inside the run")
	}
	if _, ok := Parse(text, len(text)); ok {
		t.Fatal("expected no active tag with cursor past the whitespace")
	}
}

func TestParseClampsCursorBeyondText(t *testing.T) {
	active, ok := Parse("hi @jo", 100)
	if !ok || active.Tag != "jo" {
		t.Fatalf("expected clamped cursor to find tag jo, got %+v ok=%v", active, ok)
	}
	if _, ok := Parse("hi @jo", -1); ok {
		t.Fatal("expected negative cursor to yield no tag")
	}
}

func TestExtractReturnsTokensInOrder(t *testing.T) {
	text := "@Alice please sync with @bob_2 and @Ca-rol"
	tokens := Extract(text)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	expected := []string{"Alice", "bob_2", "Ca-rol"}
	for index, tag := range expected {
		if tokens[index].RawTag != tag {
			t.Fatalf("expected token %d to be %q, got %q", index, tag, tokens[index].RawTag)
		}
	}
	for _, token := range tokens {
		if text[token.Start] != '@' {
			t.Fatalf("expected token start %d to point at '@'", token.Start)
		}
		if text[token.Start+1:token.End] != token.RawTag {
			t.Fatalf("token offsets do not cover the tag: %+v", token)
		}
	}
}

func TestExtractEmptyAndPlainText(t *testing.T) {
	if tokens := Extract(""); tokens != nil {
		t.Fatalf("expected no tokens for empty text, got %v", tokens)
	}
	if tokens := Extract("no mentions here"); tokens != nil {
		t.Fatalf("expected no tokens, got %v", tokens)
	}
	if tokens := Extract("dangling @ trigger"); tokens != nil {
		t.Fatalf("expected no tokens for a bare trigger, got %v", tokens)
	}
}

func TestSegmentsRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain text",
		"@Bob please review",
		"ask @Alice and @Bob about @Ca-rol now",
		"@edge",
		"trailing @end",
	}
	for _, text := range cases {
		var rebuilt strings.Builder
		for _, segment := range Segments(text) {
			if segment.Mention {
				rebuilt.WriteString("@")
			}
			rebuilt.WriteString(segment.Text)
		}
		if rebuilt.String() != text {
			t.Fatalf("round trip failed for %q: got %q", text, rebuilt.String())
		}
	}
}

func TestSegmentsMarksMentionSpans(t *testing.T) {
	segments := Segments("hi @Alice bye")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Mention || segments[2].Mention {
		t.Fatal("expected outer segments to be plain text")
	}
	if !segments[1].Mention || segments[1].Text != "Alice" {
		t.Fatalf("expected middle segment to be the mention, got %+v", segments[1])
	}
}

func TestInsertReplacesRunAndPositionsCursor(t *testing.T) {
	text, cursor := Insert("ping @al", 8, "Alice")
	if text != "ping @Alice " {
		t.Fatalf("expected %q, got %q", "ping @Alice ", text)
	}
	if cursor != len("ping @Alice ") {
		t.Fatalf("expected cursor after the trailing space, got %d", cursor)
	}
}

func TestInsertPreservesTextAfterCursor(t *testing.T) {
	text, cursor := Insert("ask @bo about the role", 7, "Bob")
	if text != "ask @Bob  about the role" {
		t.Fatalf("unexpected text %q", text)
	}
	if cursor != len("ask @Bob ") {
		t.Fatalf("unexpected cursor %d", cursor)
	}
}

func TestInsertWithoutActiveTagIsNoOp(t *testing.T) {
	text, cursor := Insert("no trigger here", 4, "Alice")
	if text != "no trigger here" || cursor != 4 {
		t.Fatalf("expected no-op, got %q cursor %d", text, cursor)
	}
}

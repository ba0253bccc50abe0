// Package mention implements parsing, rendering and resolution of @name
// mention tokens inside note text, plus the suggestion ranking that drives
// the composer while an author is typing.
package mention

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenPattern matches a mention trigger followed by word characters.
// Capture group boundaries are relied on by Segments for the render split.
var tokenPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)`)

// Token is a mention occurrence extracted from note text. Offsets are byte
// offsets into the original string; Start points at the '@'.
type Token struct {
	RawTag string
	Start  int
	End    int
}

// ActiveTag describes the partial mention under the author's cursor.
type ActiveTag struct {
	// Tag is the text between the triggering '@' and the cursor. It may be
	// empty when the author has typed a bare '@'.
	Tag string
	// Start is the byte offset of the triggering '@'.
	Start int
}

// Parse inspects text at the given cursor offset and reports the active
// partial mention, if any. The active tag is the run from the nearest '@'
// before the cursor up to the cursor, provided the run contains no
// whitespace. Parse must be re-run on every text change and cursor move;
// the result depends on both.
func Parse(text string, cursor int) (ActiveTag, bool) {
	if cursor < 0 {
		return ActiveTag{}, false
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	before := text[:cursor]
	at := strings.LastIndex(before, "@")
	if at == -1 {
		return ActiveTag{}, false
	}
	run := before[at+1:]
	if strings.IndexFunc(run, unicode.IsSpace) != -1 {
		return ActiveTag{}, false
	}
	return ActiveTag{Tag: run, Start: at}, true
}

// Extract returns every well-formed mention token in text, in left-to-right
// order. Tags are not resolved against the directory here; unresolved tags
// are a render concern, not an error.
func Extract(text string) []Token {
	matches := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{
			RawTag: text[m[2]:m[3]],
			Start:  m[0],
			End:    m[1],
		})
	}
	return tokens
}

// Segment is one piece of the render split of note text. Odd-indexed
// segments produced by Segments are mention tags (without the '@').
type Segment struct {
	Text    string
	Mention bool
}

// Segments splits text on mention tokens for rendering. Concatenating the
// segments (re-prefixing mention segments with '@') reproduces the input
// exactly.
func Segments(text string) []Segment {
	tokens := Extract(text)
	if len(tokens) == 0 {
		if text == "" {
			return nil
		}
		return []Segment{{Text: text}}
	}
	segments := make([]Segment, 0, 2*len(tokens)+1)
	last := 0
	for _, token := range tokens {
		segments = append(segments, Segment{Text: text[last:token.Start]})
		segments = append(segments, Segment{Text: token.RawTag, Mention: true})
		last = token.End
	}
	segments = append(segments, Segment{Text: text[last:]})
	return segments
}

// Insert replaces the active mention run in text with the selected display
// name followed by a single space, and returns the new text together with
// the cursor offset immediately after that space. Mouse and keyboard
// confirmation both go through this path.
func Insert(text string, cursor int, displayName string) (string, int) {
	active, ok := Parse(text, cursor)
	if !ok {
		return text, cursor
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	inserted := "@" + displayName + " "
	newText := text[:active.Start] + inserted + text[cursor:]
	return newText, active.Start + len(inserted)
}

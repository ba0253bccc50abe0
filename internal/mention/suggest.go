package mention

import (
	"strings"

	"github.com/candidhq/collab/backend/internal/directory"
)

// DefaultSuggestionLimit bounds suggestion lists so the composer stays
// responsive regardless of directory size.
const DefaultSuggestionLimit = 8

// Suggest ranks directory users against a partial tag: case-insensitive
// prefix matches first, then case-insensitive substring containment, each
// group in directory order. The author's own identity is excluded. An empty
// tag (a bare '@') returns the full directory up to limit so the author can
// browse mentionable users. A limit of zero or less falls back to
// DefaultSuggestionLimit.
func Suggest(tag string, users []directory.User, selfID string, limit int) []directory.User {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	needle := strings.ToLower(tag)

	var prefixed, contained []directory.User
	for _, user := range users {
		if user.ID == selfID {
			continue
		}
		name := strings.ToLower(user.DisplayName)
		switch {
		case needle == "" || strings.HasPrefix(name, needle):
			prefixed = append(prefixed, user)
		case strings.Contains(name, needle):
			contained = append(contained, user)
		}
	}

	ranked := append(prefixed, contained...)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Resolve maps extracted tokens to directory user identifiers. Matching is
// case-insensitive on display name; when several users share a name the
// first match in directory order wins. The result preserves text order and
// contains each user at most once. Tokens with no directory match are
// skipped.
func Resolve(tokens []Token, users []directory.User) []string {
	if len(tokens) == 0 {
		return nil
	}
	var resolved []string
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		user, ok := lookupByName(users, token.RawTag)
		if !ok {
			continue
		}
		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		resolved = append(resolved, user.ID)
	}
	return resolved
}

func lookupByName(users []directory.User, name string) (directory.User, bool) {
	for _, user := range users {
		if strings.EqualFold(user.DisplayName, name) {
			return user, true
		}
	}
	return directory.User{}, false
}

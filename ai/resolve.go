package ai

import (
	"strings"

	"storycave/backend/internal/models"
)

// ResolveCharacter maps a free-text name mention onto a candidate character.
// Matching is case-insensitive containment in either direction ("Emma"
// mentions "Emma Chen" and vice versa). The first matching candidate in the
// supplied order wins, which keeps resolution deterministic; callers pass
// candidates in scene-membership order. No match returns nil, never an
// error.
func ResolveCharacter(text string, candidates []models.Character) *models.Character {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	for i := range candidates {
		name := strings.ToLower(candidates[i].Name)
		if strings.Contains(text, name) || strings.Contains(name, text) {
			return &candidates[i]
		}
	}
	return nil
}

// ResolveReference handles the loosely-typed name fields providers emit: a
// plain string, or a list of names. Lists resolve using only the first
// element; trailing elements are discarded. That mirrors the product's
// long-standing behavior and is intentional, not an oversight.
func ResolveReference(ref any, candidates []models.Character) *models.Character {
	switch v := ref.(type) {
	case string:
		return ResolveCharacter(v, candidates)
	case []any:
		if len(v) == 0 {
			return nil
		}
		if first, ok := v[0].(string); ok {
			return ResolveCharacter(first, candidates)
		}
	case []string:
		if len(v) == 0 {
			return nil
		}
		return ResolveCharacter(v[0], candidates)
	}
	return nil
}

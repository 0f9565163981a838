package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storycave/backend/internal/models"
)

func roster() []models.Character {
	return []models.Character{
		{ID: "c1", Name: "Emma Chen"},
		{ID: "c2", Name: "Kai"},
		{ID: "c3", Name: "Dr. Marcus Webb"},
	}
}

func TestResolveCharacterShortFormMention(t *testing.T) {
	got := ResolveCharacter("Emma", roster())

	assert.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

func TestResolveCharacterFullNameInsideText(t *testing.T) {
	got := ResolveCharacter("she turned to Emma Chen and frowned", roster())

	assert.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

func TestResolveCharacterCaseInsensitive(t *testing.T) {
	got := ResolveCharacter("KAI", roster())

	assert.NotNil(t, got)
	assert.Equal(t, "c2", got.ID)
}

func TestResolveCharacterNoMatch(t *testing.T) {
	assert.Nil(t, ResolveCharacter("Nobody", roster()))
	assert.Nil(t, ResolveCharacter("", roster()))
	assert.Nil(t, ResolveCharacter("   ", roster()))
}

func TestResolveCharacterFirstMatchWins(t *testing.T) {
	candidates := []models.Character{
		{ID: "a", Name: "Marta"},
		{ID: "b", Name: "Ann"},
		{ID: "c", Name: "Annabel"},
	}

	got := ResolveCharacter("Annabel", candidates)

	// "Ann" is contained in "Annabel", and it comes before "Annabel" in the
	// supplied order, so it wins.
	assert.NotNil(t, got)
	assert.Equal(t, "b", got.ID)
}

func TestResolveReferenceString(t *testing.T) {
	got := ResolveReference("Marcus", roster())

	assert.NotNil(t, got)
	assert.Equal(t, "c3", got.ID)
}

func TestResolveReferenceListUsesFirstElementOnly(t *testing.T) {
	got := ResolveReference([]any{"Kai", "Emma Chen"}, roster())

	assert.NotNil(t, got)
	assert.Equal(t, "c2", got.ID)
}

func TestResolveReferenceUnusableShapes(t *testing.T) {
	assert.Nil(t, ResolveReference(nil, roster()))
	assert.Nil(t, ResolveReference(42, roster()))
	assert.Nil(t, ResolveReference([]any{}, roster()))
	assert.Nil(t, ResolveReference([]any{7}, roster()))
}

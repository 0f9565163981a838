package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storycave/backend/internal/models"
)

func TestCreateInteractionNullsSelfTarget(t *testing.T) {
	db := newTestDB(t)
	interactions := NewInteractionService(db)

	self := "c1"
	interaction := &models.Interaction{
		SceneID:           "s1",
		CharacterID:       "c1",
		Content:           "muttered to no one in particular",
		InteractionType:   models.InteractionDialogue,
		TargetCharacterID: &self,
	}
	assert.NoError(t, interactions.Create(interaction))
	assert.Nil(t, interaction.TargetCharacterID)

	var stored models.Interaction
	assert.NoError(t, db.First(&stored, "id = ?", interaction.ID).Error)
	assert.Nil(t, stored.TargetCharacterID)
}

func TestCreateInteractionKeepsOtherTarget(t *testing.T) {
	db := newTestDB(t)
	interactions := NewInteractionService(db)

	target := "c2"
	interaction := &models.Interaction{
		SceneID:           "s1",
		CharacterID:       "c1",
		Content:           "'Did you hear that?' she whispered.",
		InteractionType:   models.InteractionDialogue,
		TargetCharacterID: &target,
	}
	assert.NoError(t, interactions.Create(interaction))
	if assert.NotNil(t, interaction.TargetCharacterID) {
		assert.Equal(t, "c2", *interaction.TargetCharacterID)
	}
}

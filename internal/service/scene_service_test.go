package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storycave/backend/internal/models"
)

func TestActivateSceneLeavesExactlyOneActive(t *testing.T) {
	db := newTestDB(t)
	characters := NewCharacterService(db, nil)
	scenes := NewSceneService(db, nil)

	emma := seedCharacter(t, characters, "Emma Chen")
	sceneA := seedScene(t, scenes, "The Cellar", emma.ID)
	sceneB := seedScene(t, scenes, "The Lantern Room", emma.ID)

	_, err := scenes.ActivateScene(sceneA.ID)
	assert.NoError(t, err)

	activated, err := scenes.ActivateScene(sceneB.ID)
	assert.NoError(t, err)
	assert.True(t, activated.IsActive)

	active, err := scenes.ActiveScene()
	assert.NoError(t, err)
	assert.Equal(t, sceneB.ID, active.ID)

	var count int64
	assert.NoError(t, db.Model(&models.Scene{}).Where("is_active = ?", true).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	refetched, err := scenes.GetScene(sceneA.ID)
	assert.NoError(t, err)
	assert.False(t, refetched.IsActive)
}

func TestActiveSceneNoneActive(t *testing.T) {
	db := newTestDB(t)
	characters := NewCharacterService(db, nil)
	scenes := NewSceneService(db, nil)

	emma := seedCharacter(t, characters, "Emma Chen")
	seedScene(t, scenes, "The Cellar", emma.ID)

	_, err := scenes.ActiveScene()
	assert.Error(t, err)
}

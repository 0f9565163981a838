package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storycave/backend/internal/models"
)

// newTestDB opens an in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to ":memory:" is its own database; pin the
	// pool to one connection so the schema is shared.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Character{},
		&models.Scene{},
		&models.SceneCharacter{},
		&models.Interaction{},
		&models.Memory{},
		&models.CharacterFeeling{},
		&models.PlotNote{},
	))
	return db
}

func seedCharacter(t *testing.T, characters *CharacterService, name string) *models.Character {
	t.Helper()
	character, err := characters.CreateCharacter(&models.CreateCharacterRequest{
		Name:        name,
		Personality: "curious",
		Background:  "a drifter with a past",
	})
	require.NoError(t, err)
	return character
}

func seedScene(t *testing.T, scenes *SceneService, title string, characterIDs ...string) *models.SceneWithCharacters {
	t.Helper()
	scene, err := scenes.CreateScene(&models.CreateSceneRequest{
		Title:        title,
		Environment:  "Abandoned Lighthouse",
		Context:      "A storm traps the group overnight",
		CharacterIDs: characterIDs,
	})
	require.NoError(t, err)
	return scene
}

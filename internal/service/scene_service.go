package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storycave/backend/internal/models"
	"storycave/backend/pkg/cache"
	apperrors "storycave/backend/pkg/errors"
)

type SceneService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewSceneService creates the scene service. cache may be nil; roster reads
// then always hit the database.
func NewSceneService(db *gorm.DB, c *cache.Cache) *SceneService {
	return &SceneService{db: db, cache: c}
}

func rosterCacheKey(sceneID string) string {
	return fmt.Sprintf("scene:%s:roster", sceneID)
}

func (s *SceneService) CreateScene(req *models.CreateSceneRequest) (*models.SceneWithCharacters, error) {
	if len(req.CharacterIDs) == 0 {
		return nil, apperrors.NewBadRequestError("scene_roster_required", "a scene needs at least one character")
	}

	// Verify every requested member exists before creating anything.
	var count int64
	if result := s.db.Model(&models.Character{}).Where("id IN ?", req.CharacterIDs).Count(&count); result.Error != nil {
		return nil, result.Error
	}
	if int(count) != len(req.CharacterIDs) {
		return nil, apperrors.NewBadRequestError("scene_unknown_character", "one or more character ids do not exist")
	}

	scene := &models.Scene{
		Title:       req.Title,
		Environment: req.Environment,
		Context:     req.Context,
		Weather:     req.Weather,
		TimeOfDay:   req.TimeOfDay,
		Mood:        req.Mood,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(scene); result.Error != nil {
			return result.Error
		}
		// Membership rows are created in request order; roster iteration
		// order follows creation order.
		for _, characterID := range req.CharacterIDs {
			member := &models.SceneCharacter{
				SceneID:     scene.ID,
				CharacterID: characterID,
			}
			if result := tx.Create(member); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSceneWithCharacters(scene.ID)
}

func (s *SceneService) GetScene(id string) (*models.Scene, error) {
	var scene models.Scene
	result := s.db.First(&scene, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("scene_not_found", "Scene not found")
		}
		return nil, result.Error
	}
	return &scene, nil
}

// GetSceneWithCharacters returns the scene and its roster in membership
// creation order.
func (s *SceneService) GetSceneWithCharacters(id string) (*models.SceneWithCharacters, error) {
	scene, err := s.GetScene(id)
	if err != nil {
		return nil, err
	}

	characters, err := s.SceneRoster(id)
	if err != nil {
		return nil, err
	}

	return &models.SceneWithCharacters{
		Scene:      *scene,
		Characters: characters,
	}, nil
}

// SceneRoster returns the scene's characters in membership creation order.
// The order is load-bearing: name resolution walks it first-match-wins.
func (s *SceneService) SceneRoster(sceneID string) ([]models.Character, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(rosterCacheKey(sceneID)); found {
			if roster, ok := cached.([]models.Character); ok {
				return roster, nil
			}
		}
	}

	var members []models.SceneCharacter
	if result := s.db.Where("scene_id = ?", sceneID).Order("created_at asc").Find(&members); result.Error != nil {
		return nil, result.Error
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.CharacterID
	}

	characters, err := NewCharacterService(s.db, s.cache).CharactersByID(ids)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(rosterCacheKey(sceneID), characters)
	}
	return characters, nil
}

func (s *SceneService) ListScenes() ([]models.Scene, error) {
	var scenes []models.Scene
	if result := s.db.Order("created_at asc").Find(&scenes); result.Error != nil {
		return nil, result.Error
	}
	return scenes, nil
}

func (s *SceneService) UpdateScene(id string, req *models.UpdateSceneRequest) (*models.Scene, error) {
	scene, err := s.GetScene(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		scene.Title = *req.Title
	}
	if req.Environment != nil {
		scene.Environment = *req.Environment
	}
	if req.Context != nil {
		scene.Context = *req.Context
	}
	if req.Weather != nil {
		scene.Weather = *req.Weather
	}
	if req.TimeOfDay != nil {
		scene.TimeOfDay = *req.TimeOfDay
	}
	if req.Mood != nil {
		scene.Mood = *req.Mood
	}

	if result := s.db.Save(scene); result.Error != nil {
		return nil, result.Error
	}
	return scene, nil
}

func (s *SceneService) DeleteScene(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Delete(&models.SceneCharacter{}, "scene_id = ?", id); result.Error != nil {
			return result.Error
		}
		result := tx.Delete(&models.Scene{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFoundError("scene_not_found", "Scene not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(rosterCacheKey(id))
	}
	return nil
}

// ActivateScene makes one scene active and every other scene inactive in a
// single transaction, so concurrent activations cannot leave two scenes
// active.
func (s *SceneService) ActivateScene(id string) (*models.Scene, error) {
	if _, err := s.GetScene(id); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Model(&models.Scene{}).Where("is_active = ?", true).Update("is_active", false); result.Error != nil {
			return result.Error
		}
		return tx.Model(&models.Scene{}).Where("id = ?", id).Update("is_active", true).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetScene(id)
}

// ActiveScene returns the currently active scene, or a not-found error when
// no scene is active.
func (s *SceneService) ActiveScene() (*models.Scene, error) {
	var scene models.Scene
	result := s.db.First(&scene, "is_active = ?", true)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("no_active_scene", "No scene is currently active")
		}
		return nil, result.Error
	}
	return &scene, nil
}

// AddCharacterToScene appends a character to the roster. Duplicate
// memberships are rejected.
func (s *SceneService) AddCharacterToScene(sceneID, characterID string) error {
	if _, err := s.GetScene(sceneID); err != nil {
		return err
	}
	if _, err := NewCharacterService(s.db, s.cache).GetCharacter(characterID); err != nil {
		return err
	}

	var existing int64
	if result := s.db.Model(&models.SceneCharacter{}).
		Where("scene_id = ? AND character_id = ?", sceneID, characterID).
		Count(&existing); result.Error != nil {
		return result.Error
	}
	if existing > 0 {
		return apperrors.NewConflictError("scene_member_exists", "Character is already in the scene")
	}

	member := &models.SceneCharacter{SceneID: sceneID, CharacterID: characterID}
	if result := s.db.Create(member); result.Error != nil {
		return result.Error
	}
	if s.cache != nil {
		s.cache.Delete(rosterCacheKey(sceneID))
	}
	return nil
}

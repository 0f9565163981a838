package service

import (
	"errors"

	"gorm.io/gorm"

	"storycave/backend/internal/models"
	"storycave/backend/pkg/cache"
	apperrors "storycave/backend/pkg/errors"
)

type CharacterService struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewCharacterService(db *gorm.DB, c *cache.Cache) *CharacterService {
	return &CharacterService{db: db, cache: c}
}

func (s *CharacterService) CreateCharacter(req *models.CreateCharacterRequest) (*models.Character, error) {
	if req.Name == "" {
		return nil, apperrors.NewBadRequestError("character_name_required", "character name is required")
	}
	if req.Personality == "" {
		return nil, apperrors.NewBadRequestError("character_personality_required", "character personality is required")
	}
	if req.Background == "" {
		return nil, apperrors.NewBadRequestError("character_background_required", "character background is required")
	}

	character := &models.Character{
		Name:        req.Name,
		Personality: req.Personality,
		Background:  req.Background,
		Appearance:  req.Appearance,
		Goals:       req.Goals,
		Fears:       req.Fears,
	}

	if result := s.db.Create(character); result.Error != nil {
		return nil, result.Error
	}
	return character, nil
}

func (s *CharacterService) GetCharacter(id string) (*models.Character, error) {
	var character models.Character
	result := s.db.First(&character, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("character_not_found", "Character not found")
		}
		return nil, result.Error
	}
	return &character, nil
}

func (s *CharacterService) ListCharacters() ([]models.Character, error) {
	var characters []models.Character
	if result := s.db.Order("created_at asc").Find(&characters); result.Error != nil {
		return nil, result.Error
	}
	return characters, nil
}

func (s *CharacterService) UpdateCharacter(id string, req *models.UpdateCharacterRequest) (*models.Character, error) {
	character, err := s.GetCharacter(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		character.Name = *req.Name
	}
	if req.Personality != nil {
		character.Personality = *req.Personality
	}
	if req.Background != nil {
		character.Background = *req.Background
	}
	if req.Appearance != nil {
		character.Appearance = *req.Appearance
	}
	if req.Goals != nil {
		character.Goals = *req.Goals
	}
	if req.Fears != nil {
		character.Fears = *req.Fears
	}

	if result := s.db.Save(character); result.Error != nil {
		return nil, result.Error
	}
	return character, nil
}

// DeleteCharacter removes the character together with its scene memberships
// and drops the roster caches of every scene it belonged to.
func (s *CharacterService) DeleteCharacter(id string) error {
	var sceneIDs []string
	if result := s.db.Model(&models.SceneCharacter{}).Where("character_id = ?", id).Pluck("scene_id", &sceneIDs); result.Error != nil {
		return result.Error
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Character{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFoundError("character_not_found", "Character not found")
		}
		return tx.Delete(&models.SceneCharacter{}, "character_id = ?", id).Error
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		for _, sceneID := range sceneIDs {
			s.cache.Delete(rosterCacheKey(sceneID))
		}
	}
	return nil
}

// CharactersByID loads the given characters preserving the id order. Unknown
// ids are skipped rather than erroring, matching roster reads where a member
// may have been deleted. The order matters downstream: name resolution is
// first-match-wins over this order.
func (s *CharacterService) CharactersByID(ids []string) ([]models.Character, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var characters []models.Character
	if result := s.db.Where("id IN ?", ids).Find(&characters); result.Error != nil {
		return nil, result.Error
	}

	byID := make(map[string]models.Character, len(characters))
	for _, c := range characters {
		byID[c.ID] = c
	}

	ordered := make([]models.Character, 0, len(characters))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

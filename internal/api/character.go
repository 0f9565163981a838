package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storycave/backend/ai"
	"storycave/backend/internal/models"
	"storycave/backend/internal/service"
	apperrors "storycave/backend/pkg/errors"
)

type CharacterHandler struct {
	characters *service.CharacterService
	memories   *service.MemoryService
	feelings   *service.FeelingService
	engine     *ai.Engine
}

func NewCharacterHandler(characters *service.CharacterService, memories *service.MemoryService, feelings *service.FeelingService, engine *ai.Engine) *CharacterHandler {
	return &CharacterHandler{
		characters: characters,
		memories:   memories,
		feelings:   feelings,
		engine:     engine,
	}
}

func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	var req models.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}

	character, err := h.characters.CreateCharacter(&req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, character)
}

func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	character, err := h.characters.GetCharacter(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	characters, err := h.characters.ListCharacters()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, characters)
}

func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	var req models.UpdateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}

	character, err := h.characters.UpdateCharacter(c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	if err := h.characters.DeleteCharacter(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *CharacterHandler) ListMemories(c *gin.Context) {
	if _, err := h.characters.GetCharacter(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	memories, err := h.memories.ListByCharacter(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, memories)
}

func (h *CharacterHandler) ListFeelings(c *gin.Context) {
	if _, err := h.characters.GetCharacter(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	feelings, err := h.feelings.ListByCharacter(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, feelings)
}

// AnalyzeCharacter runs relationship analysis over everything the character
// has done so far, across scenes.
func (h *CharacterHandler) AnalyzeCharacter(c *gin.Context) {
	characterID := c.Param("id")
	character, err := h.characters.GetCharacter(characterID)
	if err != nil {
		c.Error(err)
		return
	}

	memories, err := h.memories.ListByCharacter(characterID)
	if err != nil {
		c.Error(err)
		return
	}
	feelings, err := h.feelings.ListByCharacter(characterID)
	if err != nil {
		c.Error(err)
		return
	}

	// The characters this one has directed feelings toward are the
	// relationship counterparties worth analyzing.
	var otherIDs []string
	seen := map[string]bool{}
	for _, feeling := range feelings {
		if !seen[feeling.TargetCharacterID] {
			seen[feeling.TargetCharacterID] = true
			otherIDs = append(otherIDs, feeling.TargetCharacterID)
		}
	}
	others, err := h.characters.CharactersByID(otherIDs)
	if err != nil {
		c.Error(err)
		return
	}

	var memoryLines []string
	start := len(memories) - 5
	if start < 0 {
		start = 0
	}
	for _, memory := range memories[start:] {
		memoryLines = append(memoryLines, strings.Join(memory.KeyPointList(), "; "))
	}

	var feelingLines []string
	for _, feeling := range feelings {
		feelingLines = append(feelingLines, feeling.FeelingType+": "+feeling.Reason)
	}

	insights := h.engine.AnalyzeCharacterRelationships(c.Request.Context(), *character, others, feelingLines, memoryLines)

	c.JSON(http.StatusOK, gin.H{
		"character_id":          characterID,
		"relationship_insights": insights,
		"key_memories":          memoryLines,
	})
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storycave/backend/ai"
	"storycave/backend/internal/service"
	apperrors "storycave/backend/pkg/errors"
)

// StoryHandler exposes the generation loop: single turns, timeline
// advances, narration, and the conversation lifecycle.
type StoryHandler struct {
	orchestrator *service.Orchestrator
	client       *ai.OpenAIClient
}

func NewStoryHandler(orchestrator *service.Orchestrator, client *ai.OpenAIClient) *StoryHandler {
	return &StoryHandler{orchestrator: orchestrator, client: client}
}

type interactRequest struct {
	SceneID     string `json:"scene_id" binding:"required"`
	CharacterID string `json:"character_id" binding:"required"`
}

func (h *StoryHandler) GenerateInteraction(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}

	turn, err := h.orchestrator.GenerateInteraction(c.Request.Context(), req.SceneID, req.CharacterID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

type narrateRequest struct {
	SceneID       string `json:"scene_id" binding:"required"`
	NarrationType string `json:"narration_type"`
}

func (h *StoryHandler) Narrate(c *gin.Context) {
	var req narrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}
	if req.NarrationType == "" {
		req.NarrationType = "atmospheric"
	}

	narration, err := h.orchestrator.Narrate(c.Request.Context(), req.SceneID, req.NarrationType)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":       req.SceneID,
		"narration":      narration,
		"narration_type": req.NarrationType,
		"timestamp":      time.Now(),
	})
}

func (h *StoryHandler) AdvanceTimeline(c *gin.Context) {
	result, err := h.orchestrator.AdvanceSceneTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":               result.SceneID,
		"timeline_advanced":      true,
		"interactions_generated": len(result.Interactions),
		"interactions":           result.Interactions,
	})
}

func (h *StoryHandler) StartConversation(c *gin.Context) {
	result, err := h.orchestrator.StartSceneConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":               result.SceneID,
		"conversation_started":   true,
		"interactions_generated": len(result.Interactions),
		"interactions":           result.Interactions,
	})
}

func (h *StoryHandler) ContinueConversation(c *gin.Context) {
	result, err := h.orchestrator.ContinueConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":               result.SceneID,
		"conversation_continued": true,
		"interactions_generated": len(result.Interactions),
		"interactions":           result.Interactions,
	})
}

func (h *StoryHandler) SaveConversation(c *gin.Context) {
	count, err := h.orchestrator.SaveConversation(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":           c.Param("id"),
		"conversation_saved": true,
		"interactions_count": count,
		"message":            "Conversation has been saved successfully.",
	})
}

func (h *StoryHandler) DiscardConversation(c *gin.Context) {
	result, err := h.orchestrator.DiscardConversation(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scene_id":               result.SceneID,
		"conversation_discarded": true,
		"interactions_deleted":   result.InteractionsDeleted,
		"memories_deleted":       result.MemoriesDeleted,
		"feelings_deleted":       result.FeelingsDeleted,
		"message":                "Conversation has been discarded.",
	})
}

type setModelRequest struct {
	Model string `json:"model" binding:"required"`
}

// allowedModels is the set the model switch endpoint accepts.
var allowedModels = map[string]bool{
	"gpt-4o":        true,
	"gpt-4o-mini":   true,
	"gpt-4":         true,
	"gpt-3.5-turbo": true,
}

func (h *StoryHandler) GetModel(c *gin.Context) {
	if h.client == nil {
		c.Error(apperrors.NewInternalServerError("no_provider", "No generation provider configured"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": h.client.Model()})
}

func (h *StoryHandler) SetModel(c *gin.Context) {
	if h.client == nil {
		c.Error(apperrors.NewInternalServerError("no_provider", "No generation provider configured"))
		return
	}
	var req setModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("invalid_request", err.Error()))
		return
	}
	if !allowedModels[req.Model] {
		c.Error(apperrors.NewBadRequestError("unsupported_model", "Model "+req.Model+" is not supported"))
		return
	}
	h.client.SetModel(req.Model)
	c.JSON(http.StatusOK, gin.H{"model": h.client.Model(), "updated": true})
}

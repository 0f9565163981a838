package router

import (
	"storycave/backend/internal/api"
	"storycave/backend/pkg/config"
	"storycave/backend/pkg/di"
	"storycave/backend/pkg/errors"
	"storycave/backend/pkg/logger"
	"storycave/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.Warn("invalid trusted proxy list", "error", err)
	}

	// Request ID first so every later middleware and log line carries it
	engine.Use(middleware.RequestIDMiddleware())

	// Use the logger middleware to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter from configured limits
	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit: rate.Limit(cfg.Security.RateLimit),
		Burst: cfg.Security.RateLimitBurst,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
	engine.Use(rateLimiter.Middleware())

	// Start the websocket hub
	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	characterHandler := api.NewCharacterHandler(
		r.Container.CharacterService,
		r.Container.MemoryService,
		r.Container.FeelingService,
		r.Container.Engine,
	)
	sceneHandler := api.NewSceneHandler(
		r.Container.SceneService,
		r.Container.InteractionService,
		r.Container.PlotNoteService,
		r.Container.TimelineService,
		r.Container.Engine,
	)
	interactionHandler := api.NewInteractionHandler(
		r.Container.SceneService,
		r.Container.CharacterService,
		r.Container.InteractionService,
		r.Container.MemoryService,
		r.Container.PlotNoteService,
	)
	storyHandler := api.NewStoryHandler(r.Container.Orchestrator, r.Container.AIClient)

	r.setupHealthRoutes()

	v1 := r.Engine.Group("/api/v1")
	{
		characterRoutes := v1.Group("/characters")
		{
			characterRoutes.POST("", characterHandler.CreateCharacter)
			characterRoutes.GET("", characterHandler.ListCharacters)
			characterRoutes.GET("/:id", characterHandler.GetCharacter)
			characterRoutes.PUT("/:id", characterHandler.UpdateCharacter)
			characterRoutes.DELETE("/:id", characterHandler.DeleteCharacter)
			characterRoutes.GET("/:id/memories", characterHandler.ListMemories)
			characterRoutes.GET("/:id/feelings", characterHandler.ListFeelings)
			characterRoutes.GET("/:id/analysis", characterHandler.AnalyzeCharacter)
		}

		sceneRoutes := v1.Group("/scenes")
		{
			sceneRoutes.POST("", sceneHandler.CreateScene)
			sceneRoutes.GET("", sceneHandler.ListScenes)
			sceneRoutes.GET("/active", sceneHandler.GetActiveScene)
			sceneRoutes.GET("/:id", sceneHandler.GetScene)
			sceneRoutes.PUT("/:id", sceneHandler.UpdateScene)
			sceneRoutes.DELETE("/:id", sceneHandler.DeleteScene)
			sceneRoutes.POST("/:id/activate", sceneHandler.ActivateScene)
			sceneRoutes.POST("/:id/characters", sceneHandler.AddCharacter)
			sceneRoutes.GET("/:id/interactions", sceneHandler.ListInteractions)
			sceneRoutes.GET("/:id/plot-notes", interactionHandler.ListPlotNotes)
			sceneRoutes.GET("/:id/timeline", sceneHandler.GetTimeline)
			sceneRoutes.POST("/:id/timeline/advance", storyHandler.AdvanceTimeline)
			sceneRoutes.POST("/:id/summarize", sceneHandler.SummarizeScene)
			sceneRoutes.GET("/:id/analysis", sceneHandler.AnalyzeScene)

			conversationRoutes := sceneRoutes.Group("/:id/conversation")
			{
				conversationRoutes.POST("/start", storyHandler.StartConversation)
				conversationRoutes.POST("/continue", storyHandler.ContinueConversation)
				conversationRoutes.POST("/save", storyHandler.SaveConversation)
				conversationRoutes.POST("/discard", storyHandler.DiscardConversation)
			}
		}

		v1.POST("/interactions", interactionHandler.CreateInteraction)
		v1.POST("/memories", interactionHandler.CreateMemory)
		v1.POST("/plot-notes", interactionHandler.CreatePlotNote)

		aiRoutes := v1.Group("/ai")
		{
			aiRoutes.POST("/interact", storyHandler.GenerateInteraction)
			aiRoutes.POST("/narrate", storyHandler.Narrate)
			aiRoutes.GET("/model", storyHandler.GetModel)
			aiRoutes.POST("/model", storyHandler.SetModel)
		}
	}

	// WebSocket route: one room per scene
	if r.Config.Features.EnableWebSockets {
		r.Engine.GET("/ws/scenes/:id", r.Container.Hub.ServeScene)
	}
}

// Enhance CORS middleware to explicitly allow WebSocket-specific headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

package di

import (
	"context"

	"storycave/backend/ai"
	"storycave/backend/internal/service"
	"storycave/backend/internal/ws"
	"storycave/backend/pkg/cache"
	"storycave/backend/pkg/config"
	"storycave/backend/pkg/logger"
	"storycave/backend/pkg/resilience"
	"storycave/backend/pkg/secrets"
	"storycave/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB                 *gorm.DB
	Logger             *logger.Logger
	Cache              *cache.Cache
	Redis              *redis.RedisClient
	AIClient           *ai.OpenAIClient
	Engine             *ai.Engine
	Hub                *ws.Hub
	CharacterService   *service.CharacterService
	SceneService       *service.SceneService
	InteractionService *service.InteractionService
	MemoryService      *service.MemoryService
	FeelingService     *service.FeelingService
	PlotNoteService    *service.PlotNoteService
	TimelineService    *service.TimelineService
	SceneGuard         *service.SceneGuard
	Orchestrator       *service.Orchestrator
}

// New builds the dependency graph for the application. The generation
// provider is optional: without an API key the engine still runs and serves
// its deterministic fallback content.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.New(logger.Config{
			Level: cfg.Logging.Level,
			JSON:  cfg.Logging.Format == "json",
		})
	}

	// Secrets manager (Vault with env fallback) supplies the provider key
	// when it is not in the environment.
	if err := secrets.Init(log); err != nil {
		log.Warn("secrets manager unavailable, using environment only", "error", err)
	}
	apiKey := cfg.AI.APIKey
	if apiKey == "" {
		apiKey = secrets.GetSecretWithDefault(context.Background(), "OPENAI_API_KEY", "")
	}

	var aiClient *ai.OpenAIClient
	if apiKey != "" {
		client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		aiClient = client
	} else {
		log.Warn("no generation provider key configured, story engine will serve fallback content")
	}

	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("openai"), log)

	engineOpts := ai.EngineOptions{
		MaxResponseWords: cfg.AI.MaxResponseWords,
		Breaker:          breaker,
		Context: ai.ContextOptions{
			RecentInteractions: cfg.Story.RecentInteractions,
			ConversationWindow: cfg.Story.ConversationWindow,
			MemoryCount:        cfg.Story.MemoryCount,
			InteractionBudget:  cfg.Story.InteractionBudget,
			MemoryBudget:       cfg.Story.MemoryBudget,
		},
	}
	var engine *ai.Engine
	if aiClient != nil {
		engine = ai.NewEngine(aiClient, engineOpts, log)
	} else {
		engine = ai.NewEngine(nil, engineOpts, log)
	}

	var appCache *cache.Cache
	if cfg.Cache.Enabled {
		appCache = cache.NewCache()
	}

	var redisClient *redis.RedisClient
	if cfg.Redis.Enabled {
		redisClient = redis.NewRedisClient()
	}

	characterService := service.NewCharacterService(db, appCache)
	sceneService := service.NewSceneService(db, appCache)
	interactionService := service.NewInteractionService(db)
	memoryService := service.NewMemoryService(db)
	feelingService := service.NewFeelingService(db)
	plotNoteService := service.NewPlotNoteService(db)
	timelineService := service.NewTimelineService(sceneService, interactionService, memoryService, plotNoteService, feelingService)

	guard := service.NewSceneGuard(redisClient, cfg.Story.SceneLockTTL)
	hub := ws.NewHub(log)

	orchestrator := service.NewOrchestrator(
		engine,
		sceneService,
		interactionService,
		memoryService,
		feelingService,
		guard,
		hub,
		log,
	)

	return &Container{
		DB:                 db,
		Logger:             log,
		Cache:              appCache,
		Redis:              redisClient,
		AIClient:           aiClient,
		Engine:             engine,
		Hub:                hub,
		CharacterService:   characterService,
		SceneService:       sceneService,
		InteractionService: interactionService,
		MemoryService:      memoryService,
		FeelingService:     feelingService,
		PlotNoteService:    plotNoteService,
		TimelineService:    timelineService,
		SceneGuard:         guard,
		Orchestrator:       orchestrator,
	}, nil
}

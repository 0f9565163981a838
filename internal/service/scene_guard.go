package service

import (
	"fmt"
	"sync"
	"time"

	apperrors "storycave/backend/pkg/errors"
	"storycave/backend/shared/redis"
)

// ErrSceneBusy rejects a mutating operation because another one is already
// running against the same scene. Callers retry; they never queue.
func ErrSceneBusy(sceneID string) *apperrors.AppError {
	return apperrors.NewConflictError("scene_busy", fmt.Sprintf("Scene %s is busy with another operation", sceneID))
}

// SceneGuard serializes mutating operations per scene: at most one
// generation, timeline advance, or conversation mutation runs against a
// scene at a time. Reads are never blocked. With a redis client the guard
// holds across replicas; without one it degrades to in-process locking.
type SceneGuard struct {
	redis *redis.RedisClient
	ttl   time.Duration

	mu   sync.Mutex
	held map[string]bool
}

// NewSceneGuard creates a guard. client may be nil. ttl bounds how long a
// crashed holder can keep a scene locked; zero means 2 minutes.
func NewSceneGuard(client *redis.RedisClient, ttl time.Duration) *SceneGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SceneGuard{
		redis: client,
		ttl:   ttl,
		held:  make(map[string]bool),
	}
}

func sceneGuardKey(sceneID string) string {
	return "scene:busy:" + sceneID
}

// Acquire claims the scene's critical section. It returns a scene_busy
// conflict immediately when the scene is already claimed.
func (g *SceneGuard) Acquire(sceneID string) error {
	g.mu.Lock()
	if g.held[sceneID] {
		g.mu.Unlock()
		return ErrSceneBusy(sceneID)
	}
	g.held[sceneID] = true
	g.mu.Unlock()

	if g.redis != nil {
		ok, err := g.redis.SetNX(sceneGuardKey(sceneID), "1", g.ttl)
		// A redis outage falls back to the in-process claim already taken.
		if err == nil && !ok {
			g.release(sceneID)
			return ErrSceneBusy(sceneID)
		}
	}
	return nil
}

// Release frees the scene's critical section.
func (g *SceneGuard) Release(sceneID string) {
	if g.redis != nil {
		_ = g.redis.Del(sceneGuardKey(sceneID))
	}
	g.release(sceneID)
}

func (g *SceneGuard) release(sceneID string) {
	g.mu.Lock()
	delete(g.held, sceneID)
	g.mu.Unlock()
}

package api

import (
	"context"
	"time"

	"fakenews/internal/auth"
	"fakenews/internal/config"
	"fakenews/internal/db"
	"fakenews/internal/detection"
	"fakenews/internal/detector"
	"fakenews/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Detector runs the classify/explain/record pipeline.
type Detector interface {
	Detect(ctx context.Context, userID uint, in detector.Input) (*detector.Result, error)
}

// Explainer returns an explanation string. Failures are reported inside the string.
type Explainer interface {
	Explain(ctx context.Context, text string) string
}

// DetectionStore is the per-user detection history.
type DetectionStore interface {
	ListByUser(ctx context.Context, userID uint) ([]detection.Detection, error)
	Get(ctx context.Context, userID, id uint) (*detection.Detection, error)
	Delete(ctx context.Context, userID, id uint) error
	PurgeUser(ctx context.Context, tx *gorm.DB, userID uint) error
	StatsByUser(ctx context.Context, userID uint) (detection.Stats, error)
}

// Deps are the services behind the detection routes. Any of them may be nil,
// in which case the matching routes answer 503.
type Deps struct {
	Detector   Detector
	Explainer  Explainer
	Detections DetectionStore
}

func usersExist() bool {
	var count int64
	if db.DB == nil {
		return false
	}
	db.DB.Model(&user.User{}).Count(&count)
	return count > 0
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Client-Info", "Apikey"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

func SetupRouter(cfg *config.Config, rdb *redis.Client, deps Deps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	subpath := cfg.Server.Subpath // e.g. "/fakenews", empty for root

	authed := auth.AuthMiddleware(cfg, rdb, false)
	admin := auth.AuthMiddleware(cfg, rdb, true)

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/config", configHandler(cfg))

		// Setup: only if no users
		group.GET("/setup", SetupStatusHandler())
		group.POST("/setup", SetupHandler())

		// Auth
		group.POST("/auth/login", LoginHandler(cfg, rdb))
		group.POST("/auth/logout", authed, LogoutHandler(rdb))
		group.GET("/auth/me", authed, MeHandler())

		// Admin: users
		group.GET("/users", admin, ListUsersHandler())
		group.POST("/users", admin, CreateUserHandler())
		group.GET("/users/online", admin, OnlineUserCountHandler(rdb))

		// User self-service
		group.GET("/users/me", authed, GetMeHandler())
		group.PUT("/users/me", authed, UpdateMeHandler())
		group.DELETE("/users/me", authed, DeleteMeHandler(rdb, deps.Detections))

		// Admin: user by id
		group.GET("/users/:id", admin, GetUserByIdHandler())
		group.PUT("/users/:id", admin, UpdateUserByIdHandler())
		group.DELETE("/users/:id", admin, DeleteUserByIdHandler(rdb, deps.Detections))

		// --- Detection ---
		group.POST("/detect", authed, DetectHandler(deps.Detector))
		group.POST("/explain", authed, ExplainHandler(deps.Explainer))

		// --- History ---
		group.GET("/detections", authed, ListDetectionsHandler(deps.Detections))
		group.GET("/detections/stats", authed, DetectionStatsHandler(deps.Detections))
		group.GET("/detections/export", authed, ExportDetectionsHandler(deps.Detections))
		group.GET("/detections/:id", authed, GetDetectionHandler(deps.Detections))
		group.DELETE("/detections/:id", authed, DeleteDetectionHandler(deps.Detections))
	}
	return r
}

package router

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/cache"
	"github.com/snapshare/inferno/internal/handlers"
	"github.com/snapshare/inferno/internal/middleware"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/config"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
)

// SetupMiddleware attaches the global middleware stack
func SetupMiddleware(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
}

// SetupRoutes migrates the relational schema, ensures the Mongo indexes and
// wires every repository and handler into the route tree. The returned
// recorder must be closed on shutdown so queued audit entries drain.
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config) (*audit.Recorder, error) {
	if err := db.Postgres.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Like{},
		&models.Comment{},
		&models.SavedPost{},
		&models.StoryView{},
	); err != nil {
		return nil, err
	}

	mongoDB := db.Mongo.Database(cfg.MongoDatabase)

	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(db.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(db.Postgres)
	commentRepo := repositories.NewPostgresCommentRepository(db.Postgres)
	savedRepo := repositories.NewPostgresSavedPostRepository(db.Postgres)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	storyRepo := repositories.NewStoryRepository(mongoDB, db.Postgres)
	messageRepo := repositories.NewMongoMessageRepository(mongoDB)
	activityRepo := repositories.NewMongoActivityRepository(mongoDB)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := postRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := storyRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := messageRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := activityRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	unread := cache.NewUnreadStorage(db.Redis)
	recorder := audit.NewRecorder(activityRepo, 0)

	authHandler := handlers.NewAuthHandler(userRepo, followRepo, recorder, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(userRepo, followRepo)
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, recorder)
	postHandler := handlers.NewPostHandler(postRepo, userRepo, likeRepo, commentRepo, savedRepo, followRepo, recorder)
	storyHandler := handlers.NewStoryHandler(storyRepo, userRepo, followRepo, recorder)
	messageHandler := handlers.NewMessageHandler(messageRepo, userRepo, unread, recorder)
	adminHandler := handlers.NewAdminHandler(userRepo, postRepo, likeRepo, commentRepo, savedRepo, followRepo, storyRepo, messageRepo, activityRepo, unread, recorder)

	handlers.RegisterHealthRoutes(e)

	authGroup := e.Group("/api/auth")
	authHandler.RegisterPublicRoutes(authGroup)

	api := e.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	authHandler.RegisterProtectedRoutes(api.Group("/auth"))
	userHandler.RegisterUserRoutes(api)
	followHandler.RegisterFollowRoutes(api)
	postHandler.RegisterPostRoutes(api)
	storyHandler.RegisterStoryRoutes(api)
	messageHandler.RegisterMessageRoutes(api)

	admin := api.Group("/admin", middleware.AdminOnly())
	adminHandler.RegisterAdminRoutes(admin)

	logger.L.Info("routes registered", zap.Int("count", len(e.Routes())))
	return recorder, nil
}

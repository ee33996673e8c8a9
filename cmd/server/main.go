package main

import (
	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/router"
	"github.com/snapshare/inferno/internal/validators"
	"github.com/snapshare/inferno/pkg/config"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.L.Fatal("failed to connect to databases", zap.Error(err))
	}
	defer db.CloseDB()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	router.SetupMiddleware(e)
	recorder, err := router.SetupRoutes(e, db, cfg)
	if err != nil {
		logger.L.Fatal("failed to set up routes", zap.Error(err))
	}
	defer recorder.Close()

	logger.L.Info("starting server", zap.String("port", cfg.Port))
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.L.Fatal("server stopped", zap.Error(err))
	}
}

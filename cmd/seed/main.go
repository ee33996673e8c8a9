package main

import (
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/config"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Seeds the admin account. Safe to run repeatedly.
func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.L.Fatal("failed to connect to databases", zap.Error(err))
	}
	defer db.CloseDB()

	if err := db.Postgres.AutoMigrate(&models.User{}); err != nil {
		logger.L.Fatal("failed to migrate users table", zap.Error(err))
	}

	userRepo := repositories.NewPostgresUserRepository(db.Postgres)

	const adminEmail = "admin@snapshare.com"
	if _, err := userRepo.GetUserByEmail(adminEmail); err == nil {
		logger.L.Info("admin user already exists", zap.String("email", adminEmail))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		logger.L.Fatal("failed to hash password", zap.Error(err))
	}

	admin := &models.User{
		Username: "admin",
		Email:    adminEmail,
		Password: string(hashed),
		Role:     models.RoleAdmin,
		Bio:      "System Administrator",
		Avatar:   "https://ui-avatars.com/api/?name=Admin&background=6366f1&color=fff&size=200",
	}
	if err := userRepo.CreateUser(admin); err != nil {
		logger.L.Fatal("failed to create admin user", zap.Error(err))
	}

	logger.L.Info("admin user created", zap.String("email", adminEmail))
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	audit            *audit.Recorder
	jwtSecret        string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository, recorder *audit.Recorder, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepository:   userRepo,
		followRepository: followRepo,
		audit:            recorder,
		jwtSecret:        jwtSecret,
	}
}

// RegisterPublicRoutes registers the unauthenticated auth routes
func (h *AuthHandler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
}

// RegisterProtectedRoutes registers the auth routes that require a token
func (h *AuthHandler) RegisterProtectedRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
	g.POST("/logout", h.Logout)
}

// Signup handles user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// Username and email collisions must be distinguishable.
	if _, err := h.userRepository.GetUserByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "You already have an account! Please go to Login tab to sign in.")
	}
	if _, err := h.userRepository.GetUserByUsername(req.Username); err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Username already taken. Try a different one.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	bio := "SnapShare User 📱"
	if req.Role == models.RoleCreator {
		bio = "Content Creator ✨"
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     req.Role,
		Bio:      bio,
	}

	if err := h.userRepository.CreateUser(user); err != nil {
		logger.L.Error("failed to create user", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error during signup")
	}

	h.audit.Record(models.Activity{
		UserID:   user.ID,
		Username: user.Username,
		Type:     models.ActivitySignup,
		Details:  fmt.Sprintf("Signed up as %s", user.Role),
	})

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Account created successfully",
		"token":   token,
		"user":    user.Public(),
	})
}

// Login handles user authentication with email and password. Unknown email
// and wrong password produce the same error so neither leaks.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid email or password")
		}
		logger.L.Error("failed to look up user", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error during login")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email or password")
	}

	h.audit.Record(models.Activity{
		UserID:   user.ID,
		Username: user.Username,
		Type:     models.ActivityLogin,
	})

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user.Public(),
	})
}

// Me returns the current user's profile with graph counts
func (h *AuthHandler) Me(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	followers, _ := h.followRepository.GetFollowersCount(userID)
	following, _ := h.followRepository.GetFollowingCount(userID)

	return c.JSON(http.StatusOK, models.UserProfile{
		UserPublic:     user.Public(),
		Email:          user.Email,
		FollowersCount: followers,
		FollowingCount: following,
		CreatedAt:      user.CreatedAt,
	})
}

// Logout records the logout in the audit log. The token itself stays valid
// until expiry; the client discards it.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	username := ""
	if user, err := h.userRepository.GetUserByID(claims.UserID); err == nil {
		username = user.Username
	}

	h.audit.Record(models.Activity{
		UserID:   claims.UserID,
		Username: username,
		Type:     models.ActivityLogout,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// generateJWT generates a signed token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

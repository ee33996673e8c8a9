package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User roles. Admin accounts are seeded, never self-assigned.
const (
	RoleCreator  = "creator"
	RoleConsumer = "consumer"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:30;uniqueIndex"`
	Email     string    `json:"email" gorm:"uniqueIndex"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	Role      string    `json:"role" gorm:"size:20;index"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPublic is the projection of a user safe to embed in responses.
type UserPublic struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
	Bio      string `json:"bio,omitempty"`
}

// UserProfile extends the public projection with graph counts.
type UserProfile struct {
	UserPublic
	Email          string    `json:"email,omitempty"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) Public() UserPublic {
	return UserPublic{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Role:     u.Role,
		Bio:      u.Bio,
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=creator consumer"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Bio    string `json:"bio" validate:"max=300"`
	Avatar string `json:"avatar"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

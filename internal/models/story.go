package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story is an ephemeral post stored in MongoDB. ExpiresAt drives both the TTL
// index and the read-time filter, so an expired story is unretrievable even
// before the TTL monitor removes the document.
type Story struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Image     string             `json:"image" bson:"image"`
	Caption   string             `json:"caption" bson:"caption"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// StoryView tracks which users have seen a story (PostgreSQL)
type StoryView struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StoryID   string    `json:"story_id" gorm:"index;uniqueIndex:idx_story_user_view"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_story_user_view"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateStoryRequest struct {
	Image   string `json:"image" validate:"required"`
	Caption string `json:"caption" validate:"max=500"`
}

type StoryResponse struct {
	Story
	ViewersCount int64 `json:"viewers_count"`
	Viewed       bool  `json:"viewed"`
}

// StoryGroup bundles one user's active stories for the tray view.
type StoryGroup struct {
	User    UserPublic      `json:"user"`
	Stories []StoryResponse `json:"stories"`
}

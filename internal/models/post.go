package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a photo post stored in MongoDB. Likes and comments live in
// their own relational tables; the counters here are denormalized for feed
// rendering and kept in step by the handlers.
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        uint               `json:"user_id" bson:"user_id"`
	Image         string             `json:"image" bson:"image"` // URL or inline data URI
	Caption       string             `json:"caption" bson:"caption"`
	LikesCount    int                `json:"likes_count" bson:"likes_count"`
	CommentsCount int                `json:"comments_count" bson:"comments_count"`
	Shares        int                `json:"shares" bson:"shares"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Image   string `json:"image" validate:"required"`
	Caption string `json:"caption" validate:"max=2200"`
}

// PostResponse is a post enriched with its author and the requesting user's
// like/save state.
type PostResponse struct {
	Post
	Author  UserPublic `json:"author"`
	IsLiked bool       `json:"is_liked"`
	IsSaved bool       `json:"is_saved"`
}

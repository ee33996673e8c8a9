package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharedPost is a denormalized snapshot of a post embedded in a message. The
// snapshot survives deletion of the original post.
type SharedPost struct {
	PostID   string `json:"post_id" bson:"post_id"`
	Image    string `json:"image" bson:"image"`
	Caption  string `json:"caption" bson:"caption"`
	Username string `json:"username" bson:"username"`
}

// Message is a direct message between two users, stored in MongoDB.
type Message struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	SenderID   uint               `json:"sender_id" bson:"sender_id"`
	ReceiverID uint               `json:"receiver_id" bson:"receiver_id"`
	Text       string             `json:"text" bson:"text"`
	SharedPost *SharedPost        `json:"shared_post,omitempty" bson:"shared_post,omitempty"`
	Read       bool               `json:"read" bson:"read"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// SendMessageRequest needs text, a shared post, or both. The handler checks
// this after trimming, so no validate tag on Text.
type SendMessageRequest struct {
	Text       string      `json:"text"`
	SharedPost *SharedPost `json:"shared_post,omitempty"`
}

// Conversation summarizes one counterpart for the inbox list.
type Conversation struct {
	User        UserPublic `json:"user"`
	LastMessage *Message   `json:"last_message"`
	UnreadCount int64      `json:"unread_count"`
}

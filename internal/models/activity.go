package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity types recorded in the audit log.
const (
	ActivitySignup     = "signup"
	ActivityLogin      = "login"
	ActivityLogout     = "logout"
	ActivityPost       = "post"
	ActivityLike       = "like"
	ActivityComment    = "comment"
	ActivityFollow     = "follow"
	ActivityUnfollow   = "unfollow"
	ActivityMessage    = "message"
	ActivityShare      = "share"
	ActivityDeletePost = "delete_post"
	ActivityDeleteUser = "delete_user"
)

// Activity is a write-only audit record stored in MongoDB with a 30-day TTL.
// Usernames are denormalized at write time so the admin dashboard read is a
// single query and entries survive user deletion.
type Activity struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         uint               `json:"user_id" bson:"user_id"`
	Username       string             `json:"username" bson:"username"`
	Type           string             `json:"type" bson:"type"`
	TargetUserID   uint               `json:"target_user_id,omitempty" bson:"target_user_id,omitempty"`
	TargetUsername string             `json:"target_username,omitempty" bson:"target_username,omitempty"`
	TargetPostID   string             `json:"target_post_id,omitempty" bson:"target_post_id,omitempty"`
	Details        string             `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

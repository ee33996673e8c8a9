package models

import "time"

// Comment lives in its own table keyed by post id rather than embedded in the
// post document, so comment lists stay paginated and posts stay small.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"index"` // MongoDB ObjectID hex
	UserID    uint      `json:"user_id" gorm:"index"`
	Text      string    `json:"text" gorm:"size:500"`
	CreatedAt time.Time `json:"created_at"`
}

type AddCommentRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// CommentResponse joins the author's public fields onto a comment.
type CommentResponse struct {
	ID        uint       `json:"id"`
	PostID    string     `json:"post_id"`
	Text      string     `json:"text"`
	User      UserPublic `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
}

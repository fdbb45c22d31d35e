package model

import "time"

type Feedback struct {
	ID           string    `json:"id" bson:"_id"`
	UserID       string    `json:"user_id" bson:"user_id"`
	Username     string    `json:"username" bson:"-"`
	SessionID    string    `json:"session_id" bson:"session_id"`
	SessionTitle string    `json:"session_title" bson:"-"`
	Rating       int       `json:"rating" bson:"rating"`
	Comment      string    `json:"comment" bson:"comment"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type FeedbackRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Rating    int    `json:"rating" validate:"gte=1,lte=5"`
	Comment   string `json:"comment" validate:"max=1000"`
}

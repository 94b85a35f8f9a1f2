package models

import "time"

type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// DetectedCategory is one category the backend classifier assigned to a post.
type DetectedCategory struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type Post struct {
	ID                int64              `json:"id"`
	Content           string             `json:"content"`
	Author            *Author            `json:"author"`
	Category          string             `json:"category"`
	Confidence        float64            `json:"confidence"`
	PrimaryCategory   string             `json:"primary_category"`
	PrimaryConfidence float64            `json:"primary_confidence"`
	Categories        []DetectedCategory `json:"categories"`
	CreatedAt         time.Time          `json:"created_at"`
}

type CreatePostRequest struct {
	Content string `json:"content" validate:"required,min=3,max=1000"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

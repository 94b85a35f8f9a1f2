// Package posts forwards post and category calls through the authenticated pipeline.
package posts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/octabyte/sentimind-session/enums"
	"github.com/octabyte/sentimind-session/models"
	"github.com/octabyte/sentimind-session/pipeline"
)

var ErrInvalidInput = errors.New("posts: invalid input")

type Service struct {
	pipeline *pipeline.Pipeline
	validate *validator.Validate
}

func New(p *pipeline.Pipeline) *Service {
	return &Service{
		pipeline: p,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List returns the feed, newest first. An empty category lists every post.
func (s *Service) List(ctx context.Context, category string) ([]models.Post, error) {
	req := &pipeline.Request{Method: http.MethodGet, Path: enums.PathPosts}
	if category != "" {
		req.Query = map[string]string{"category": category}
	}

	var posts []models.Post
	req.Result = &posts
	if _, err := s.pipeline.Send(ctx, req); err != nil {
		return nil, err
	}
	return posts, nil
}

// Create publishes content; the backend classifies it before answering.
func (s *Service) Create(ctx context.Context, content string) (*models.Post, error) {
	body := models.CreatePostRequest{Content: content}
	if err := s.validate.Struct(body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var post models.Post
	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodPost,
		Path:   enums.PathPosts,
		Body:   body,
		Result: &post,
	}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var resp models.CategoriesResponse
	if _, err := s.pipeline.Send(ctx, &pipeline.Request{
		Method: http.MethodGet,
		Path:   enums.PathCategories,
		Result: &resp,
	}); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

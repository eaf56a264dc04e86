package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

const postsPath = "/rest/v1/blog_posts"

// postPatch is the wire shape of a post update. The id is carried in
// the query filter, not the body.
type postPatch struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	Tags        []string  `json:"tags"`
	Author      string    `json:"author"`
	ReadTime    *string   `json:"read_time"`
	Pinned      bool      `json:"pinned"`
	PublishedAt string    `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PostStore implements blog post storage over the REST datastore
type PostStore struct {
	client *Client
}

func (s *PostStore) List(ctx context.Context) ([]*domain.Post, error) {
	query := url.Values{}
	query.Set("select", "id,slug,title,excerpt,tags,author,read_time,pinned,published_at,content")
	query.Set("order", "pinned.desc,published_at.desc")

	var rows []*domain.Post
	if err := s.client.do(ctx, http.MethodGet, postsPath, query, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PostStore) Update(ctx context.Context, post *domain.Post) error {
	query := url.Values{}
	query.Set("id", eq(post.ID))

	var readTime *string
	if post.ReadTime != "" {
		readTime = &post.ReadTime
	}

	patch := postPatch{
		Slug:        post.Slug,
		Title:       post.Title,
		Content:     post.Content,
		Excerpt:     post.Excerpt,
		Tags:        post.Tags,
		Author:      post.Author,
		ReadTime:    readTime,
		Pinned:      post.Pinned,
		PublishedAt: post.PublishedAt,
		UpdatedAt:   time.Now().UTC(),
	}

	// A patch matching zero rows succeeds silently; ask for the
	// affected rows back so a missing post surfaces as not found.
	var rows []domain.Post
	if err := s.client.doPrefer(ctx, http.MethodPatch, postsPath, query, patch, &rows,
		"return=representation"); err != nil {
		return err
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostStore) Delete(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", eq(id))

	var rows []domain.Post
	if err := s.client.doPrefer(ctx, http.MethodDelete, postsPath, query, nil, &rows,
		"return=representation"); err != nil {
		return err
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

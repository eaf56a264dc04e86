package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// ErrInvalidPost is returned when an update is missing required fields
var ErrInvalidPost = errors.New("post id, title, and content are required")

// BlogService mutates blog content through the datastore. Outside
// production a failed remote write falls back to a local markdown file
// so editing keeps working without the hosted database; the fallback
// never runs in production.
type BlogService struct {
	store  storage.Store
	cfg    *config.Config
	logger *zap.Logger
}

// NewBlogService creates a new BlogService
func NewBlogService(store storage.Store, cfg *config.Config, logger *zap.Logger) *BlogService {
	return &BlogService{
		store:  store,
		cfg:    cfg,
		logger: logger.Named("blog-service"),
	}
}

// List returns all posts, pinned first, newest first
func (s *BlogService) List(ctx context.Context) ([]*domain.Post, error) {
	return s.store.Posts().List(ctx)
}

// UpdateRequest carries a post mutation from the admin console
type UpdateRequest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug,omitempty"`
	Content     string   `json:"content"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Author      string   `json:"author,omitempty"`
	ReadTime    string   `json:"readTime,omitempty"`
	Pinned      bool     `json:"pinned,omitempty"`
	PublishedAt string   `json:"publishedAt,omitempty"`
}

// UpdateResult reports the outcome of an update
type UpdateResult struct {
	Slug     string
	Fallback bool
}

// Update writes a post to the datastore, deriving slug and excerpt
// when absent. author defaults to the acting admin email.
func (s *BlogService) Update(ctx context.Context, req *UpdateRequest, email string) (*UpdateResult, error) {
	if req == nil || req.ID == "" || req.Title == "" || req.Content == "" {
		return nil, ErrInvalidPost
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = domain.Slugify(req.Title)
	}

	excerpt := strings.TrimSpace(req.Excerpt)
	if excerpt == "" {
		excerpt = truncate(req.Content, 160)
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = email
	}

	publishedAt := req.PublishedAt
	if publishedAt == "" {
		publishedAt = time.Now().Format("2006-01-02")
	}

	post := &domain.Post{
		ID:          req.ID,
		Slug:        slug,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		Excerpt:     excerpt,
		Tags:        orEmpty(req.Tags),
		Author:      author,
		ReadTime:    strings.TrimSpace(req.ReadTime),
		Pinned:      req.Pinned,
		PublishedAt: publishedAt,
	}

	err := s.store.Posts().Update(ctx, post)
	if err == nil {
		return &UpdateResult{Slug: slug}, nil
	}

	if s.cfg.IsProduction() {
		return nil, err
	}

	s.logger.Warn("Remote post write failed, writing local fallback",
		zap.String("id", req.ID),
		zap.Error(err),
	)
	if err := s.writeLocalPost(post, req.ID); err != nil {
		return nil, err
	}
	return &UpdateResult{Slug: slug, Fallback: true}, nil
}

// Delete removes a post by id, with the same local fallback as Update
func (s *BlogService) Delete(ctx context.Context, id string) (fallback bool, err error) {
	err = s.store.Posts().Delete(ctx, id)
	if err == nil {
		return false, nil
	}

	if s.cfg.IsProduction() {
		return false, err
	}

	s.logger.Warn("Remote post delete failed, deleting local fallback",
		zap.String("id", id),
		zap.Error(err),
	)
	if err := s.deleteLocalPost(id); err != nil {
		return false, err
	}
	return true, nil
}

// writeLocalPost renders the post as a frontmatter markdown file under
// the configured posts directory. When the slug changed, the file for
// the previous slug is removed.
func (s *BlogService) writeLocalPost(post *domain.Post, previousSlug string) error {
	dir := s.cfg.Blog.LocalPostsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create posts directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", post.Title)
	fmt.Fprintf(&b, "date: %q\n", post.PublishedAt)
	if post.Author != "" {
		fmt.Fprintf(&b, "author: %q\n", post.Author)
	}
	if len(post.Tags) > 0 {
		b.WriteString("tags:\n")
		for _, tag := range post.Tags {
			fmt.Fprintf(&b, "  - %q\n", tag)
		}
	}
	if post.Excerpt != "" {
		fmt.Fprintf(&b, "excerpt: %q\n", post.Excerpt)
	}
	if post.ReadTime != "" {
		fmt.Fprintf(&b, "readTime: %q\n", post.ReadTime)
	}
	fmt.Fprintf(&b, "pinned: %t\n", post.Pinned)
	b.WriteString("---\n\n")
	if body := strings.TrimSpace(post.Content); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}

	path := filepath.Join(dir, post.Slug+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write local post: %w", err)
	}

	if previousSlug != "" && previousSlug != post.Slug {
		// Ignore missing files when renaming
		_ = os.Remove(filepath.Join(dir, previousSlug+".md"))
	}

	return nil
}

func (s *BlogService) deleteLocalPost(slug string) error {
	if err := os.Remove(filepath.Join(s.cfg.Blog.LocalPostsDir, slug+".md")); err != nil {
		return fmt.Errorf("failed to delete local post: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

package domain

import (
	"regexp"
	"strings"
	"time"
)

// Post is a blog post as stored in the content database.
type Post struct {
	ID          string    `json:"id" bson:"_id"`
	Slug        string    `json:"slug" bson:"slug"`
	Title       string    `json:"title" bson:"title"`
	Content     string    `json:"content" bson:"content"`
	Excerpt     string    `json:"excerpt" bson:"excerpt"`
	Tags        []string  `json:"tags" bson:"tags"`
	Author      string    `json:"author" bson:"author"`
	ReadTime    string    `json:"read_time,omitempty" bson:"read_time,omitempty"`
	Pinned      bool      `json:"pinned" bson:"pinned"`
	PublishedAt string    `json:"published_at" bson:"published_at"` // YYYY-MM-DD
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugCollapseRe = regexp.MustCompile(`-+`)
)

// Slugify derives a URL slug from a post title: lowercase, alphanumerics
// and hyphens only, capped at 80 characters.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

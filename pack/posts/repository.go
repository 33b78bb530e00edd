// Package posts provides tools for drafting and publishing blog posts.
package posts

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Common errors for post operations.
var (
	ErrPostNotFound     = errors.New("post not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyPublished = errors.New("post already published")
)

// Post status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post is a blog post.
type Post struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Update holds the fields of a partial post update. Nil fields are left
// unchanged.
type Update struct {
	Title   *string
	Content *string
}

// Repository stores posts.
type Repository interface {
	Create(ctx context.Context, title, content string) (Post, error)
	Get(ctx context.Context, id int) (Post, error)
	List(ctx context.Context, status string) ([]Post, error)
	Update(ctx context.Context, id int, u Update) (Post, error)
	Publish(ctx context.Context, id int) (Post, error)
}

// MemoryRepository is an in-memory Repository safe for concurrent use.
type MemoryRepository struct {
	mu     sync.RWMutex
	posts  map[int]Post
	nextID int
	now    func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		posts:  make(map[int]Post),
		nextID: 1,
		now:    time.Now,
	}
}

// Create stores a new draft.
func (r *MemoryRepository) Create(ctx context.Context, title, content string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	p := Post{
		ID:        r.nextID,
		Title:     title,
		Content:   content,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.posts[p.ID] = p
	r.nextID++
	return p, nil
}

// Get returns a post by id.
func (r *MemoryRepository) Get(ctx context.Context, id int) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

// List returns posts ordered by id. An empty status returns all posts.
func (r *MemoryRepository) List(ctx context.Context, status string) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Post, 0, len(r.posts))
	for _, p := range r.posts {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update applies a partial update.
func (r *MemoryRepository) Update(ctx context.Context, id int, u Update) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	p.UpdatedAt = r.now().UTC()
	r.posts[id] = p
	return p, nil
}

// Publish marks a draft as published.
func (r *MemoryRepository) Publish(ctx context.Context, id int) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	if p.Status == StatusPublished {
		return Post{}, ErrAlreadyPublished
	}
	now := r.now().UTC()
	p.Status = StatusPublished
	p.PublishedAt = &now
	p.UpdatedAt = now
	r.posts[id] = p
	return p, nil
}

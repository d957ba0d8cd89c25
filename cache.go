package wardblog

import (
	"context"
	"sync"
	"time"

	"github.com/rivergrove/wardblog/graphcms"
)

// contentLister is the slice of the backend the cache reads through.
type contentLister interface {
	ListPosts(ctx context.Context) ([]graphcms.Post, error)
	ListCategories(ctx context.Context) ([]graphcms.Category, error)
}

// ContentCache keeps the post feed and the category list in memory with a
// TTL, so the home page does not hit the backend on every request. Post
// detail pages always read through; only the lists are cached.
type ContentCache struct {
	mu         sync.RWMutex
	posts      []graphcms.Post
	categories []graphcms.Category
	fetched    time.Time
	ttl        time.Duration
	source     contentLister
	now        func() time.Time
}

// NewContentCache creates a cache reading through to source.
func NewContentCache(source contentLister, ttl time.Duration) *ContentCache {
	return &ContentCache{source: source, ttl: ttl, now: time.Now}
}

func (c *ContentCache) valid() bool {
	return c.posts != nil && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read pulls fresh lists. Called
// after every admin write.
func (c *ContentCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.categories = nil
	c.mu.Unlock()
}

// ensureLoaded returns cached lists after refreshing if stale. It tries a
// read lock first and only takes the write lock when a reload is needed.
func (c *ContentCache) ensureLoaded(ctx context.Context) ([]graphcms.Post, []graphcms.Category, error) {
	c.mu.RLock()
	if c.valid() {
		posts, categories := c.posts, c.categories
		c.mu.RUnlock()
		return posts, categories, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, c.categories, nil
	}
	posts, err := c.source.ListPosts(ctx)
	if err != nil {
		return nil, nil, err
	}
	categories, err := c.source.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	c.posts = posts
	c.categories = categories
	c.fetched = c.now()
	return posts, categories, nil
}

// Posts returns the published post feed, newest first.
func (c *ContentCache) Posts(ctx context.Context) ([]graphcms.Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	return posts, err
}

// Categories returns every category, for the masthead navigation.
func (c *ContentCache) Categories(ctx context.Context) ([]graphcms.Category, error) {
	_, categories, err := c.ensureLoaded(ctx)
	return categories, err
}

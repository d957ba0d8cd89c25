package graphcms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publisherBackend answers author probes and records mutations, with
// per-mutation failure switches.
type publisherBackend struct {
	fakeBackend
	knownAuthor string
	failCreate  bool
	failPublish bool
	failPhases  map[string]bool // substring of the update data key to fail
}

func newPublisherBackend(knownAuthor string) *publisherBackend {
	b := &publisherBackend{knownAuthor: knownAuthor, failPhases: map[string]bool{}}
	b.handle = b.dispatch
	return b
}

func (b *publisherBackend) dispatch(query string, vars map[string]any) (any, string) {
	switch {
	case strings.Contains(query, "AuthorByID"):
		if vars["id"] == b.knownAuthor {
			return map[string]any{"author": map[string]any{"id": b.knownAuthor}}, ""
		}
		return map[string]any{"author": nil}, ""
	case strings.Contains(query, "createPost"):
		if b.failCreate {
			return nil, "write refused"
		}
		data := vars["data"].(map[string]any)
		return map[string]any{"createPost": map[string]any{
			"id":   "post-1",
			"slug": data["slug"],
		}}, ""
	case strings.Contains(query, "updatePost"):
		data := vars["data"].(map[string]any)
		for key := range data {
			if b.failPhases[key] {
				return nil, "phase refused"
			}
		}
		return map[string]any{"updatePost": map[string]any{"id": "post-1", "slug": vars["slug"]}}, ""
	case strings.Contains(query, "publishPost"):
		if b.failPublish {
			return nil, "publish refused"
		}
		return map[string]any{"publishPost": map[string]any{
			"id": "post-1", "slug": vars["slug"], "stage": "PUBLISHED",
		}}, ""
	case strings.Contains(query, "deletePost"):
		return map[string]any{"deletePost": map[string]any{"id": "post-1", "slug": vars["slug"]}}, ""
	}
	return nil, "unexpected query"
}

func (b *publisherBackend) mutations(name string) []fakeRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []fakeRequest
	for _, r := range b.requests {
		if strings.Contains(r.Query, name) {
			out = append(out, r)
		}
	}
	return out
}

func TestCreatePostConnectsEverything(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	c, _ := newTestClient(t, &backend.fakeBackend)

	result, err := NewPublisher(c).CreatePost(t.Context(), Draft{
		Title:           "Ward Picnic 2025",
		Excerpt:         "Food and games at the park.",
		Content:         "Bring a side dish.",
		AuthorID:        "author-1",
		CategorySlugs:   []string{"activities"},
		FeaturedImageID: "asset-42",
	})
	require.NoError(t, err)
	assert.True(t, result.Published)
	assert.True(t, strings.HasPrefix(result.Ref.Slug, "ward-picnic-2025-"), "got %q", result.Ref.Slug)

	creates := backend.mutations("createPost")
	require.Len(t, creates, 1)
	data := creates[0].Variables["data"].(map[string]any)
	assert.Equal(t, "Ward Picnic 2025", data["title"])
	assert.Equal(t, map[string]any{"connect": map[string]any{"id": "author-1"}}, data["author"])
	assert.Equal(t, map[string]any{"connect": []any{map[string]any{"slug": "activities"}}}, data["category"])
	assert.Equal(t, map[string]any{"connect": map[string]any{"id": "asset-42"}}, data["featuredImage"])
	require.Contains(t, data, "content")

	require.Len(t, backend.mutations("publishPost"), 1)
}

func TestCreatePostValidationBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	c, _ := newTestClient(t, &backend.fakeBackend)
	p := NewPublisher(c)

	_, err := p.CreatePost(t.Context(), Draft{AuthorID: "author-1"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
	assert.Equal(t, 0, backend.count(), "missing title is rejected before any request")

	_, err = p.CreatePost(t.Context(), Draft{Title: "Untitled", AuthorID: "author-ghost"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "author", vErr.Field)
	assert.Empty(t, backend.mutations("createPost"), "unresolved author blocks the write")
}

func TestCreatePostPublishFailureIsPartialSuccess(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	backend.failPublish = true
	c, _ := newTestClient(t, &backend.fakeBackend)

	result, err := NewPublisher(c).CreatePost(t.Context(), Draft{
		Title:    "Ward Picnic 2025",
		AuthorID: "author-1",
	})
	require.NoError(t, err, "the record exists; publish failure is not a write failure")
	assert.NotEmpty(t, result.Ref.Slug, "caller can retrieve and re-publish by slug")
	assert.False(t, result.Published)
	require.Error(t, result.PublishErr)
}

func TestCreatePostWriteFailure(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	backend.failCreate = true
	c, _ := newTestClient(t, &backend.fakeBackend)

	_, err := NewPublisher(c).CreatePost(t.Context(), Draft{Title: "T", AuthorID: "author-1"})
	var wErr *WriteError
	require.ErrorAs(t, err, &wErr)
	assert.Empty(t, backend.mutations("publishPost"), "no publish after a failed write")
}

func TestCreatePostSucceedsWithUnactivatedAsset(t *testing.T) {
	t.Parallel()

	// Content write and asset activation are independent: connecting a
	// draft asset must not block the create.
	backend := newPublisherBackend("author-1")
	c, _ := newTestClient(t, &backend.fakeBackend)

	result, err := NewPublisher(c).CreatePost(t.Context(), Draft{
		Title:           "Ward Picnic 2025",
		AuthorID:        "author-1",
		FeaturedImageID: "asset-still-draft",
	})
	require.NoError(t, err)
	assert.True(t, result.Published)
}

func TestUpdatePostRunsAllPhasesThroughFailure(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	backend.failPhases["title"] = true // core phase carries the title key
	c, _ := newTestClient(t, &backend.fakeBackend)

	result, err := NewPublisher(c).UpdatePost(t.Context(), "ward-picnic-2025-abc", Draft{
		Title:         "Ward Picnic 2025 (updated)",
		AuthorID:      "author-1",
		CategorySlugs: []string{"activities", "service"},
	})
	require.NoError(t, err)
	require.Len(t, result.Phases, 3)
	assert.Equal(t, PhaseCore, result.Phases[0].Phase)
	assert.Error(t, result.Phases[0].Err)
	assert.NoError(t, result.Phases[1].Err, "image phase still attempted")
	assert.NoError(t, result.Phases[2].Err, "category phase still attempted")

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, PhaseCore, failed[0].Phase)

	assert.Len(t, backend.mutations("updatePost"), 3, "no phase is skipped after a failure")
}

func TestUpdatePostCategorySetReplacement(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	c, _ := newTestClient(t, &backend.fakeBackend)

	_, err := NewPublisher(c).UpdatePost(t.Context(), "ward-picnic-2025-abc", Draft{
		Title:         "Ward Picnic 2025",
		AuthorID:      "author-1",
		CategorySlugs: []string{"service"},
	})
	require.NoError(t, err)

	var sawSet bool
	for _, m := range backend.mutations("updatePost") {
		data := m.Variables["data"].(map[string]any)
		if cat, ok := data["category"].(map[string]any); ok {
			sawSet = true
			assert.Equal(t, map[string]any{"set": []any{map[string]any{"slug": "service"}}}, cat)
		}
	}
	assert.True(t, sawSet, "category phase replaces the full set")
}

func TestUpdatePostDisconnectsImageWhenCleared(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	c, _ := newTestClient(t, &backend.fakeBackend)

	_, err := NewPublisher(c).UpdatePost(t.Context(), "ward-picnic-2025-abc", Draft{
		Title:    "Ward Picnic 2025",
		AuthorID: "author-1",
	})
	require.NoError(t, err)

	var sawDisconnect bool
	for _, m := range backend.mutations("updatePost") {
		data := m.Variables["data"].(map[string]any)
		if img, ok := data["featuredImage"].(map[string]any); ok {
			sawDisconnect = true
			assert.Equal(t, map[string]any{"disconnect": true}, img)
		}
	}
	assert.True(t, sawDisconnect)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()

	backend := newPublisherBackend("author-1")
	c, _ := newTestClient(t, &backend.fakeBackend)

	require.NoError(t, NewPublisher(c).DeletePost(t.Context(), "ward-picnic-2025-abc"))
	require.Len(t, backend.mutations("deletePost"), 1)
}

package graphcms

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
)

// Publisher orchestrates post writes: compose the record, write it, then
// move it to the published stage. Write and publish are separate backend
// operations with separate failure modes, and results keep them apart so
// the operator can tell "not saved" from "saved but not yet visible".
type Publisher struct {
	client *Client
}

// NewPublisher returns a Publisher sharing the client's management
// endpoint.
func NewPublisher(c *Client) *Publisher {
	return &Publisher{client: c}
}

// Draft carries the operator-supplied fields for a create or update.
// Content is plain text; it is wrapped into the backend's rich-text tree
// before writing.
type Draft struct {
	Title           string
	Excerpt         string
	Content         string
	AuthorID        string
	CategorySlugs   []string
	FeaturedImageID string
}

// CreateResult reports a create. Ref is always set on return with nil
// error; Published false means the record exists in draft and publish can
// be re-issued.
type CreateResult struct {
	Ref        PostRef
	Published  bool
	PublishErr error
}

// Phase names one of the three independent update writes.
type Phase string

const (
	PhaseCore       Phase = "core"
	PhaseImage      Phase = "image"
	PhaseCategories Phase = "categories"
)

// PhaseResult is the outcome of one update phase.
type PhaseResult struct {
	Phase Phase
	Err   error
}

// UpdateResult reports a three-phase update. Phases always holds all three
// outcomes; a failed phase never stops the later ones.
type UpdateResult struct {
	Ref        PostRef
	Phases     []PhaseResult
	Published  bool
	PublishErr error
}

// Failed returns the phases that did not complete.
func (r UpdateResult) Failed() []PhaseResult {
	var failed []PhaseResult
	for _, p := range r.Phases {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

const createPostMutation = `
mutation CreatePost($data: PostCreateInput!) {
  createPost(data: $data) {
    id
    slug
  }
}`

const updatePostMutation = `
mutation UpdatePost($slug: String!, $data: PostUpdateInput!) {
  updatePost(where: { slug: $slug }, data: $data) {
    id
    slug
  }
}`

const publishPostMutation = `
mutation PublishPost($slug: String!) {
  publishPost(where: { slug: $slug }, to: PUBLISHED) {
    id
    slug
    stage
  }
}`

const deletePostMutation = `
mutation DeletePost($slug: String!) {
  deletePost(where: { slug: $slug }) {
    id
  }
}`

// validate checks the draft before any write. The author probe is the only
// network call; everything else is local.
func (p *Publisher) validate(ctx context.Context, d Draft) error {
	if d.Title == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if d.AuthorID == "" {
		return &ValidationError{Field: "author", Reason: "author is required"}
	}
	exists, err := p.client.authorExists(ctx, d.AuthorID)
	if err != nil {
		return err
	}
	if !exists {
		return &ValidationError{Field: "author", Reason: "author " + d.AuthorID + " does not exist"}
	}
	return nil
}

// CreatePost derives a slug, composes the record in one write, then
// publishes it. A publish failure after a successful write returns a nil
// error with PublishErr set: the draft exists and is retrievable by slug.
func (p *Publisher) CreatePost(ctx context.Context, d Draft) (CreateResult, error) {
	if err := p.validate(ctx, d); err != nil {
		return CreateResult{}, err
	}

	slug := MakeSlug(d.Title)
	data := map[string]any{
		"title":   d.Title,
		"slug":    slug,
		"excerpt": d.Excerpt,
		"content": FromPlainText(d.Content).Raw,
		"author":  map[string]any{"connect": map[string]any{"id": d.AuthorID}},
	}
	if len(d.CategorySlugs) > 0 {
		data["category"] = map[string]any{"connect": categoryRefs(d.CategorySlugs)}
	}
	if d.FeaturedImageID != "" {
		data["featuredImage"] = map[string]any{"connect": map[string]any{"id": d.FeaturedImageID}}
	}

	req := graphql.NewRequest(createPostMutation)
	req.Var("data", data)
	var resp struct {
		CreatePost *PostRef `json:"createPost"`
	}
	if err := p.client.runManagement(ctx, req, &resp); err != nil {
		return CreateResult{}, &WriteError{Op: "createPost", Err: err}
	}
	if resp.CreatePost == nil {
		return CreateResult{}, &WriteError{Op: "createPost", Err: fmt.Errorf("no post in response")}
	}

	result := CreateResult{Ref: *resp.CreatePost, Published: true}
	if err := p.PublishPost(ctx, result.Ref.Slug); err != nil {
		result.Published = false
		result.PublishErr = err
		p.client.log.Warn("post written but not published", "slug", result.Ref.Slug, "error", err)
	} else {
		p.client.log.Info("post published", "slug", result.Ref.Slug)
	}
	return result, nil
}

// UpdatePost rewrites a post in three independent writes: core fields, the
// featured-image connection, and the category set (full replacement). The
// backend has no multi-write transaction, so each phase may fail alone;
// the remaining phases are still attempted and the result reports each
// outcome. A final re-publish runs when any phase succeeded.
func (p *Publisher) UpdatePost(ctx context.Context, slug string, d Draft) (UpdateResult, error) {
	if err := p.validate(ctx, d); err != nil {
		return UpdateResult{}, err
	}

	result := UpdateResult{Ref: PostRef{Slug: slug}}

	imageData := map[string]any{"featuredImage": map[string]any{"disconnect": true}}
	if d.FeaturedImageID != "" {
		imageData = map[string]any{
			"featuredImage": map[string]any{"connect": map[string]any{"id": d.FeaturedImageID}},
		}
	}

	phases := []struct {
		phase Phase
		data  map[string]any
	}{
		{PhaseCore, map[string]any{
			"title":   d.Title,
			"excerpt": d.Excerpt,
			"content": FromPlainText(d.Content).Raw,
		}},
		{PhaseImage, imageData},
		{PhaseCategories, map[string]any{
			"category": map[string]any{"set": categoryRefs(d.CategorySlugs)},
		}},
	}

	anyOK := false
	for _, ph := range phases {
		ref, err := p.updatePhase(ctx, slug, ph.data)
		if err != nil {
			p.client.log.Warn("update phase failed", "slug", slug, "phase", ph.phase, "error", err)
		} else {
			anyOK = true
			result.Ref = ref
		}
		result.Phases = append(result.Phases, PhaseResult{Phase: ph.phase, Err: err})
	}

	if anyOK {
		result.Published = true
		if err := p.PublishPost(ctx, slug); err != nil {
			result.Published = false
			result.PublishErr = err
		}
	}
	return result, nil
}

func (p *Publisher) updatePhase(ctx context.Context, slug string, data map[string]any) (PostRef, error) {
	req := graphql.NewRequest(updatePostMutation)
	req.Var("slug", slug)
	req.Var("data", data)
	var resp struct {
		UpdatePost *PostRef `json:"updatePost"`
	}
	if err := p.client.runManagement(ctx, req, &resp); err != nil {
		return PostRef{}, &WriteError{Op: "updatePost", Err: err}
	}
	if resp.UpdatePost == nil {
		return PostRef{}, &WriteError{Op: "updatePost", Err: ErrNotFound}
	}
	return *resp.UpdatePost, nil
}

// PublishPost moves a written post to the published stage. Safe to
// re-issue after a publish failure.
func (p *Publisher) PublishPost(ctx context.Context, slug string) error {
	req := graphql.NewRequest(publishPostMutation)
	req.Var("slug", slug)
	var resp struct {
		PublishPost *PostRef `json:"publishPost"`
	}
	if err := p.client.runManagement(ctx, req, &resp); err != nil {
		return err
	}
	if resp.PublishPost == nil {
		return fmt.Errorf("publishPost returned no post")
	}
	return nil
}

// DeletePost removes a post by slug. Assets the post referenced are left
// in place; orphaned assets are an accepted cost.
func (p *Publisher) DeletePost(ctx context.Context, slug string) error {
	req := graphql.NewRequest(deletePostMutation)
	req.Var("slug", slug)
	var resp struct {
		DeletePost *PostRef `json:"deletePost"`
	}
	if err := p.client.runManagement(ctx, req, &resp); err != nil {
		return &WriteError{Op: "deletePost", Err: err}
	}
	if resp.DeletePost == nil {
		return &WriteError{Op: "deletePost", Err: ErrNotFound}
	}
	p.client.log.Info("post deleted", "slug", slug)
	return nil
}

func categoryRefs(slugs []string) []map[string]any {
	refs := make([]map[string]any, 0, len(slugs))
	for _, s := range slugs {
		refs = append(refs, map[string]any{"slug": s})
	}
	return refs
}

package graphcms

import (
	"context"

	"github.com/machinebox/graphql"
)

// Read queries. All are side-effect-free and go through the public
// endpoint unless the result must include draft records.

const listPostsQuery = `
query ListPosts {
  postsConnection(orderBy: createdAt_DESC) {
    edges {
      node {
        id
        createdAt
        slug
        title
        excerpt
        author {
          id
          name
          bio
          photo {
            url
          }
        }
        featuredImage {
          id
          url
        }
        category {
          name
          slug
        }
      }
    }
  }
}`

const recentPostsQuery = `
query RecentPosts {
  posts(orderBy: createdAt_DESC, first: 3) {
    title
    featuredImage {
      url
    }
    createdAt
    slug
  }
}`

const similarPostsQuery = `
query SimilarPosts($slug: String!, $categories: [String!]) {
  posts(
    where: { slug_not: $slug, AND: { category_some: { slug_in: $categories } } }
    last: 3
  ) {
    title
    featuredImage {
      url
    }
    createdAt
    slug
  }
}`

const postDetailsQuery = `
query GetPostDetails($slug: String!) {
  post(where: { slug: $slug }) {
    id
    createdAt
    slug
    title
    excerpt
    author {
      id
      name
      bio
      photo {
        url
      }
    }
    featuredImage {
      id
      url
    }
    category {
      name
      slug
    }
    content {
      raw
    }
  }
}`

const categoriesQuery = `
query GetCategories {
  categories {
    name
    slug
  }
}`

const categoryPostsQuery = `
query GetCategoryPosts($slug: String!) {
  postsConnection(where: { category_some: { slug: $slug } }, orderBy: createdAt_DESC) {
    edges {
      node {
        id
        createdAt
        slug
        title
        excerpt
        author {
          id
          name
          bio
          photo {
            url
          }
        }
        featuredImage {
          id
          url
        }
        category {
          name
          slug
        }
      }
    }
  }
}`

const allPostsQuery = `
query AllPosts {
  postsConnection(stage: DRAFT, orderBy: createdAt_DESC) {
    edges {
      node {
        id
        createdAt
        slug
        title
        excerpt
        author {
          id
          name
        }
        featuredImage {
          id
          url
        }
        category {
          name
          slug
        }
      }
    }
  }
}`

const postAnyStageQuery = `
query GetPostAnyStage($slug: String!) {
  post(where: { slug: $slug }, stage: DRAFT) {
    id
    createdAt
    slug
    title
    excerpt
    author {
      id
      name
    }
    featuredImage {
      id
      url
    }
    category {
      name
      slug
    }
    content {
      raw
    }
  }
}`

const authorsQuery = `
query ListAuthors {
  authors {
    id
    name
    bio
    email
    photo {
      url
    }
  }
}`

const authorByEmailQuery = `
query AuthorByEmail($email: String!) {
  author(where: { email: $email }) {
    id
    name
    bio
    email
  }
}`

const authorByIDQuery = `
query AuthorByID($id: ID!) {
  author(where: { id: $id }) {
    id
  }
}`

type connectionResponse struct {
	PostsConnection struct {
		Edges []struct {
			Node Post `json:"node"`
		} `json:"edges"`
	} `json:"postsConnection"`
}

func (r connectionResponse) posts() []Post {
	posts := make([]Post, 0, len(r.PostsConnection.Edges))
	for _, edge := range r.PostsConnection.Edges {
		posts = append(posts, edge.Node)
	}
	return posts
}

// ListPosts returns all published posts, newest first.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var resp connectionResponse
	if err := c.runPublic(ctx, graphql.NewRequest(listPostsQuery), &resp); err != nil {
		return nil, err
	}
	return resp.posts(), nil
}

// RecentPosts returns the three newest published posts.
func (c *Client) RecentPosts(ctx context.Context) ([]Post, error) {
	var resp struct {
		Posts []Post `json:"posts"`
	}
	if err := c.runPublic(ctx, graphql.NewRequest(recentPostsQuery), &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// SimilarPosts returns up to three posts sharing a category with the
// given slug, excluding the post itself.
func (c *Client) SimilarPosts(ctx context.Context, categorySlugs []string, excludeSlug string) ([]Post, error) {
	req := graphql.NewRequest(similarPostsQuery)
	req.Var("slug", excludeSlug)
	req.Var("categories", categorySlugs)
	var resp struct {
		Posts []Post `json:"posts"`
	}
	if err := c.runPublic(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// GetPost returns the full detail for one published post, including the
// rich-text body. An unknown slug is ErrNotFound, never a transport error.
func (c *Client) GetPost(ctx context.Context, slug string) (Post, error) {
	req := graphql.NewRequest(postDetailsQuery)
	req.Var("slug", slug)
	var resp struct {
		Post *Post `json:"post"`
	}
	if err := c.runPublic(ctx, req, &resp); err != nil {
		return Post{}, err
	}
	if resp.Post == nil {
		return Post{}, ErrNotFound
	}
	return *resp.Post, nil
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var resp struct {
		Categories []Category `json:"categories"`
	}
	if err := c.runPublic(ctx, graphql.NewRequest(categoriesQuery), &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// PostsByCategory returns published posts carrying the category slug,
// newest first.
func (c *Client) PostsByCategory(ctx context.Context, slug string) ([]Post, error) {
	req := graphql.NewRequest(categoryPostsQuery)
	req.Var("slug", slug)
	var resp connectionResponse
	if err := c.runPublic(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.posts(), nil
}

// AllPosts returns every post at draft stage via the management endpoint.
// Each published post has a draft counterpart, so this is the complete
// list, including posts whose publish never went through.
func (c *Client) AllPosts(ctx context.Context) ([]Post, error) {
	var resp connectionResponse
	if err := c.runManagement(ctx, graphql.NewRequest(allPostsQuery), &resp); err != nil {
		return nil, err
	}
	return resp.posts(), nil
}

// GetPostAny returns one post at draft stage, for editing. Unknown slug is
// ErrNotFound.
func (c *Client) GetPostAny(ctx context.Context, slug string) (Post, error) {
	req := graphql.NewRequest(postAnyStageQuery)
	req.Var("slug", slug)
	var resp struct {
		Post *Post `json:"post"`
	}
	if err := c.runManagement(ctx, req, &resp); err != nil {
		return Post{}, err
	}
	if resp.Post == nil {
		return Post{}, ErrNotFound
	}
	return *resp.Post, nil
}

// ListAuthors returns every author via the management endpoint, so authors
// not yet referenced by published posts are included.
func (c *Client) ListAuthors(ctx context.Context) ([]Author, error) {
	var resp struct {
		Authors []Author `json:"authors"`
	}
	if err := c.runManagement(ctx, graphql.NewRequest(authorsQuery), &resp); err != nil {
		return nil, err
	}
	return resp.Authors, nil
}

// AuthorByEmail resolves an operator email to an author record. Unknown
// email is ErrNotFound.
func (c *Client) AuthorByEmail(ctx context.Context, email string) (Author, error) {
	req := graphql.NewRequest(authorByEmailQuery)
	req.Var("email", email)
	var resp struct {
		Author *Author `json:"author"`
	}
	if err := c.runManagement(ctx, req, &resp); err != nil {
		return Author{}, err
	}
	if resp.Author == nil {
		return Author{}, ErrNotFound
	}
	return *resp.Author, nil
}

// authorExists probes the management endpoint for an author id.
func (c *Client) authorExists(ctx context.Context, id string) (bool, error) {
	req := graphql.NewRequest(authorByIDQuery)
	req.Var("id", id)
	var resp struct {
		Author *struct {
			ID string `json:"id"`
		} `json:"author"`
	}
	if err := c.runManagement(ctx, req, &resp); err != nil {
		return false, err
	}
	return resp.Author != nil, nil
}

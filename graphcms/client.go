// Package graphcms is the client for the hosted headless content backend.
// It carries the read queries the public site renders from, the asset
// upload pipeline, and the post publishing workflow. All records live in
// the backend; this package holds only request-scoped representations.
package graphcms

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sethvargo/go-retry"
)

// Config configures a Client. Endpoint and Token are required; the
// management endpoint is derived from the CDN endpoint unless overridden.
type Config struct {
	// Endpoint is the public CDN content endpoint. Published content only,
	// no credential required.
	Endpoint string

	// Token is the bearer credential for the management endpoint.
	Token string

	// ManagementEndpoint overrides the derived read/write endpoint.
	ManagementEndpoint string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues queries against the public endpoint and mutations against
// the authenticated management endpoint.
type Client struct {
	public *graphql.Client
	mgmt   *graphql.Client
	token  string
	http   *http.Client
	log    *slog.Logger
}

// The CDN endpoint serves published content; management calls go to the
// regional API host. us-west-2.cdn.hygraph.com/content/<id>/<env> maps to
// api-us-west-2.hygraph.com/v2/<id>/<env>.
var cdnEndpointPattern = regexp.MustCompile(`^(https?://)([a-z0-9-]+)\.cdn\.hygraph\.com/content(/.*)?$`)

// NewClient validates cfg and returns a Client. Missing endpoint or token
// is a *ConfigError; nothing is sent over the network here.
func NewClient(cfg Config) (*Client, error) {
	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, "GRAPHCMS_ENDPOINT")
	}
	if cfg.Token == "" {
		missing = append(missing, "GRAPHCMS_TOKEN")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mgmtEndpoint := cfg.ManagementEndpoint
	if mgmtEndpoint == "" {
		mgmtEndpoint = ManagementEndpoint(cfg.Endpoint)
	}

	return &Client{
		public: graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(hc)),
		mgmt:   graphql.NewClient(mgmtEndpoint, graphql.WithHTTPClient(hc)),
		token:  cfg.Token,
		http:   hc,
		log:    logger.With("component", "graphcms"),
	}, nil
}

// ManagementEndpoint derives the authenticated read/write endpoint from a
// CDN content endpoint. Endpoints that are not CDN-shaped are returned
// unchanged and used for both roles.
func ManagementEndpoint(endpoint string) string {
	m := cdnEndpointPattern.FindStringSubmatch(endpoint)
	if m == nil {
		return endpoint
	}
	return m[1] + "api-" + m[2] + ".hygraph.com/v2" + m[3]
}

// runPublic executes a read against the public endpoint. Reads are
// side-effect-free, so one bounded retry is attempted on transport
// failure before the error surfaces as ErrUnavailable.
func (c *Client) runPublic(ctx context.Context, req *graphql.Request, out any) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.public.Run(ctx, req, out); err != nil {
			if isTransportErr(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		c.log.Warn("read query failed", "error", err)
		return classify(err)
	}
	return nil
}

// isTransportErr separates network and decode failures, which a second
// attempt can recover from, from errors the server itself returned,
// which the client library prefixes with "graphql:" and which will not
// change on retry.
func isTransportErr(err error) bool {
	return !strings.HasPrefix(err.Error(), "graphql:")
}

// runManagement executes a query or mutation against the authenticated
// endpoint. Mutations are not retried.
func (c *Client) runManagement(ctx context.Context, req *graphql.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	if err := c.mgmt.Run(ctx, req, out); err != nil {
		return classify(err)
	}
	return nil
}

// Package policyapi implements the HTTP client for the upstream policy API.
// It translates upstream status codes into resolution outcomes: 404 means the
// hostname is not configured, any other non-2xx is a resolution error.
package policyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloakedge/cloakedge/internal/edge/common/log"
	"github.com/cloakedge/cloakedge/internal/edge/domain"
	"github.com/cloakedge/cloakedge/internal/edge/services/router"
)

const (
	resolvePath   = "/domains/resolve"
	challengePath = "/acme/challenge"

	// challenge values are short base64url tokens; anything bigger is garbage
	maxChallengeBody = 4 << 10
)

// policyDocument is the wire shape of a domain policy as served by the API.
type policyDocument struct {
	Host           string `json:"host"`
	WhiteOrigin    string `json:"whiteOrigin"`
	BlackOrigin    string `json:"blackOrigin"`
	UABlockPattern string `json:"uaBlockPattern"`
	Status         string `json:"status"`
}

// Client resolves domain policies and ACME challenge values against the
// policy API over HTTP.
type Client struct {
	base       *url.URL
	token      string
	httpClient *http.Client
	logger     log.Logger
}

// Options configures a Client. BaseURL is required. Timeout defaults to
// 10 seconds; HTTPClient and Logger are injectable for tests.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     log.Logger
}

// NewClient constructs a policy API client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("policy API base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid policy API base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("policy API base URL %q must be http or https", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Client{
		base:       base,
		token:      opts.Token,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}, nil
}

// Resolve fetches the domain policy for host. It returns
// domain.ErrNotConfigured on upstream 404 and *domain.ResolutionError for
// network failures, unexpected statuses and malformed bodies.
func (c *Client) Resolve(ctx context.Context, host string) (domain.DomainPolicy, error) {
	resp, err := c.get(ctx, resolvePath, url.Values{"host": {host}})
	if err != nil {
		return domain.DomainPolicy{}, &domain.ResolutionError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.DomainPolicy{}, domain.ErrNotConfigured
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return domain.DomainPolicy{}, &domain.ResolutionError{Host: host, Status: resp.StatusCode}
	}

	var doc policyDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return domain.DomainPolicy{}, &domain.ResolutionError{Host: host, Err: fmt.Errorf("malformed policy body: %w", err)}
	}
	if doc.Host == "" {
		// the API keys policies by the queried hostname
		doc.Host = host
	}

	policy, err := domain.NewDomainPolicy(doc.Host, doc.WhiteOrigin, doc.BlackOrigin, doc.UABlockPattern, doc.Status)
	if err != nil {
		return domain.DomainPolicy{}, &domain.ResolutionError{Host: host, Err: err}
	}
	if domain.PatternDropped(doc.UABlockPattern, policy) {
		c.logger.Warn(map[string]any{
			"host":    host,
			"pattern": doc.UABlockPattern,
		}, "Policy block pattern does not compile, using default")
	}
	return policy, nil
}

// Challenge looks up the value for an ACME challenge token. It returns
// domain.ErrUnknownChallenge when the API does not know the token.
func (c *Client) Challenge(ctx context.Context, token string) (string, error) {
	resp, err := c.get(ctx, challengePath, url.Values{"token": {token}})
	if err != nil {
		return "", fmt.Errorf("challenge lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", domain.ErrUnknownChallenge
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("challenge lookup: upstream status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeBody))
	if err != nil {
		return "", fmt.Errorf("challenge lookup: %w", err)
	}
	value := strings.TrimSpace(string(body))
	if value == "" {
		return "", domain.ErrUnknownChallenge
	}
	return value, nil
}

// get issues an authenticated GET against a policy API path.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

var _ router.PolicyProvider = (*Client)(nil)

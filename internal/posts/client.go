package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	DefaultTimeout = 15 * time.Second

	defaultUserAgent = "postboard/1.0"
	maxBodyBytes     = 8 << 20
)

var errNullPost = errors.New("response body is null")

// Post is a blog post as served by the remote data source.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PostSummary is what the list view shows. The remote service returns full
// posts in the list, so no separate projection exists.
type PostSummary = Post

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userAgent) != "" {
			c.userAgent = strings.TrimSpace(userAgent)
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client reads posts from the remote data source. Each call issues exactly
// one request; nothing is cached or retried.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	logger    zerolog.Logger
}

func NewClient(cfg ClientConfig, opts ...Option) (*Client, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var items []Post
	if _, err := c.getJSON(ctx, "/posts", &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Post{}
	}

	return items, nil
}

// GetPost fetches one post. A successful response whose body is JSON null
// is a decode failure, not an empty post.
func (c *Client) GetPost(ctx context.Context, id int) (Post, error) {
	path := "/posts/" + strconv.Itoa(id)

	var post *Post
	status, err := c.getJSON(ctx, path, &post)
	if err != nil {
		return Post{}, err
	}
	if post == nil {
		return Post{}, &Failure{
			Kind:       KindDecode,
			StatusCode: status,
			Err:        fmt.Errorf("decode %s: %w", path, errNullPost),
		}
	}

	return *post, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target interface{}) (int, error) {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("remote request finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, newHTTPFailure(resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(target); err != nil {
		return resp.StatusCode, &Failure{
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode %s: %w", path, err),
		}
	}

	return resp.StatusCode, nil
}

// ParseID validates a raw route parameter as a post id. Only plain base-10
// positive integers are accepted.
func ParseID(raw string) (int, error) {
	invalid := &Failure{Kind: KindInvalidInput, Input: raw}
	if raw == "" || len(raw) > 18 {
		return 0, invalid
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, invalid
		}
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, invalid
	}

	return id, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("base url must include a host")
	}

	return strings.TrimRight(raw, "/"), nil
}

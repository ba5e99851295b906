// Package github talks to the GitHub REST API for pull request comment
// management and maintains the platform's sticky result comment.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIBaseURL is the public GitHub API endpoint.
	DefaultAPIBaseURL = "https://api.github.com"

	httpTimeout = 30 * time.Second

	// GitHub's secondary rate limits dislike bursts; keep comment
	// traffic well under one request per second on average.
	requestsPerSecond = 1
	requestBurst      = 5

	commentsPerPage = 100
)

// APIError is returned for non-2xx responses from the comment API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: %s returned %d: %s", e.URL, e.StatusCode, e.Message)
}

// Comment is the subset of a GitHub issue comment the engine needs.
type Comment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// Client is a minimal GitHub REST client for issue comments.
type Client struct {
	log        logrus.FieldLogger
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. An empty baseURL selects the public API.
func NewClient(log logrus.FieldLogger, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	return &Client{
		log:        log.WithField("component", "github-client"),
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: httpTimeout},
		limiter:    rate.NewLimiter(requestsPerSecond, requestBurst),
	}
}

// ListIssueComments returns all comments on a pull request (issues and
// pull requests share the comment API), following pagination.
func (c *Client) ListIssueComments(ctx context.Context, repo string, number int) ([]Comment, error) {
	var all []Comment

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/issues/%d/comments?per_page=%d&page=%d",
			c.baseURL, repo, number, commentsPerPage, page)

		var comments []Comment
		if err := c.do(ctx, http.MethodGet, url, nil, &comments); err != nil {
			return nil, err
		}

		all = append(all, comments...)

		if len(comments) < commentsPerPage {
			return all, nil
		}
	}
}

// CreateIssueComment posts a new comment on a pull request.
func (c *Client) CreateIssueComment(ctx context.Context, repo string, number int, body string) (*Comment, error) {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", c.baseURL, repo, number)

	var created Comment
	if err := c.do(ctx, http.MethodPost, url, map[string]string{"body": body}, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// UpdateIssueComment rewrites an existing comment in place.
func (c *Client) UpdateIssueComment(ctx context.Context, repo string, commentID int64, body string) (*Comment, error) {
	url := fmt.Sprintf("%s/repos/%s/issues/comments/%d", c.baseURL, repo, commentID)

	var updated Comment
	if err := c.do(ctx, http.MethodPatch, url, map[string]string{"body": body}, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// do performs one rate-limited API request and decodes the response.
func (c *Client) do(ctx context.Context, method, url string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var reqBody io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
	}).Debug("GitHub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			URL:        url,
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Package apiclient talks to the givegram backend. Every failure is returned
// as a *failure.Error so callers can tell a confirmed Unauthorized apart from
// anything else.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"givegram/internal/failure"
	"givegram/internal/models"
)

// API is the request/response surface used by the session manager and the
// run controller.
type API interface {
	Authenticate(ctx context.Context, credential string) (handle, username string, err error)
	Invalidate(ctx context.Context, handle string) error
	Validate(ctx context.Context, handle string) (username string, err error)
	FetchComments(ctx context.Context, postRef, handle string) (models.CommentSet, error)
	SelectWinners(ctx context.Context, participants []models.Participant, settings models.GiveawaySettings) (models.WinnerList, error)
}

const defaultTimeout = 60 * time.Second

// Client is an HTTP+JSON implementation of API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is copied,
// never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}

	hc := http.Client{Timeout: defaultTimeout}
	if c.httpClient != nil {
		hc = *c.httpClient
	}
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c
}

// Authenticate exchanges a platform credential for a backend session handle.
func (c *Client) Authenticate(ctx context.Context, credential string) (string, string, error) {
	var resp models.LoginResponse
	if err := c.post(ctx, "/api/login", models.LoginRequest{SessionCookie: credential}, &resp); err != nil {
		return "", "", err
	}
	if resp.SessionID == "" {
		return "", "", failure.NewTransient(http.StatusOK, "login response missing session id", nil)
	}
	return resp.SessionID, resp.Username, nil
}

// Invalidate discards handle on the backend.
func (c *Client) Invalidate(ctx context.Context, handle string) error {
	path := "/api/logout?session_id=" + url.QueryEscape(handle)
	return c.post(ctx, path, nil, nil)
}

// Validate checks whether handle is still known to the backend.
func (c *Client) Validate(ctx context.Context, handle string) (string, error) {
	var resp models.ValidateSessionResponse
	if err := c.post(ctx, "/api/validate-session", models.ValidateSessionRequest{SessionID: handle}, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// FetchComments returns the aggregated commenters of postRef.
func (c *Client) FetchComments(ctx context.Context, postRef, handle string) (models.CommentSet, error) {
	var resp models.FetchCommentsResponse
	req := models.FetchCommentsRequest{URL: postRef, SessionID: handle}
	if err := c.post(ctx, "/api/fetch-comments", req, &resp); err != nil {
		return models.CommentSet{}, err
	}
	return models.CommentSet{Participants: resp.Users, TotalComments: resp.TotalComments}, nil
}

// SelectWinners asks the backend to draw winners from participants.
func (c *Client) SelectWinners(ctx context.Context, participants []models.Participant, settings models.GiveawaySettings) (models.WinnerList, error) {
	var resp models.PickWinnersResponse
	req := models.PickWinnersRequest{
		Users:       participants,
		NumWinners:  settings.WinnerCount,
		MinComments: settings.MinComments,
	}
	if err := c.post(ctx, "/api/pick-winners", req, &resp); err != nil {
		return nil, err
	}
	return models.WinnerList(resp.Winners), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return failure.NewTransient(0, "", fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return failure.NewTransient(0, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure.NewTransient(0, "", fmt.Errorf("post %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readDetail(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			return failure.NewUnauthorized(resp.StatusCode, detail)
		}
		return failure.NewTransient(resp.StatusCode, detail, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure.NewTransient(resp.StatusCode, "", fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// readDetail extracts the "detail" field of an error body. Validation errors
// from the backend may carry a non-string detail; those fall back to the
// generic message.
func readDetail(r io.Reader) string {
	var body models.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return ""
	}
	return body.Detail
}

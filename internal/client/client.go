// Package client is a typed HTTP client for the UT Vibe API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"utvibe/internal/models"
	"utvibe/internal/reaction"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

const userAgent = "vibectl/1.0"

// APIError is a failure payload, or a transport failure with StatusCode 0.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *log.Logger
}

type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	if cfg.Logger != nil {
		logger := cfg.Logger
		h.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			logger.Debug("HTTP request", "method", req.Method, "url", req.URL)
			return nil
		})
		h.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			logger.Debug("HTTP response", "status", resp.StatusCode(), "took", resp.Time())
			return nil
		})
	}

	c := &Client{http: h}
	if cfg.Token != "" {
		c.SetToken(cfg.Token)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// Token is the bearer token currently in use.
func (c *Client) Token() string {
	return c.http.Token
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// do sends the request and decodes a successful body into out. Non-2xx
// responses and bodies with success:false become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var failure envelope
	req := c.http.R().SetContext(ctx).SetError(&failure)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	if resp.IsError() {
		msg := failure.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode(), Message: "unexpected response body"}
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode(), Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// AuthResult is returned by Login and Register.
type AuthResult struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Login signs in and uses the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) SendOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/send-otp", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, "/api/verify-otp", map[string]string{"email": email, "otp": code}, nil)
}

// Register creates the account for a verified email and signs in as it.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Logout revokes the current token. The client forgets it either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var res struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

type postList struct {
	Posts []*models.Post `json:"posts"`
}

func (c *Client) listPosts(ctx context.Context, path string) ([]*models.Post, error) {
	var res postList
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Posts, nil
}

// Feed returns the active posts, newest first.
func (c *Client) Feed(ctx context.Context) ([]*models.Post, error) {
	return c.listPosts(ctx, "/api/posts")
}

func (c *Client) Bookmarked(ctx context.Context) ([]*models.Post, error) {
	return c.listPosts(ctx, "/api/posts/bookmarked")
}

func (c *Client) MyPosts(ctx context.Context) ([]*models.Post, error) {
	return c.listPosts(ctx, "/api/posts/user")
}

// ReactionResult is the server's answer to a toggle. Counts is filled for
// likes and dislikes, Bookmarks for bookmarks.
type ReactionResult struct {
	Kind      reaction.Kind      `json:"kind"`
	Message   string             `json:"message"`
	Active    bool               `json:"active"`
	Counts    reaction.Counts    `json:"counts,omitempty"`
	Bookmarks reaction.Bookmarks `json:"bookmarks,omitempty"`
}

type toggleBody struct {
	Message       string          `json:"message"`
	Post          json.RawMessage `json:"post"`
	HasLiked      bool            `json:"hasLiked"`
	HasDisliked   bool            `json:"hasDisliked"`
	HasBookmarked bool            `json:"hasBookmarked"`
}

// Toggle flips the caller's kind reaction on postID.
func (c *Client) Toggle(ctx context.Context, postID string, kind reaction.Kind) (*ReactionResult, error) {
	var body toggleBody
	path := fmt.Sprintf("/api/posts/%s/%s", postID, kind)
	if err := c.do(ctx, http.MethodPost, path, nil, &body); err != nil {
		return nil, err
	}

	res := &ReactionResult{Kind: kind, Message: body.Message}
	var err error
	switch kind {
	case reaction.Like:
		res.Active = body.HasLiked
		err = json.Unmarshal(body.Post, &res.Counts)
	case reaction.Dislike:
		res.Active = body.HasDisliked
		err = json.Unmarshal(body.Post, &res.Counts)
	case reaction.Bookmark:
		res.Active = body.HasBookmarked
		err = json.Unmarshal(body.Post, &res.Bookmarks)
	default:
		return nil, fmt.Errorf("unknown reaction %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return res, nil
}

func (c *Client) Like(ctx context.Context, postID string) (*ReactionResult, error) {
	return c.Toggle(ctx, postID, reaction.Like)
}

func (c *Client) Dislike(ctx context.Context, postID string) (*ReactionResult, error) {
	return c.Toggle(ctx, postID, reaction.Dislike)
}

func (c *Client) Bookmark(ctx context.Context, postID string) (*ReactionResult, error) {
	return c.Toggle(ctx, postID, reaction.Bookmark)
}

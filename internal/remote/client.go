// Package remote implements the page-content collaborator against the
// site server's JSON API, authenticating with a cookie session.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// ErrUnauthorized is returned when the server rejects the session or the
// credentials
var ErrUnauthorized = errors.New("not authorized")

// Client talks to the site server
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. It should carry a cookie jar
// for the session to persist across requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentials makes the client log in before its first write
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Jar: jar, Timeout: 30 * time.Second},
		logger:     slog.Default().With("component", "remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%s %s: %w", method, path, errors.Join(ErrUnauthorized, apiErr))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(body), out)
}

// Login starts a session
func (c *Client) Login(ctx context.Context, username, password string) error {
	err := c.postJSON(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.logger.Debug("logged in", "user", username)
	return nil
}

// withSession runs fn, logging in and retrying once when the server
// rejects the session and credentials are configured
func (c *Client) withSession(ctx context.Context, fn func() error) error {
	err := fn()
	if !errors.Is(err, ErrUnauthorized) || c.username == "" {
		return err
	}
	if err := c.Login(ctx, c.username, c.password); err != nil {
		return err
	}
	return fn()
}

// LoadPageContent returns the markup of a page, "" when the page does not
// exist
func (c *Client) LoadPageContent(ctx context.Context, slug string) (string, error) {
	var out struct {
		Page struct {
			Content string `json:"content"`
		} `json:"page"`
	}
	err := c.do(ctx, http.MethodGet, "/api/pages/"+url.PathEscape(slug), "", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load page %s: %w", slug, err)
	}
	return out.Page.Content, nil
}

// SavePageContent replaces the markup of a page
func (c *Client) SavePageContent(ctx context.Context, slug, content string) error {
	err := c.withSession(ctx, func() error {
		return c.postJSON(ctx, http.MethodPut, "/api/pages/"+url.PathEscape(slug), map[string]string{"content": content}, nil)
	})
	if err != nil {
		return fmt.Errorf("save page %s: %w", slug, err)
	}
	return nil
}

// CreatePage adds a page
func (c *Client) CreatePage(ctx context.Context, slug, title, content string) error {
	err := c.withSession(ctx, func() error {
		return c.postJSON(ctx, http.MethodPost, "/api/pages", map[string]string{
			"slug": slug, "title": title, "content": content,
		}, nil)
	})
	if err != nil {
		return fmt.Errorf("create page %s: %w", slug, err)
	}
	return nil
}

// UploadImage posts image bytes as the multipart field "image" and returns
// the URL the server stored them under
func (c *Client) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.withSession(ctx, func() error {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
		if err := mw.Close(); err != nil {
			return err
		}
		return c.do(ctx, http.MethodPost, "/api/upload", mw.FormDataContentType(), &buf, &out)
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload %s: server returned no url", name)
	}
	return out.URL, nil
}

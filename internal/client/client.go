// Package client talks to the pickup API and keeps a dashboard's view of
// pickups in sync with it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

// APIError is a non-2xx response. It unwraps to the matching model error,
// so errors.Is(err, model.ErrForbidden) works across the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return model.ErrorFromCode(e.Code)
}

// Client is an HTTP client for the pickup API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, s *Session, method, path string, body, out any) error {
	if s != nil && !s.Valid() {
		return ErrSessionExpired
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.responseError(resp, s)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// responseError decodes an error body. A 401 ends the session.
func (c *Client) responseError(resp *http.Response, s *Session) error {
	var e struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		// Proxies and panics answer with plain text.
		e.Error = resp.Status
	}
	if resp.StatusCode == http.StatusUnauthorized && s != nil {
		s.Invalidate()
		return fmt.Errorf("%w: %s", ErrSessionExpired, e.Error)
	}
	return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
}

// Login authenticates and starts a session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var resp struct {
		Token     string    `json:"token"`
		UserID    int64     `json:"user_id"`
		Username  string    `json:"username"`
		Role      string    `json:"role"`
		AgentID   int64     `json:"agent_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &Session{
		Token:     resp.Token,
		UserID:    resp.UserID,
		Username:  resp.Username,
		Role:      resp.Role,
		AgentID:   resp.AgentID,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// Logout revokes the session's token and invalidates it locally, even if
// the server cannot be reached.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	defer s.Invalidate()
	return c.do(ctx, s, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the session's user.
func (c *Client) Me(ctx context.Context, s *Session) (*model.User, error) {
	var resp struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, s, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Pickups returns every pickup visible to the session, optionally limited
// to one status.
func (c *Client) Pickups(ctx context.Context, s *Session, status string) ([]model.Pickup, error) {
	path := "/api/pickups"
	if status != "" {
		path += "?status=" + status
	}
	var pickups []model.Pickup
	if err := c.do(ctx, s, http.MethodGet, path, nil, &pickups); err != nil {
		return nil, err
	}
	return pickups, nil
}

// Pickup returns one pickup.
func (c *Client) Pickup(ctx context.Context, s *Session, id int64) (*model.Pickup, error) {
	var p model.Pickup
	if err := c.do(ctx, s, http.MethodGet, fmt.Sprintf("/api/pickups/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// History returns the statuses a pickup entered.
func (c *Client) History(ctx context.Context, s *Session, id int64) ([]model.PickupHistory, error) {
	var history []model.PickupHistory
	if err := c.do(ctx, s, http.MethodGet, fmt.Sprintf("/api/pickups/%d/history", id), nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Accept claims a pending pickup for the session's agent.
func (c *Client) Accept(ctx context.Context, s *Session, id int64) (*model.Pickup, error) {
	var p model.Pickup
	if err := c.do(ctx, s, http.MethodPost, fmt.Sprintf("/api/pickups/%d/accept", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStatus moves a pickup to status.
func (c *Client) UpdateStatus(ctx context.Context, s *Session, id int64, status string) (*model.Pickup, error) {
	var p model.Pickup
	body := map[string]string{"status": status}
	if err := c.do(ctx, s, http.MethodPut, fmt.Sprintf("/api/pickups/%d/status", id), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Analytics returns the admin aggregates.
func (c *Client) Analytics(ctx context.Context, s *Session) (*model.Analytics, error) {
	var a model.Analytics
	if err := c.do(ctx, s, http.MethodGet, "/api/admin/analytics", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ItemForm is a new item with its photos, as encoded image files.
type ItemForm struct {
	Title       string
	Description string
	CategoryID  int64
	Action      string
	Images      [][]byte
}

// CreateItem lists an item and opens its pickup.
func (c *Client) CreateItem(ctx context.Context, s *Session, form ItemForm) (*model.Item, *model.Pickup, error) {
	if !s.Valid() {
		return nil, nil, ErrSessionExpired
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("title", form.Title)
	mw.WriteField("description", form.Description)
	mw.WriteField("category_id", strconv.FormatInt(form.CategoryID, 10))
	mw.WriteField("action", form.Action)
	for i, img := range form.Images {
		fw, err := mw.CreateFormFile("images", fmt.Sprintf("image%d", i+1))
		if err != nil {
			return nil, nil, fmt.Errorf("encoding form: %w", err)
		}
		if _, err := fw.Write(img); err != nil {
			return nil, nil, fmt.Errorf("encoding form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, fmt.Errorf("encoding form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/items", &body)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST /api/items: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, nil, c.responseError(resp, s)
	}

	var out struct {
		Item   *model.Item   `json:"item"`
		Pickup *model.Pickup `json:"pickup"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("decoding response: %w", err)
	}
	return out.Item, out.Pickup, nil
}

// streamURL returns the websocket address of the server.
func (c *Client) streamURL() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/ws"
}

// Package client is the consumer side of the StageLink API: a typed HTTP
// client plus the view state the web client keeps for connections and
// notifications.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/stagelink/backend/internal/models"
	"github.com/stagelink/backend/internal/notifications"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// User is the public profile returned by the API.
type User struct {
	ID          string                `json:"id"`
	Slug        string                `json:"slug"`
	FirstName   string                `json:"firstName,omitempty"`
	LastName    string                `json:"lastName,omitempty"`
	Avatar      *string               `json:"avatar,omitempty"`
	About       string                `json:"about,omitempty"`
	Interests   []models.ProfileEntry `json:"interests,omitempty"`
	Education   []models.ProfileEntry `json:"education,omitempty"`
	Skills      []models.ProfileEntry `json:"skills,omitempty"`
	Experiences []models.ProfileEntry `json:"experiences,omitempty"`
}

// ProfileInput replaces every editable section of the caller's profile.
type ProfileInput struct {
	About       string                `json:"about"`
	Interests   []models.ProfileEntry `json:"interests"`
	Education   []models.ProfileEntry `json:"education"`
	Skills      []models.ProfileEntry `json:"skills"`
	Experiences []models.ProfileEntry `json:"experiences"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// SignUpInput carries the fields of a new account.
type SignUpInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// HTTP issues typed calls against the API. The zero value is not usable; build
// one with NewHTTP.
type HTTP struct {
	baseURL string
	hc      *http.Client
	token   string
}

// NewHTTP returns a client for baseURL. A nil hc gets a client with a 15s timeout.
func NewHTTP(baseURL string, hc *http.Client) *HTTP {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *HTTP) WithToken(token string) *HTTP {
	clone := *c
	clone.token = token
	return &clone
}

// SignUp creates an account.
func (c *HTTP) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/signup", in, &out)
	return out, err
}

// Login exchanges credentials for a bearer token.
func (c *HTTP) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// ProfileBySlug loads a public profile.
func (c *HTTP) ProfileBySlug(ctx context.Context, slug string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/api/user?slug="+url.QueryEscape(slug), nil, &out)
	return out, err
}

// RequestConnection asks userID to connect.
func (c *HTTP) RequestConnection(ctx context.Context, userID string) (models.ConnectionStatus, error) {
	var out struct {
		Success bool                    `json:"success"`
		Status  models.ConnectionStatus `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/connections", map[string]string{"userId": userID}, &out); err != nil {
		return "", err
	}
	if out.Status == "" {
		out.Status = models.StatusRequested
	}
	return out.Status, nil
}

// RespondToRequest accepts or rejects the pending edge connectionID.
func (c *HTTP) RespondToRequest(ctx context.Context, connectionID string, accept bool) error {
	body := struct {
		ConnectionID string `json:"connectionId"`
		Status       bool   `json:"status"`
	}{connectionID, accept}
	return c.do(ctx, http.MethodPost, "/api/changeConnectionStatus", body, nil)
}

// RespondToUser accepts or rejects the pending request userID sent to the caller.
func (c *HTTP) RespondToUser(ctx context.Context, userID string, accept bool) error {
	body := struct {
		UserID string `json:"userId"`
		Status bool   `json:"status"`
	}{userID, accept}
	return c.do(ctx, http.MethodPost, "/api/changeConnectionStatus", body, nil)
}

// RemoveConnection deletes the edge with userID in any state.
func (c *HTTP) RemoveConnection(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/removeConnection", map[string]string{"userId": userID}, nil)
}

// ConnectionStatus returns the caller's status towards userID.
func (c *HTTP) ConnectionStatus(ctx context.Context, userID string) (models.ConnectionStatus, error) {
	var out struct {
		Success struct {
			Status models.ConnectionStatus `json:"status"`
		} `json:"success"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/connection?userId="+url.QueryEscape(userID), nil, &out); err != nil {
		return "", err
	}
	return out.Success.Status, nil
}

// Connections lists the caller's accepted connections.
func (c *HTTP) Connections(ctx context.Context) ([]User, error) {
	var out []User
	err := c.do(ctx, http.MethodGet, "/api/connections", nil, &out)
	return out, err
}

// Notifications fetches the inbox. The server marks it seen as a side effect.
func (c *HTTP) Notifications(ctx context.Context) ([]notifications.Display, error) {
	var out []notifications.Display
	err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out)
	return out, err
}

// HasUnseen reports whether the navigation badge should show.
func (c *HTTP) HasUnseen(ctx context.Context) (bool, error) {
	var out struct {
		HasUnseen bool `json:"hasUnseen"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications/unseen", nil, &out)
	return out.HasUnseen, err
}

// MarkSeen flags every notice as seen without fetching them.
func (c *HTTP) MarkSeen(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/seen", nil, nil)
}

// UpdateProfile saves the caller's profile sections and returns the stored profile.
func (c *HTTP) UpdateProfile(ctx context.Context, in ProfileInput) (User, error) {
	var out struct {
		Success struct {
			User User `json:"user"`
		} `json:"success"`
	}
	err := c.do(ctx, http.MethodPost, "/api/updateUserData", in, &out)
	return out.Success.User, err
}

// ChangeAvatar uploads an image and returns its public location.
func (c *HTTP) ChangeAvatar(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/changeAvatar", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		Success struct {
			Avatar string `json:"avatar"`
		} `json:"success"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.Success.Avatar, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *HTTP) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *HTTP) send(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

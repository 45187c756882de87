package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nwestfall/parley/internal/types"
)

// ErrUnauthorized is returned when the server rejects the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx response from the chat API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("chat api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("chat api error: %s (%d)", e.Code, e.Status)
	}
	if e.Message != "" {
		return fmt.Sprintf("chat api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chat api error (%d)", e.Status)
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// listPayload wraps channel list responses.
type listPayload struct {
	Data []types.Channel `json:"data"`
}

// Client talks to the chat API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a chat API client.
func NewClient(baseURL string) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: normalized,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// NormalizeBaseURL normalizes a server base URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("server url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("server url must include scheme (http:// or https://)")
	}
	value = strings.TrimRight(value, "/")
	return value, nil
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// statusUpdateRequest carries a channel status transition.
type statusUpdateRequest struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	UpdatedBy string `json:"updatedBy"`
}

// createChannelRequest opens a new conversation for a participant.
type createChannelRequest struct {
	UserEmail string `json:"userEmail"`
}

// Login authenticates and returns the user record including its token.
func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	var user types.User
	req := LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/user/login", nil, "", req, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodPost, "/user", nil, "", req, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// GetUser fetches a user record by email.
func (c *Client) GetUser(ctx context.Context, email, token string) (types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodGet, "/user/"+url.PathEscape(email), nil, token, nil, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// ChannelsByAgent lists channels assigned to an agent.
func (c *Client) ChannelsByAgent(ctx context.Context, repEmail, token string) ([]types.Channel, error) {
	query := url.Values{}
	query.Set("repEmail", repEmail)
	return c.listChannels(ctx, query, token)
}

// ChannelsByUser lists channels where the user is the participant.
func (c *Client) ChannelsByUser(ctx context.Context, userEmail, token string) ([]types.Channel, error) {
	query := url.Values{}
	query.Set("userEmail", userEmail)
	return c.listChannels(ctx, query, token)
}

// ActiveChannels lists the unassigned queue: every channel with status ACTIVE.
func (c *Client) ActiveChannels(ctx context.Context, token string) ([]types.Channel, error) {
	query := url.Values{}
	query.Set("currentStatus", types.StatusActive)
	return c.listChannels(ctx, query, token)
}

func (c *Client) listChannels(ctx context.Context, query url.Values, token string) ([]types.Channel, error) {
	var payload listPayload
	if err := c.doJSON(ctx, http.MethodGet, "/channel", query, token, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// GetChannel fetches one channel with its full message history.
func (c *Client) GetChannel(ctx context.Context, id, token string) (types.Channel, error) {
	var channel types.Channel
	if err := c.doJSON(ctx, http.MethodGet, "/channel/"+url.PathEscape(id), nil, token, nil, &channel); err != nil {
		return types.Channel{}, err
	}
	return channel, nil
}

// UpdateChannelStatus applies a lifecycle transition to a channel.
func (c *Client) UpdateChannelStatus(ctx context.Context, id, status, updatedBy, token string) (types.Channel, error) {
	var channel types.Channel
	req := statusUpdateRequest{ID: id, Status: status, UpdatedBy: updatedBy}
	if err := c.doJSON(ctx, http.MethodPut, "/channel/"+url.PathEscape(id), nil, token, req, &channel); err != nil {
		return types.Channel{}, err
	}
	return channel, nil
}

// CreateChannel opens a new channel for a participant. The server
// assigns the id.
func (c *Client) CreateChannel(ctx context.Context, userEmail, token string) (types.Channel, error) {
	var channel types.Channel
	req := createChannelRequest{UserEmail: userEmail}
	if err := c.doJSON(ctx, http.MethodPost, "/channel", nil, token, req, &channel); err != nil {
		return types.Channel{}, err
	}
	return channel, nil
}

// CreateMessage persists a message to a channel.
func (c *Client) CreateMessage(ctx context.Context, msg types.Message, token string) (types.Message, error) {
	var created types.Message
	if err := c.doJSON(ctx, http.MethodPost, "/message", nil, token, msg, &created); err != nil {
		return types.Message{}, err
	}
	return created, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, token string, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorPayload
		if err := json.Unmarshal(respData, &payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return apiErr
	}

	if respBody == nil {
		return nil
	}
	if len(respData) == 0 {
		return nil
	}
	return json.Unmarshal(respData, respBody)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	endpoint := base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}

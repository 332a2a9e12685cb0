// Package backend talks to the IraChat server, implementing the identity
// provider and document store contracts the client cores depend on.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/irachat/irachat/internal/auth"
	"github.com/irachat/irachat/internal/chat"
	"github.com/irachat/irachat/internal/docstore"
)

// ErrUnauthorized marks a request rejected for a missing or stale token.
var ErrUnauthorized = errors.New("unauthorized")

// Client is a bearer-token HTTP client for the server API. It satisfies
// docstore.Store and auth.Provider.
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.RWMutex
	token  string
	onChat func(chatID string, patch chat.Patch)
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the session token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// CurrentIdentity asks the server who the installed token belongs to.
// No token or a rejected token both mean signed out, not an error.
func (c *Client) CurrentIdentity(ctx context.Context) (*auth.Identity, error) {
	token := c.currentToken()
	if token == "" {
		return nil, nil
	}

	var payload struct {
		ID          string `json:"id"`
		PhoneNumber string `json:"phoneNumber"`
		DisplayName string `json:"displayName"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &payload)
	if errors.Is(err, ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current identity: %w", err)
	}

	return &auth.Identity{
		ID:          payload.ID,
		PhoneNumber: payload.PhoneNumber,
		DisplayName: payload.DisplayName,
		Token:       token,
	}, nil
}

// SignOut drops the token and tells the server to revoke it. Revocation
// failure is logged only; the local token is gone either way.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.SetToken("")
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		log.Warn().Err(err).Msg("server-side sign-out failed")
	}
	return nil
}

// Query implements docstore.Store over GET /api/{collection}.
func (c *Client) Query(ctx context.Context, collection string, filter docstore.Filter, orderBy docstore.OrderBy) ([]docstore.Document, error) {
	params := url.Values{}
	if filter.Field != "" {
		params.Set("field", filter.Field)
		params.Set("op", filter.Op)
		params.Set("value", fmt.Sprint(filter.Value))
	}
	if orderBy.Field != "" {
		params.Set("order_by", orderBy.Field)
		params.Set("desc", strconv.FormatBool(orderBy.Desc))
	}

	path := "/api/" + collection
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var payload []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, len(payload))
	for i, item := range payload {
		docs[i] = docstore.Document{ID: item.ID, Fields: item.Fields}
	}
	return docs, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var payload struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	}
	err := c.do(ctx, http.MethodGet, "/api/"+collection+"/"+id, nil, &payload)
	if err != nil {
		var httpErr *apiError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	return &docstore.Document{ID: payload.ID, Fields: payload.Fields}, nil
}

func (c *Client) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	path := "/api/" + collection + "/" + id
	if merge {
		path += "?merge=true"
	}
	return c.do(ctx, http.MethodPut, path, fields, nil)
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+collection+"/"+id, nil, nil)
}

func (c *Client) BatchDelete(ctx context.Context, collection string, ids []string) error {
	body := map[string]any{"ids": ids}
	return c.do(ctx, http.MethodPost, "/api/"+collection+"/batch-delete", body, nil)
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, e.message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		message := string(data)
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			message = payload.Error
		}
		return &apiError{status: resp.StatusCode, message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package client is a Go client for the catalog API.
//
// Authentication state lives in a single TokenStore. It is filled by Login
// and Register, cleared by Logout, and cleared whenever the server rejects
// the stored token.
package client

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
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

// TokenStore holds the session token used to authenticate requests.
type TokenStore interface {
	Token() string
	SetToken(token string)
	Clear()
}

// MemoryTokenStore is a TokenStore safe for concurrent use.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *MemoryTokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryTokenStore) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *MemoryTokenStore) Clear() {
	s.SetToken("")
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStore replaces the default in-memory token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// Client talks to the catalog API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  &MemoryTokenStore{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the client's token store.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Authenticated reports whether a session token is held.
func (c *Client) Authenticated() bool {
	return c.tokens.Token() != ""
}

// do sends a request and decodes a successful JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.tokens.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
		// The server no longer accepts this token.
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			c.tokens.Clear()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type sessionResponse struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// Register creates an account and stores its session token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var out sessionResponse
	req := models.RegisterRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out); err != nil {
		return nil, err
	}
	c.tokens.SetToken(out.Session.SessionID)
	return out.User, nil
}

// Login authenticates and stores the session token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out sessionResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.tokens.SetToken(out.Session.SessionID)
	return out.User, nil
}

// Logout ends the session. The local token is dropped even if the server
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.tokens.Clear()
	if !c.Authenticated() {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the user owning the current session.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// SearchParams narrows SearchProducts.
type SearchParams struct {
	Keyword  string
	Category string
	Rating   nutriscore.Grade
	Limit    int
	Offset   int
}

func (p SearchParams) query() string {
	q := url.Values{}
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Rating != "" {
		q.Set("rating", string(p.Rating))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// SearchResult is one page of products and the total number of matches.
type SearchResult struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
}

// SearchProducts lists products matching params.
func (c *Client) SearchProducts(ctx context.Context, params SearchParams) (*SearchResult, error) {
	var out SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/products"+params.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductDetail is a product with its daily value percentages.
type ProductDetail struct {
	Product     *models.Product `json:"product"`
	DailyValues map[string]int  `json:"dailyValues"`
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	var out ProductDetail
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type productResponse struct {
	Product *models.Product `json:"product"`
}

// CreateProduct adds a product. Requires an admin session.
func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var out productResponse
	if err := c.do(ctx, http.MethodPost, "/api/products", in, &out); err != nil {
		return nil, err
	}
	return out.Product, nil
}

// UpdateProduct replaces a product. Requires an admin session.
func (c *Client) UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	var out productResponse
	if err := c.do(ctx, http.MethodPut, "/api/products/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return out.Product, nil
}

// DeleteProduct removes a product. Requires an admin session.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
}

// Preview grades facts on the server.
func (c *Client) Preview(ctx context.Context, facts nutriscore.NutritionFacts) (*nutriscore.Result, error) {
	var out struct {
		Grade     nutriscore.Grade  `json:"grade"`
		Score     int               `json:"score"`
		Breakdown nutriscore.Points `json:"breakdown"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/nutriscore/preview", facts, &out); err != nil {
		return nil, err
	}
	p := out.Breakdown
	return &nutriscore.Result{
		Points:   p,
		Negative: p.Calories + p.Sugar + p.Fat,
		Positive: p.Fiber + p.Protein,
		Score:    out.Score,
		Grade:    out.Grade,
	}, nil
}

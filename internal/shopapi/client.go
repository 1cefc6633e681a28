// Package shopapi is the HTTP client for the product, category and identity
// endpoints the storefront consumes.
package shopapi

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
	"time"

	"storefront/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnexpectedStatus wraps every non-2xx response
var ErrUnexpectedStatus = errors.New("unexpected status")

// APIError is a non-2xx response from the shop API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to a dummyjson-compatible shop API
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for baseURL
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type productsResponse struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// FetchProducts returns one page of the unfiltered catalog
func (c *Client) FetchProducts(ctx context.Context, limit, skip int) (models.ProductPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "/products?"+q.Encode(), nil, &resp); err != nil {
		return models.ProductPage{}, err
	}
	return models.ProductPage(resp), nil
}

// FetchProductsByCategory returns every product of category. The "all"
// category maps to the unpaginated product listing.
func (c *Client) FetchProductsByCategory(ctx context.Context, category string) (models.ProductPage, error) {
	path := "/products/category/" + url.PathEscape(category)
	if category == models.CategoryAll {
		path = "/products"
	}

	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return models.ProductPage{}, err
	}
	return models.ProductPage(resp), nil
}

// FetchCategories returns the normalized category labels
func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/products/categories", nil, &raw); err != nil {
		return nil, err
	}
	return NormalizeCategories(raw), nil
}

type loginResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
	// older API versions return accessToken only
	AccessToken string `json:"accessToken"`
}

// Login authenticates credentials against the identity endpoint
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, err
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	return &models.User{
		ID:        resp.ID,
		Username:  resp.Username,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
		Token:     token,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Package client talks to the admin API the way the admin front end does:
// it signs in, keeps the session, and feeds the event dashboard and the
// product table with data shaped by package dataview.
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
	"strings"
	"time"

	"go.uber.org/zap"

	"mabletask/admin/dataview"
	"mabletask/admin/models"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    session,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	auth   bool
}

// do sends r and decodes a JSON response into out. A 401 on an authenticated
// request invalidates the session before the error is returned.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth {
		token := c.session.Token()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp)
		if r.auth && resp.StatusCode == http.StatusUnauthorized {
			c.logger.Warn("Session rejected by server, signing out", zap.String("path", r.path))
			_ = c.session.Invalidate()
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

type signinResponse struct {
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
}

// SignIn exchanges credentials for a token and stores it in the session.
func (c *Client) SignIn(ctx context.Context, email, password string, remember bool) error {
	var resp signinResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/signin",
		body:   models.SigninRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return errors.New("sign-in response carried no access token")
	}
	if err := c.session.Store(Credentials{Token: resp.AccessToken, User: resp.User}, remember); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/signup",
		body:   models.SignupRequest{Name: name, Email: email, Password: password},
	}, nil)
}

// SignOut clears the local session even when the server cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/signout"}, nil)
	return errors.Join(err, c.session.Invalidate())
}

func (c *Client) ListEvents(ctx context.Context, q dataview.EventQuery) (*models.EventsResponse, error) {
	var resp models.EventsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/events", query: q.Values()}, &resp); err != nil {
		return nil, err
	}
	if resp.Events == nil {
		resp.Events = []models.Event{}
	}
	return &resp, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var resp models.ProductsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/products", auth: true}, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		resp.Products = []models.Product{}
	}
	return resp.Products, nil
}

// CreateProduct validates the draft locally and only then calls the server.
func (c *Client) CreateProduct(ctx context.Context, draft models.ProductDraft) (*models.Product, error) {
	body, err := draft.CreateRequest()
	if err != nil {
		return nil, err
	}
	var created models.Product
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/products", body: body, auth: true}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	var updated models.Product
	if err := c.do(ctx, request{method: http.MethodPut, path: productPath(p.ID), body: p, auth: true}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: productPath(id), auth: true}, nil)
}

func productPath(id string) string {
	return "/api/products/" + url.PathEscape(id)
}

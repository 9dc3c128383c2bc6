// Package crmclient is a Go client for the CRM API.
//
// Authentication state lives in an explicit Session: Login acquires it,
// Logout clears it, and any 401 answer from the server clears it as well so
// that callers notice an expired token on the next call.
package crmclient

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
)

const dateLayout = "2006-01-02"

var (
	// ErrNoSession is returned by calls that need a token when none is held.
	ErrNoSession = errors.New("crmclient: not logged in")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crmclient: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Session is the authenticated state acquired at login.
type Session struct {
	Username   string
	Token      string
	AcquiredAt time.Time
}

// Customer mirrors the API's customer representation.
type Customer struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Region           string `json:"region"`
	RegistrationDate string `json:"registrationDate"`
}

// Filter holds the optional customer filter parameters. Zero values are
// omitted from the query.
type Filter struct {
	Name             string
	Email            string
	Region           string
	RegistrationDate time.Time
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Email != "" {
		q.Set("email", f.Email)
	}
	if f.Region != "" {
		q.Set("region", f.Region)
	}
	if !f.RegistrationDate.IsZero() {
		q.Set("registrationDate", f.RegistrationDate.Format(dateLayout))
	}
	return q
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time

	mu      sync.RWMutex
	session *Session
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) Register(ctx context.Context, username, password, role string) error {
	body := map[string]string{"username": username, "password": password}
	if role != "" {
		body["role"] = role
	}
	return c.do(ctx, http.MethodPost, "/auth/register", nil, body, nil, false)
}

// Login authenticates and stores the resulting Session on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp, false); err != nil {
		return nil, err
	}

	s := &Session{Username: username, Token: resp.Token, AcquiredAt: c.now()}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return c.Session(), nil
}

// Logout drops the session. Tokens are stateless, so the server is not
// contacted.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	err := c.do(ctx, http.MethodGet, "/customer", nil, nil, &out, true)
	return out, err
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodGet, customerPath(id), nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FilterCustomers(ctx context.Context, f Filter) ([]Customer, error) {
	var out []Customer
	err := c.do(ctx, http.MethodGet, "/customer/filter", f.query(), nil, &out, true)
	return out, err
}

func (c *Client) CreateCustomer(ctx context.Context, in Customer) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customer", nil, in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomer replaces the customer; in.ID must equal id.
func (c *Client) UpdateCustomer(ctx context.Context, id int64, in Customer) error {
	return c.do(ctx, http.MethodPut, customerPath(id), nil, in, nil, true)
}

func (c *Client) DeleteCustomer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, customerPath(id), nil, nil, nil, true)
}

func customerPath(id int64) string {
	return "/customer/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, authed bool) error {
	var token string
	if authed {
		s := c.Session()
		if s == nil {
			return ErrNoSession
		}
		token = s.Token
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("crmclient: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crmclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && authed {
		c.Logout()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crmclient: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

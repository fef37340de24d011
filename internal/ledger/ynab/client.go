// Package ynab reads ledger state from the YNAB REST API.
package ynab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/ledger"
	"ynabmetrics/internal/log"
)

const (
	DefaultBaseURL         = "https://api.ynab.com/v1"
	DefaultRequestsPerHour = 200

	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	maxBackoff         = 8 * time.Second
)

// RequestObserver is notified once per HTTP round trip.
type RequestObserver interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
}

type Config struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	RequestsPerHour int
}

type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
	observer    RequestObserver
	location    *time.Location
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

var _ ledger.Client = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentYNAB) }
}

func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLocation sets the zone transaction dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// WithRequestTimeout bounds each attempt, independent of the http.Client timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry overrides the attempt count and the first backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.backoff = backoff
	}
}

// New builds a client. An empty token is accepted; every call then fails
// with core.ErrCredentialMissing.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = DefaultRequestsPerHour
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       strings.TrimSpace(cfg.Token),
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerHour)/3600), cfg.RequestsPerHour),
		logger:      log.New(log.DefaultConfig()).WithComponent(log.ComponentYNAB),
		location:    time.Local,
		timeout:     cfg.Timeout,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	return c
}

// APIError is the error envelope YNAB returns on non-2xx responses.
type APIError struct {
	Status int    `json:"-"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ynab: %d %s: %s", e.Status, e.Name, e.Detail)
	}
	return fmt.Sprintf("ynab: %d %s", e.Status, http.StatusText(e.Status))
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// get performs a GET on path and decodes the "data" member into out.
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	if c.token == "" {
		return core.ErrCredentialMissing
	}

	var err error
	wait := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.WarnContext(ctx, "Retrying YNAB request",
				log.FieldEndpoint, endpoint, log.FieldAttempt, attempt, log.FieldError, err)
			if serr := sleep(ctx, jitter(wait)); serr != nil {
				return serr
			}
			wait = min(wait*2, maxBackoff)
		}

		err = c.do(ctx, endpoint, path, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Temporary() {
			return err
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, endpoint, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ynab rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		return fmt.Errorf("ynab %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			apiErr = envelope.Error
			apiErr.Status = resp.StatusCode
		}
		return apiErr
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", endpoint, err)
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, status, elapsed)
	}
}

func budgetPath(budgetID string, resource string) string {
	return "/budgets/" + url.PathEscape(budgetID) + "/" + resource
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	delta := (rand.Float64()*2 - 1) * 0.1 * float64(d)
	return time.Duration(float64(d) + delta)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package neutron

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/types"
)

const (
	// maxPages bounds pagination so a misbehaving server cannot loop forever
	maxPages = 1000

	// Defaults used by pkg/config. Timeout and RetryDelay also apply when
	// Config leaves them zero.
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 3
	DefaultRetryDelay = 500 * time.Millisecond
)

// ControlPlaneError is returned when a control plane call fails
type ControlPlaneError struct {
	Op         string
	StatusCode int // Zero for transport failures
	Err        error
}

func (e *ControlPlaneError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ControlPlaneError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the call may succeed
func (e *ControlPlaneError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Config holds Neutron client configuration.
type Config struct {
	Endpoint    string
	Token       string
	InsecureTLS bool
	Timeout     time.Duration
	Retries     int // Retries after the first call, zero disables retrying
	RetryDelay  time.Duration
}

// Client wraps the Neutron v2.0 networking API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	attempts   uint // First call plus retries
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new Neutron API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("neutron endpoint is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("neutron auth token is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid neutron endpoint: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
		token:      cfg.Token,
		attempts:   uint(cfg.Retries) + 1,
		retryDelay: cfg.RetryDelay,
		logger:     log.WithComponent("neutron"),
	}, nil
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

func nextLink(links []link) string {
	for _, l := range links {
		if l.Rel == "next" {
			return l.Href
		}
	}
	return ""
}

type routersPage struct {
	Routers []types.RouterRecord `json:"routers"`
	Links   []link               `json:"routers_links"`
}

type floatingIPsPage struct {
	FloatingIPs []types.FloatingIPRecord `json:"floatingips"`
	Links       []link                   `json:"floatingips_links"`
}

type agentsPage struct {
	Agents []types.Agent `json:"agents"`
}

// ListRouters returns every router visible to the token
func (c *Client) ListRouters(ctx context.Context) ([]types.RouterRecord, error) {
	var routers []types.RouterRecord

	next := c.baseURL + "/v2.0/routers"
	for page := 0; next != "" && page < maxPages; page++ {
		var resp routersPage
		if err := c.get(ctx, "list routers", next, &resp); err != nil {
			return nil, err
		}
		if resp.Routers == nil && page == 0 {
			return nil, &ControlPlaneError{Op: "list routers", Err: errors.New(`response has no "routers" key`)}
		}
		routers = append(routers, resp.Routers...)
		next = nextLink(resp.Links)
	}

	return routers, nil
}

// ListFloatingIPs returns every floating IP visible to the token
func (c *Client) ListFloatingIPs(ctx context.Context) ([]types.FloatingIPRecord, error) {
	var fips []types.FloatingIPRecord

	next := c.baseURL + "/v2.0/floatingips"
	for page := 0; next != "" && page < maxPages; page++ {
		var resp floatingIPsPage
		if err := c.get(ctx, "list floating ips", next, &resp); err != nil {
			return nil, err
		}
		if resp.FloatingIPs == nil && page == 0 {
			return nil, &ControlPlaneError{Op: "list floating ips", Err: errors.New(`response has no "floatingips" key`)}
		}
		fips = append(fips, resp.FloatingIPs...)
		next = nextLink(resp.Links)
	}

	return fips, nil
}

// ListAgentsHostingRouter returns the L3 agents the router is scheduled to
func (c *Client) ListAgentsHostingRouter(ctx context.Context, routerID string) ([]types.Agent, error) {
	var resp agentsPage
	endpoint := fmt.Sprintf("%s/v2.0/routers/%s/l3-agents", c.baseURL, url.PathEscape(routerID))
	if err := c.get(ctx, "list l3 agents hosting router", endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// get performs a GET with retries and decodes the JSON body into v
func (c *Client) get(ctx context.Context, op, endpoint string, v interface{}) error {
	err := retry.Do(
		func() error {
			return c.getOnce(ctx, op, endpoint, v)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var cpErr *ControlPlaneError
			if errors.As(err, &cpErr) {
				return cpErr.Temporary()
			}
			return true
		}),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.Warn().Err(err).Str("op", op).Msgf("control plane call failed, attempt: %d", attempt+1)
		}),
	)
	if err == nil {
		return nil
	}

	var cpErr *ControlPlaneError
	if errors.As(err, &cpErr) {
		return cpErr
	}
	return &ControlPlaneError{Op: op, Err: err}
}

func (c *Client) getOnce(ctx context.Context, op, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &ControlPlaneError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ControlPlaneError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ControlPlaneError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &ControlPlaneError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}

// Package client is an HTTP client for the monitor REST API
// (internal/api), for host programs that want to manage monitors
// without embedding the store directly.
//
// Grounded on the teacher's pkg/client package: the TLS-aware
// Config/DefaultConfig/InsecureConfig trio, the request/error-decoding
// plumbing (here doJSON and decodeError), and the bearer-token-free
// http.Client construction are kept near-verbatim; the endpoint set is
// replaced with monitor CRUD, script evaluation, and operator login.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Client talks to a running apiserver over HTTP(S).
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Logger   *slog.Logger // Optional logger for client operations
	TLS      *TLSClientConfig
	Insecure bool // Skip TLS verification
}

// TLSClientConfig holds TLS configuration for the client.
type TLSClientConfig struct {
	Enabled    bool   // Enable TLS
	CACert     string // CA certificate file path
	ClientCert string // Client certificate file
	ClientKey  string // Client private key file
	ServerName string // Server name for verification
	SkipVerify bool   // Skip certificate verification
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// DefaultTLSConfig returns default TLS client configuration.
func DefaultTLSConfig() Config {
	return Config{
		BaseURL: "https://localhost:8080",
		Timeout: 10 * time.Second,
		TLS:     &TLSClientConfig{Enabled: true},
	}
}

// InsecureConfig returns insecure client configuration (skip TLS verification).
func InsecureConfig() Config {
	return Config{
		BaseURL:  "https://localhost:8080",
		Timeout:  10 * time.Second,
		Insecure: true,
	}
}

// New creates a new monitor API client, with TLS support.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	transport := &http.Transport{}
	if (config.TLS != nil && config.TLS.Enabled) || config.Insecure {
		tlsConfig, err := setupClientTLS(config)
		if err != nil {
			config.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tlsConfig
		}
	}

	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// Login authenticates and, on success, stores the returned bearer token
// so subsequent calls on this Client are authenticated automatically.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var result LoginResult
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/auth/login", req, &result); err != nil {
		return nil, err
	}
	if result.Token != nil {
		c.token = result.Token.Value
	}
	return &result, nil
}

// Health reports whether the server is reachable and healthy.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("server unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// CreateMonitor registers a new monitor and returns the server-assigned record.
func (c *Client) CreateMonitor(ctx context.Context, m Monitor) (*Monitor, error) {
	var out Monitor
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/monitors", m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMonitor fetches one monitor by ID.
func (c *Client) GetMonitor(ctx context.Context, id string) (*Monitor, error) {
	var out Monitor
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/monitors/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMonitors lists every registered monitor.
func (c *Client) ListMonitors(ctx context.Context) ([]*Monitor, error) {
	var out []*Monitor
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/monitors", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMonitor replaces a monitor's definition.
func (c *Client) UpdateMonitor(ctx context.Context, id string, m Monitor) (*Monitor, error) {
	var out Monitor
	if err := c.doJSON(ctx, http.MethodPut, c.baseURL+"/monitors/"+url.PathEscape(id), m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMonitor removes a monitor by ID.
func (c *Client) DeleteMonitor(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.baseURL+"/monitors/"+url.PathEscape(id), nil, nil)
}

// ListResults lists the most recent check results for a monitor,
// newest first. limit <= 0 uses the server default.
func (c *Client) ListResults(ctx context.Context, id string, limit int) ([]*MonitorResult, error) {
	u := c.baseURL + "/monitors/" + url.PathEscape(id) + "/results"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	var out []*MonitorResult
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateScript tries a validation script against a hand-built context
// without attaching it to a monitor.
func (c *Client) EvaluateScript(ctx context.Context, req EvaluateScriptRequest) (*ValidationResult, error) {
	var out ValidationResult
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/scripts/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON marshals body (if non-nil), issues the request, and decodes
// the response into out (if non-nil and the response carries a body).
func (c *Client) doJSON(ctx context.Context, method, u string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		c.logger.Error("failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	c.logger.Error("API request failed", "error", errResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errResp.Error)
}

func setupClientTLS(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}

	if config.TLS != nil {
		if config.TLS.SkipVerify {
			tlsConfig.InsecureSkipVerify = true
		}
		if config.TLS.ServerName != "" {
			tlsConfig.ServerName = config.TLS.ServerName
		}
		if config.TLS.CACert != "" {
			if err := loadCACert(tlsConfig, config.TLS.CACert); err != nil {
				return nil, fmt.Errorf("failed to load CA certificate: %w", err)
			}
		}
		if config.TLS.ClientCert != "" && config.TLS.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(config.TLS.ClientCert, config.TLS.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}

	return tlsConfig, nil
}

func loadCACert(tlsConfig *tls.Config, caCertPath string) error {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA certificate")
	}
	tlsConfig.RootCAs = pool
	return nil
}

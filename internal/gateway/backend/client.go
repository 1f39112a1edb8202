// Package backend is the sync gateway to the dashboard's backing store.
// The ledger is read and written as a full snapshot only: there is no
// partial update path and no concurrency token, which keeps the contract
// simple at the cost of last-writer-wins between concurrent sessions.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tradedesk/internal/catalog"
	"tradedesk/internal/config"
	"tradedesk/internal/ledger"
)

// Client wraps the backend store REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient constructs a backend client from configuration.
func NewClient(cfg config.BackendConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend.base_url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend.base_url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true // #nosec G402
		}
	}
	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LoadOrders fetches the full ledger snapshot.
func (c *Client) LoadOrders(ctx context.Context) ([]ledger.SymbolLedger, error) {
	var env envelope
	if err := c.doRequest(ctx, http.MethodGet, "/api/orders", nil, &env); err != nil {
		return nil, &SyncError{Op: "load", Err: err}
	}
	if err := env.check(); err != nil {
		return nil, &SyncError{Op: "load", Err: err}
	}
	if len(env.Data) == 0 || string(bytes.TrimSpace(env.Data)) == "null" {
		return nil, nil
	}
	var out []ledger.SymbolLedger
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, &SyncError{Op: "load", Err: fmt.Errorf("decode ledger snapshot failed: %w", err)}
	}
	return out, nil
}

// SaveOrders writes the entire ledger in one request. The backend treats
// the payload as a full replace.
func (c *Client) SaveOrders(ctx context.Context, ledgers []ledger.SymbolLedger) error {
	if ledgers == nil {
		ledgers = []ledger.SymbolLedger{}
	}
	payload := map[string]any{"orders": ledgers}
	var env envelope
	if err := c.doRequest(ctx, http.MethodPost, "/api/orders", payload, &env); err != nil {
		return &SyncError{Op: "persist", Err: err}
	}
	if err := env.check(); err != nil {
		return &SyncError{Op: "persist", Err: err}
	}
	return nil
}

// FetchExchanges reads the permitted-exchange catalog subset.
func (c *Client) FetchExchanges(ctx context.Context) ([]catalog.Record, error) {
	return c.fetchCatalog(ctx, "/api/exchanges")
}

// FetchSymbols reads the permitted-symbol catalog subset.
func (c *Client) FetchSymbols(ctx context.Context) ([]catalog.Record, error) {
	return c.fetchCatalog(ctx, "/api/symbols")
}

func (c *Client) fetchCatalog(ctx context.Context, path string) ([]catalog.Record, error) {
	var env envelope
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, &SyncError{Op: "catalog", Err: err}
	}
	if err := env.check(); err != nil {
		return nil, &SyncError{Op: "catalog", Err: err}
	}
	if len(env.Data) == 0 {
		return nil, nil
	}
	var out []catalog.Record
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, &SyncError{Op: "catalog", Err: fmt.Errorf("decode catalog failed: %w", err)}
	}
	return out, nil
}

// SaveExchanges replaces the exchange catalog subset wholesale.
func (c *Client) SaveExchanges(ctx context.Context, recs []catalog.Record) error {
	return c.saveCatalog(ctx, "/api/exchanges", "exchanges", recs)
}

// SaveSymbols replaces the symbol catalog subset wholesale.
func (c *Client) SaveSymbols(ctx context.Context, recs []catalog.Record) error {
	return c.saveCatalog(ctx, "/api/symbols", "symbols", recs)
}

func (c *Client) saveCatalog(ctx context.Context, path, key string, recs []catalog.Record) error {
	if recs == nil {
		recs = []catalog.Record{}
	}
	var env envelope
	if err := c.doRequest(ctx, http.MethodPost, path, map[string]any{key: recs}, &env); err != nil {
		return &SyncError{Op: "catalog", Err: err}
	}
	if err := env.check(); err != nil {
		return &SyncError{Op: "catalog", Err: err}
	}
	return nil
}

func (env envelope) check() error {
	if strings.EqualFold(strings.TrimSpace(env.Status), "success") {
		return nil
	}
	msg := strings.TrimSpace(env.Message)
	if msg == "" {
		msg = "backend reported failure"
	}
	return fmt.Errorf("%s", msg)
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any, out any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("backend client not initialized")
	}
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request failed: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(data) == 0 {
			return fmt.Errorf("backend returned %s", resp.Status)
		}
		return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode backend response failed: %w", err)
	}
	return nil
}

func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

func (c *Client) resolveEndpoint(path string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("backend base URL not set")
	}
	trimmed := strings.TrimSpace(path)
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	base := *c.baseURL
	base.Path = strings.TrimSuffix(base.Path, "/") + trimmed
	base.RawQuery = ""
	base.Fragment = ""
	return &base, nil
}

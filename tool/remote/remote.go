// Package remote materializes tools from a remote tool-service. A service
// advertises its callable operations on a listing endpoint; discovery turns
// each operation into an HTTP-backed tool at agent construction time.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/supbro-dev/Wagner-agent/logging"
	"github.com/supbro-dev/Wagner-agent/tool"
)

// OperationsPath is the listing endpoint every tool-service exposes.
const OperationsPath = "/operations"

// Service names a remote tool-service whose operations are discovered when
// the agent is built.
type Service struct {
	Name    string `json:"name" mapstructure:"name"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
}

// operation is one callable advertised by a tool-service. Path is relative to
// the service base URL and may carry {placeholder} segments matching the
// declared args.
type operation struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Args        map[string]string `json:"args"`
}

type listing struct {
	Operations []operation `json:"operations"`
}

// Client discovers callable operations from tool-services and materializes
// them as tools.
type Client struct {
	httpClient *http.Client
	logger     logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. It is used both for the
// listing request and by the materialized tools.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger attaches a logger for discovery and call tracing.
func WithLogger(l logging.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient builds a discovery client.
func NewClient(optFns ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Discover fetches the service's operation listing and returns one callable
// tool per operation. An empty listing is not an error.
func (c *Client) Discover(ctx context.Context, svc Service) ([]tool.Tool, error) {
	if svc.Name == "" {
		return nil, fmt.Errorf("tool service: name is required")
	}
	base := strings.TrimRight(svc.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("tool service %q: base_url is required", svc.Name)
	}

	list, err := c.fetchListing(ctx, svc.Name, base)
	if err != nil {
		return nil, err
	}

	tools := make([]tool.Tool, 0, len(list.Operations))
	for _, op := range list.Operations {
		path := op.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		t, err := tool.NewHTTPTool(tool.Definition{
			Name:        op.Name,
			Description: op.Description,
			Method:      op.Method,
			URLTemplate: base + path,
			Args:        op.Args,
		}, tool.WithHTTPClient(c.httpClient), tool.WithHTTPLogger(c.logger))
		if err != nil {
			return nil, fmt.Errorf("tool service %q: operation %q: %w", svc.Name, op.Name, err)
		}
		tools = append(tools, t)
	}

	c.logger.Debug("tool.remote.discovered", "service", svc.Name, "operations", len(tools))
	return tools, nil
}

func (c *Client) fetchListing(ctx context.Context, name, base string) (*listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+OperationsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("tool service %q: %w", name, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool service %q: listing operations: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tool service %q: reading listing: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool service %q: listing returned status %d", name, resp.StatusCode)
	}
	var list listing
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("tool service %q: decoding listing: %w", name, err)
	}
	return &list, nil
}

package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/supbro-dev/Wagner-agent/internal/util"
	"github.com/supbro-dev/Wagner-agent/logging"
)

// Definition declares an HTTP-backed tool. Tools of this kind are typically
// loaded from configuration: each argument becomes a required string
// parameter and is substituted into {placeholders} of the URL template.
type Definition struct {
	Name        string            `json:"name" mapstructure:"name"`
	Description string            `json:"description" mapstructure:"description"`
	Method      string            `json:"method" mapstructure:"method"` // GET or POST, default GET
	URLTemplate string            `json:"url" mapstructure:"url"`
	Args        map[string]string `json:"args" mapstructure:"args"` // arg name -> description
}

// HTTPTool invokes a remote endpoint with model-supplied arguments. An
// optional transform post-processes the raw response body; transform failures
// are logged and the raw body is returned instead, so a bad transform never
// fails the call.
type HTTPTool struct {
	def       Definition
	client    *http.Client
	transform func(raw string) (string, error)
	logger    logging.Logger
}

// HTTPToolOption customizes an HTTPTool.
type HTTPToolOption func(*HTTPTool)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPToolOption {
	return func(t *HTTPTool) { t.client = client }
}

// WithTransform sets the response post-processing function.
func WithTransform(fn func(raw string) (string, error)) HTTPToolOption {
	return func(t *HTTPTool) { t.transform = fn }
}

// WithHTTPLogger attaches a logger for call tracing.
func WithHTTPLogger(logger logging.Logger) HTTPToolOption {
	return func(t *HTTPTool) { t.logger = logger }
}

// NewHTTPTool validates the definition and builds the tool. Every placeholder
// in the URL template must be declared as an argument.
func NewHTTPTool(def Definition, optFns ...HTTPToolOption) (*HTTPTool, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("http tool: name is required")
	}
	if def.URLTemplate == "" {
		return nil, fmt.Errorf("http tool %q: url is required", def.Name)
	}
	switch strings.ToUpper(def.Method) {
	case "", http.MethodGet:
		def.Method = http.MethodGet
	case http.MethodPost:
		def.Method = http.MethodPost
	default:
		return nil, fmt.Errorf("http tool %q: unsupported method %q", def.Name, def.Method)
	}
	for _, param := range util.TemplateParams(def.URLTemplate) {
		if _, ok := def.Args[param]; !ok {
			return nil, fmt.Errorf("http tool %q: url placeholder {%s} has no declared argument", def.Name, param)
		}
	}

	t := &HTTPTool{
		def:    def,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(t)
	}
	return t, nil
}

// Name returns the tool name.
func (t *HTTPTool) Name() string { return t.def.Name }

// Description returns the tool description shown to models.
func (t *HTTPTool) Description() string { return t.def.Description }

// Parameters returns an object schema with one required string property per
// declared argument.
func (t *HTTPTool) Parameters() map[string]any {
	return util.StringArgsSchema(t.def.Args)
}

// Call substitutes arguments into the URL template, performs the request and
// returns the (possibly transformed) response body.
func (t *HTTPTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return nil, &ToolError{
			Tool:    t.def.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	values := make(map[string]string, len(args))
	for k, v := range args {
		values[k] = fmt.Sprintf("%v", v)
	}
	url, err := util.ExpandURLTemplate(t.def.URLTemplate, values)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: "VALIDATION_ERROR"}
	}

	req, err := http.NewRequestWithContext(ctx, t.def.Method, url, nil)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	t.logger.Debug("tool.http.request", "tool", t.def.Name, "method", t.def.Method, "url", url)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ToolError{
			Tool:    t.def.Name,
			Message: fmt.Sprintf("endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
			Code:    "EXECUTION_ERROR",
		}
	}

	raw := string(body)
	if t.transform != nil {
		transformed, err := t.transform(raw)
		if err != nil {
			// A broken transform must not lose the data.
			t.logger.Warn("tool.http.transform_failed", "tool", t.def.Name, "error", err.Error())
			return raw, nil
		}
		return transformed, nil
	}
	return raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

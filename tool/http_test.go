package tool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPTool_Validation(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{name: "missing name", def: Definition{URLTemplate: "http://x"}},
		{name: "missing url", def: Definition{Name: "t"}},
		{name: "bad method", def: Definition{Name: "t", URLTemplate: "http://x", Method: "DELETE"}},
		{
			name: "undeclared placeholder",
			def:  Definition{Name: "t", URLTemplate: "http://x/{day}", Args: map[string]string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPTool(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestHTTPTool_SubstitutesAndEscapesArgs(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"rows": 3}`))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(Definition{
		Name:        "order_stats",
		Description: "order statistics",
		URLTemplate: srv.URL + "/stats?range={range}",
		Args:        map[string]string{"range": "time range"},
	})
	require.NoError(t, err)

	result, err := tool.Call(context.Background(), map[string]any{"range": "last 7 days"})
	require.NoError(t, err)
	assert.Equal(t, `{"rows": 3}`, result)
	assert.Equal(t, "/stats", gotPath)
	assert.Equal(t, "range=last+7+days", gotQuery)
}

func TestHTTPTool_MissingArgIsValidationError(t *testing.T) {
	tool, err := NewHTTPTool(Definition{
		Name:        "order_stats",
		URLTemplate: "http://127.0.0.1:1/{range}",
		Args:        map[string]string{"range": "time range"},
	})
	require.NoError(t, err)

	_, err = tool.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestHTTPTool_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(Definition{Name: "t", URLTemplate: srv.URL})
	require.NoError(t, err)

	_, err = tool.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "502")
}

func TestHTTPTool_TransformFailureKeepsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("raw payload"))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(
		Definition{Name: "t", URLTemplate: srv.URL},
		WithTransform(func(string) (string, error) {
			return "", errors.New("bad transform")
		}),
	)
	require.NoError(t, err)

	result, err := tool.Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "raw payload", result)
}

func TestHTTPTool_TransformApplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  padded  "))
	}))
	defer srv.Close()

	tool, err := NewHTTPTool(
		Definition{Name: "t", URLTemplate: srv.URL},
		WithTransform(func(raw string) (string, error) {
			return "clean:" + raw, nil
		}),
	)
	require.NoError(t, err)

	result, err := tool.Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "clean:  padded  ", result)
}

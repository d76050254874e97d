package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandURLTemplate(t *testing.T) {
	got, err := ExpandURLTemplate(
		"https://data.internal/orders?day={day}&range={range}",
		map[string]string{"day": "monday", "range": "last 7 days"},
	)
	require.NoError(t, err)
	assert.Equal(t, "https://data.internal/orders?day=monday&range=last+7+days", got)
}

func TestExpandURLTemplate_MissingValue(t *testing.T) {
	_, err := ExpandURLTemplate("https://x/{a}/{b}", map[string]string{"a": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing values for b")
}

func TestExpandURLTemplate_RepeatedPlaceholder(t *testing.T) {
	got, err := ExpandURLTemplate("https://x/{id}/copy/{id}", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "https://x/42/copy/42", got)
}

func TestTemplateParams(t *testing.T) {
	assert.Equal(t, []string{"day", "range"}, TemplateParams("https://x?d={day}&r={range}&d2={day}"))
	assert.Empty(t, TemplateParams("https://x/plain"))
}

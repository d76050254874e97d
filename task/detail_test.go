package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetail_IsIntegrated(t *testing.T) {
	tests := []struct {
		name   string
		detail *Detail
		want   bool
	}{
		{name: "nil detail", detail: nil, want: false},
		{name: "empty detail", detail: &Detail{}, want: false},
		{
			name: "partial detail",
			detail: &Detail{
				Target:     Ptr("daily orders"),
				DataFormat: Ptr(FormatTable),
			},
			want: false,
		},
		{
			name: "whitespace only field",
			detail: &Detail{
				Target:        Ptr("daily orders"),
				QueryParam:    Ptr("  "),
				DataOperation: Ptr("sum"),
				DataFormat:    Ptr(FormatTable),
			},
			want: false,
		},
		{
			name: "all fields set",
			detail: &Detail{
				Target:        Ptr("daily orders"),
				QueryParam:    Ptr("last 7 days"),
				DataOperation: Ptr("sum by day"),
				DataFormat:    Ptr(FormatLineChart),
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.IsIntegrated())
		})
	}
}

func TestDetail_Merge(t *testing.T) {
	base := Detail{
		Target:     Ptr("daily orders"),
		DataFormat: Ptr(FormatTable),
	}
	patch := Detail{
		QueryParam: Ptr("last 7 days"),
		DataFormat: Ptr(FormatLineChart),
	}

	merged := base.Merge(patch)

	// Patch fields win where present, base fields survive where absent.
	assert.Equal(t, "daily orders", *merged.Target)
	assert.Equal(t, "last 7 days", *merged.QueryParam)
	assert.Equal(t, FormatLineChart, *merged.DataFormat)
	assert.Nil(t, merged.DataOperation)

	// Merge must not mutate its inputs.
	assert.Equal(t, FormatTable, *base.DataFormat)
	assert.Nil(t, patch.Target)
}

func TestDetail_MergeEmptyPatch(t *testing.T) {
	base := Detail{Target: Ptr("daily orders")}
	merged := base.Merge(Detail{})
	assert.True(t, merged.Equal(&base))
}

func TestDetail_MissingFields(t *testing.T) {
	d := &Detail{Target: Ptr("x"), DataOperation: Ptr("sum")}
	assert.Equal(t, []string{"queryParam", "dataFormat"}, d.MissingFields())

	full := &Detail{
		Target:        Ptr("x"),
		QueryParam:    Ptr("y"),
		DataOperation: Ptr("z"),
		DataFormat:    Ptr(FormatTable),
	}
	assert.Empty(t, full.MissingFields())
}

func TestDetail_JSONRoundTrip(t *testing.T) {
	d := Detail{
		Target:     Ptr("daily orders"),
		DataFormat: Ptr(FormatTable),
	}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var back Detail
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Equal(&d))
	// Absent fields stay absent, they must not come back as empty strings.
	assert.Nil(t, back.QueryParam)
}

func TestDetail_Describe(t *testing.T) {
	d := &Detail{Target: Ptr("daily orders")}
	out := d.Describe()
	assert.Contains(t, out, "daily orders")
	assert.Contains(t, out, "(not set)")
}

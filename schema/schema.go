// Package schema defines the structured outputs the workflow expects from the
// model (intent classification, task templates, formatted data) plus a
// decoder that extracts them from free-form completions.
package schema

// Intents recognized by the intent classifier. Anything the classifier cannot
// map onto a concrete intent falls back to IntentOthers; turns without any
// conversational input use IntentDefault.
const (
	IntentQueryData = "query_data"
	IntentExecute   = "execute"
	IntentCreate    = "create"
	IntentEdit      = "edit"
	IntentDelete    = "delete"
	IntentTestRun   = "test_run"
	IntentSave      = "save"
	IntentOthers    = "others"
	IntentDefault   = "default"
)

// KnownIntent reports whether the label is one of the recognized intents.
func KnownIntent(label string) bool {
	switch label {
	case IntentQueryData, IntentExecute, IntentCreate, IntentEdit,
		IntentDelete, IntentTestRun, IntentSave, IntentOthers, IntentDefault:
		return true
	}
	return false
}

// TaskScoped reports whether the intent operates on a specific task and
// therefore needs a task name or id to be actionable.
func TaskScoped(label string) bool {
	switch label {
	case IntentExecute, IntentEdit, IntentDelete, IntentTestRun, IntentSave:
		return true
	}
	return false
}

// Intent is the classifier's structured verdict about the latest user turn.
// TaskID is a string because models frequently emit ids as quoted numbers.
type Intent struct {
	IntentType string `json:"intent_type"`
	TaskID     string `json:"task_id,omitempty"`
	TaskName   string `json:"task_name,omitempty"`
}

// TaskTemplate is the model's extraction of task template fields from the
// conversation. Pointer fields distinguish "not mentioned" from empty.
type TaskTemplate struct {
	Target        *string `json:"target"`
	QueryParam    *string `json:"queryParam"`
	DataOperation *string `json:"dataOperation"`
	DataFormat    *string `json:"dataFormat"`
}

// Data presentation formats a task may declare.
const (
	FormatTable     = "table"
	FormatLineChart = "line_chart"
)

// Table is the normalized tabular rendering of a query result.
type Table struct {
	DataExists bool       `json:"dataExists"`
	HeaderList []string   `json:"headerList"`
	DataList   [][]string `json:"dataList"`
}

// LineChart is the normalized line chart rendering of a query result.
type LineChart struct {
	DataExists bool      `json:"dataExists"`
	XName      string    `json:"xName"`
	XAxis      []string  `json:"xAxis"`
	YName      string    `json:"yName"`
	YAxis      []float64 `json:"yAxis"`
}

package workflow

import (
	"fmt"
	"strings"

	"github.com/supbro-dev/Wagner-agent/schema"
	"github.com/supbro-dev/Wagner-agent/task"
)

func intentInstructions(systemPrompt string) string {
	return systemPrompt + `

Classify the user's latest request into exactly one intent:
  query_data - an ad-hoc data question answered immediately
  execute    - run a saved task (the user names an existing task or its id)
  create     - define a new reusable query task
  edit       - change the template of an existing task
  delete     - remove an existing task
  test_run   - try out a task template without saving execution statistics
  save       - persist the task template being worked on
  others     - anything else related to data work
  default    - greetings or requests outside the data domain

Answer with only a JSON object:
{"intent_type": "<intent>", "task_id": "<id if the user gave one>", "task_name": "<name if the user gave one>"}

Omit task_id and task_name when the user did not mention them.`
}

func templateInstructions(systemPrompt string, detail *task.Detail) string {
	var current string
	if detail != nil {
		current = "\n\nCurrent template:\n" + detail.Describe()
	}
	return systemPrompt + current + `

Extract the task template fields the user provided in the conversation.
A task template has four fields:
  target        - what data the task fetches
  queryParam    - filters and time ranges to apply
  dataOperation - the aggregation or transformation to perform
  dataFormat    - how to present the result ("table" or "line_chart")

Answer with only a JSON object containing exactly the fields the user
actually specified, e.g. {"target": "...", "dataFormat": "table"}.
Never invent values for fields the user has not mentioned.`
}

func howToImproveInstructions(systemPrompt string, st *State) string {
	detail := st.TaskDetail
	if detail.IsIntegrated() {
		return systemPrompt + fmt.Sprintf(`

The task %q now has a complete template:

%s

Summarize the template for the user and remind them they can test-run it or
say "save" to persist it.`, st.TaskName, detail.Describe())
	}
	return systemPrompt + fmt.Sprintf(`

The task template is not complete yet:

%s

Missing fields: %s.

Tell the user what is already captured and ask, concisely, for the missing
fields. The task cannot be saved or executed until all fields are filled.`,
		detail.Describe(), strings.Join(detail.MissingFields(), ", "))
}

func queryInstructions(systemPrompt string) string {
	return systemPrompt + `

Answer the user's data question. Use the available tools to fetch real data;
never fabricate numbers. Summarize the result clearly.`
}

func executeInstructions(systemPrompt string, st *State, recordToolName string) string {
	return systemPrompt + fmt.Sprintf(`

Execute the task %q according to its template:

%s

Use the available tools to fetch the data and apply the data operation.
After you have presented the result, call %s once with the task id %d to
record the execution.`, st.TaskName, st.TaskDetail.Describe(), recordToolName, st.TaskID)
}

func testRunInstructions(systemPrompt string, st *State) string {
	return systemPrompt + fmt.Sprintf(`

This is a test run of the task template below. Fetch the data with the
available tools and apply the data operation, but do not treat it as a real
execution.

%s`, st.TaskDetail.Describe())
}

func deleteInstructions(systemPrompt string, st *State) string {
	return systemPrompt + fmt.Sprintf(`

The user wants to delete the task %q (id %d). Call the delete tool with the
task id and name. Do not delete anything else.`, st.TaskName, st.TaskID)
}

func defaultInstructions(systemPrompt string, frequentTasks []string, memories []string) string {
	b := strings.Builder{}
	b.WriteString(systemPrompt)
	b.WriteString(`

Reply conversationally. Introduce yourself as a data analysis assistant that
can answer data questions and manage reusable query tasks (create, edit,
execute, test-run, save, delete).`)
	if len(frequentTasks) > 0 {
		b.WriteString("\n\nTasks this user runs often: ")
		b.WriteString(strings.Join(frequentTasks, ", "))
		b.WriteString(". Mention them if a suggestion is helpful.")
	}
	if len(memories) > 0 {
		b.WriteString("\n\nRelevant earlier interactions:\n")
		for _, m := range memories {
			b.WriteString("- " + m + "\n")
		}
	}
	return b.String()
}

func convertInstructions(format string) string {
	switch format {
	case schema.FormatLineChart:
		return `Convert the data in the message into a line chart structure.
Answer with only a JSON object:
{"dataExists": true, "xName": "...", "xAxis": ["..."], "yName": "...", "yAxis": [1.0]}
If the message contains no usable data, answer {"dataExists": false}.`
	default:
		return `Convert the data in the message into a table structure.
Answer with only a JSON object:
{"dataExists": true, "headerList": ["..."], "dataList": [["..."]]}
If the message contains no usable data, answer {"dataExists": false}.`
	}
}

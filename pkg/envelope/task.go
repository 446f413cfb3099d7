package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ParsedTask is the structured output shape for the task-parsing feature.
// Using jsonschema tags to add validation constraints
type ParsedTask struct {
	Title           string `json:"title" jsonschema:"title=Task Title,description=Short imperative title of the task,minLength=1,maxLength=200"`
	Notes           string `json:"notes,omitempty" jsonschema:"description=Additional detail extracted from the input"`
	StartTime       string `json:"start_time,omitempty" jsonschema:"description=ISO 8601 start time if the input mentions one"`
	DurationMinutes int    `json:"duration_minutes,omitempty" jsonschema:"minimum=0,description=Estimated duration in minutes"`
	Priority        int    `json:"priority,omitempty" jsonschema:"minimum=1,maximum=5,description=Priority level from 1 (low) to 5 (high)"`
	Tags            []string `json:"tags,omitempty" jsonschema:"description=List of relevant tags,uniqueItems=true"`
}

// TaskSchema returns the JSON schema for ParsedTask, used by providers that
// support schema-constrained structured output.
func TaskSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&ParsedTask{})

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode task schema: %w", err)
	}
	return out, nil
}

// ParseTaskContent validates that provider content conforms to ParsedTask.
func ParseTaskContent(content string) (*ParsedTask, error) {
	var task ParsedTask
	if err := json.Unmarshal([]byte(content), &task); err != nil {
		return nil, fmt.Errorf("task content is not valid JSON: %w", err)
	}
	if task.Title == "" {
		return nil, fmt.Errorf("task content missing title")
	}
	return &task, nil
}

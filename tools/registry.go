// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are defined declaratively and registered through type-safe handlers,
// grouped into the sub-servers that can be mounted into the root server.
package tools

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a service method taking an Args struct and returning text.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "mast_observation_query")
	Name string

	// Method is the service method name (e.g., "ObservationQuery")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (discovery, search, details, etc.)
	Category string

	// Server is the sub-server the tool is mounted with
	Server string

	// ReadOnly indicates the tool doesn't modify archive state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// ToolsByServer returns the tools mounted with the given sub-server.
func ToolsByServer(server string) []ToolSpec {
	var result []ToolSpec
	for _, spec := range AllTools {
		if spec.Server == server {
			result = append(result, spec)
		}
	}
	return result
}

// ToolsByCategory returns the tools in the given category.
func ToolsByCategory(category string) []ToolSpec {
	var result []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			result = append(result, spec)
		}
	}
	return result
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}

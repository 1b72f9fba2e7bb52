package types

import "fmt"

// Error taxonomy. Only three kinds surface to callers: missing required
// field, unsupported tool, and generation failure (composition with corrupt
// profile data). Everything else degrades in place.

// MissingRequiredFieldError reports an absent mandatory input field.
// Raised only by the normalizer, before any retrieval work starts.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// UnsupportedToolError reports an unknown target tool id. The engine never
// silently substitutes a default tool.
type UnsupportedToolError struct {
	ToolID string
}

func (e *UnsupportedToolError) Error() string {
	return fmt.Sprintf("unsupported tool: %q", e.ToolID)
}

// CompositionError reports a failure of the deterministic template-filling
// step. This is the one pipeline stage with no fallback: it only fails when
// profile configuration data is corrupt.
type CompositionError struct {
	ToolID string
	Stage  Stage
	Err    error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed for tool %q stage %q: %v", e.ToolID, e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// GenerationError wraps an unrecoverable orchestrator failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("prompt generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

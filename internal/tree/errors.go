package tree

import "fmt"

// ConfigurationError reports an unusable iterator setup: a missing or
// unreadable root directory, or a pattern that does not compile.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StructuralIOError reports that the batch tree became unreadable during a
// walk. It is fatal for the walk.
type StructuralIOError struct {
	Path string
	Err  error
}

func (e *StructuralIOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *StructuralIOError) Unwrap() error {
	return e.Err
}

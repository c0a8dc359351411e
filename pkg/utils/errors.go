package utils

import "fmt"

// WrapError wraps an error with a consistent message format
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("unable to %s: %w", operation, err)
}

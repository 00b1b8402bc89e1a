package imgcdn

import "fmt"

// A ConfigError is returned when a Rewriter is misconfigured
type ConfigError struct {
	Option string // What was misconfigured
	Err    error
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("imgcdn: invalid %s: %v", err.Option, err.Err)
}

// Cause implements github.com/pkg/errors' causer
func (err ConfigError) Cause() error {
	return err.Err
}

// Unwrap supports errors.Is and errors.As
func (err ConfigError) Unwrap() error {
	return err.Err
}

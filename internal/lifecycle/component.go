// Package lifecycle starts process components in dependency order and stops
// them in reverse.
package lifecycle

import "context"

// Component is anything with a start/stop lifecycle: the tracer provider,
// the integration manager.
type Component interface {
	// Start must return once the component is usable.
	Start(ctx context.Context) error

	// Stop should finish within the context deadline. An error is logged but
	// never prevents other components from stopping.
	Stop(ctx context.Context) error

	// Name is used in logs and must not be empty.
	Name() string
}

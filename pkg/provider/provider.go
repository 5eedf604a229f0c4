package provider

import "context"

// Provider abstracts an LLM inference backend. Each adapter handles its
// own backend protocol internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Complete performs synchronous inference. Backend failures (network,
	// auth, rate limit) are returned as errors and are never masked;
	// retry policy belongs to the caller.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Package api defines the wire types for the dozent HTTP API and the
// shared error taxonomy used across packages. Handlers serialize these
// types directly; internal packages return *APIError for failures that
// should surface to clients with a specific status.
package api

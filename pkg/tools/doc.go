// Package tools defines the tool abstraction offered to the model and
// the registry that maps tool names to executable handlers. The registry
// also collects retrieval evidence ("sources") produced by tools during
// an exchange, which callers drain and reset explicitly.
package tools

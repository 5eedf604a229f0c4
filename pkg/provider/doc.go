// Package provider abstracts the model inference backend. The request
// and response types are Chat-Completions-shaped: a message list with
// optional tool definitions goes in, and a single assistant message with
// a finish reason comes out. Adapters for concrete backends live in
// subpackages (openai).
package provider

// Package vectorstore provides semantic search over course materials.
// Course metadata and content chunks live in two collections of a
// Qdrant instance; text is embedded through an OpenAI-compatible
// embeddings endpoint.
package vectorstore

// Package generator implements the tool-augmented generation loop: one
// user query goes in, model calls and tool executions alternate for a
// bounded number of rounds, and one final textual answer comes out.
//
// Tool failures are isolated into diagnostic tool results the model can
// react to. Model backend failures are hard errors and terminate the
// exchange; retry policy belongs to the caller.
package generator

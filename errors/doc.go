// Package errors provides structured error types for the closure
// subsystem. Every error carries a Phase (where it happened) and a Kind
// (what went wrong), so callers can match with errors.Is without
// string comparison, and the host surface can map kinds onto wire
// error codes.
package errors

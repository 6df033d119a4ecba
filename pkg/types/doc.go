// Package types defines the core data structures for the workflow execution engine.
package types

// Package aggregates declares the write boundaries of the family space: the growth
// aggregate interface, its inputs and results, and the coded error every write returns.
// Storage lives in internal/data/aggregates.
package aggregates

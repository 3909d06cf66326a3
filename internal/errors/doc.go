// Package errors provides structured, coded errors for the strand CLI and
// its operator-facing surfaces.
//
// Every user-visible failure carries a stable code (e.g. "E120"), a
// category, and optionally a detail paragraph and a fix suggestion. The
// runtime packages under pkg/ use plain sentinel errors; this package is
// for the places where a human reads the output.
//
// Usage:
//
//	return errors.New("E120").
//		WithDetail("Failed to parse strand.json: " + err.Error()).
//		WithSuggestion("Check that strand.json is valid JSON")
package errors

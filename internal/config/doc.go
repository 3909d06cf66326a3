// Package config loads and validates strand.json, the project-level
// configuration of the strand runtime: worker count, per-server pacing and
// placement, logging, metrics, and the debug inspector.
package config

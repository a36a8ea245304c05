// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate migration results into concise text so that CLI users
// see what changed while detailed telemetry continues to flow through
// structured loggers.
package ui

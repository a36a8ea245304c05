// Package cli constructs the ngjest command-line interface, wiring the Cobra
// command hierarchy, the layered configuration loader and zap logging around
// the add-jest migration command.
package cli

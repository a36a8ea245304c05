// Package migrate hosts the Karma to Jest migration.
//
// Service stages every edit in a virtual tree, runs the migration rules in
// order, and commits the net change log only when every rule succeeded.
// CommandBuilder exposes the service as the add-jest Cobra command.
package migrate

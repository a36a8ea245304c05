// Package preset describes what a migration removes, adds and writes.
//
// The default preset and its template files are embedded in the binary. An
// override file decoded with yaml.v3 replaces only the fields it declares and
// may point template_directory at a directory of replacement templates.
package preset

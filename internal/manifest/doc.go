// Package manifest edits package.json documents staged in a tree.
//
// Edits go through gjson and sjson so untouched keys keep their position.
// Dependency sections are kept alphabetically sorted after every edit and the
// document is always written back two-space indented with a trailing newline.
package manifest

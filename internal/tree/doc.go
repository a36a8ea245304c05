// Package tree stages file mutations for a migration run over a read-only
// base filesystem and exposes the net change log that Commit applies.
package tree

// Package fileset deletes and merges groups of files in a staged tree.
package fileset

// Package install runs the post-migration dependency installation through the
// configured package manager.
package install

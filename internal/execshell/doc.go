// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with lifecycle logging and typed errors.
// OSCommandRunner is the default runner backed by os/exec. The post-migration
// installer runs npm, yarn and pnpm through these helpers.
package execshell

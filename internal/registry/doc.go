// Package registry resolves the latest published version of npm packages.
//
// Resolver queries an npm-compatible registry over HTTP, caches each answer for
// the lifetime of the resolver, collapses concurrent lookups of the same
// package, and resolves batches concurrently while preserving input order.
// Credentials are located through TokenResolver using env: or file: sources.
package registry

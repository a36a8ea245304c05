// Package rules runs ordered migration rules over a staged tree.
//
// Every rule returns a Future so synchronous edits and network-bound steps are
// sequenced the same way: the executor awaits each Future before starting the
// next rule and aborts on the first failure with a StepError. Deferred tasks
// and warnings are collected on the Context and are never rolled back.
package rules

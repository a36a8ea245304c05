package rules

import (
	"context"

	"github.com/temirov/ngjest/internal/tree"
)

// Rule is one step of a migration.
type Rule interface {
	Name() string
	Apply(executionContext context.Context, stagedTree *tree.Tree, runContext *Context) *Future
}

// StepFunc edits the staged tree in place.
type StepFunc func(executionContext context.Context, stagedTree *tree.Tree, runContext *Context) error

// Sync adapts a function that completes before returning.
func Sync(name string, step StepFunc) Rule {
	return functionRule{name: name, step: step}
}

// Async adapts a function that runs on its own goroutine. The executor awaits it before the next rule,
// and after a cancellation it still waits for the function to return.
func Async(name string, step StepFunc) Rule {
	return functionRule{name: name, step: step, asynchronous: true}
}

// Chain composes rules into a single rule that runs them in order.
func Chain(name string, chained ...Rule) Rule {
	return chainRule{name: name, rules: append([]Rule(nil), chained...)}
}

type functionRule struct {
	name         string
	step         StepFunc
	asynchronous bool
}

func (rule functionRule) Name() string {
	return rule.name
}

func (rule functionRule) Apply(executionContext context.Context, stagedTree *tree.Tree, runContext *Context) *Future {
	if rule.step == nil {
		return Resolved(stagedTree)
	}
	if rule.asynchronous {
		return Go(func() (*tree.Tree, error) {
			if stepError := rule.step(executionContext, stagedTree, runContext); stepError != nil {
				return nil, stepError
			}
			return stagedTree, nil
		})
	}
	if stepError := rule.step(executionContext, stagedTree, runContext); stepError != nil {
		return Rejected(stepError)
	}
	return Resolved(stagedTree)
}

type chainRule struct {
	name  string
	rules []Rule
}

func (rule chainRule) Name() string {
	return rule.name
}

func (rule chainRule) Apply(executionContext context.Context, stagedTree *tree.Tree, runContext *Context) *Future {
	outcome, executionError := NewExecutor(rule.rules).Execute(executionContext, stagedTree, runContext)
	if executionError != nil {
		return Rejected(executionError)
	}
	return Resolved(outcome.Tree)
}

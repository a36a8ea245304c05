package rules

import (
	"context"

	"github.com/temirov/ngjest/internal/tree"
)

// Future is the eventual result of a rule.
type Future struct {
	done   chan struct{}
	result *tree.Tree
	err    error
}

// Resolved returns a completed Future carrying the tree for the next rule.
func Resolved(result *tree.Tree) *Future {
	future := &Future{done: make(chan struct{}), result: result}
	close(future.done)
	return future
}

// Rejected returns a completed Future carrying a failure.
func Rejected(failure error) *Future {
	future := &Future{done: make(chan struct{}), err: failure}
	close(future.done)
	return future
}

// Go runs work on its own goroutine and returns a Future completed with its result.
func Go(work func() (*tree.Tree, error)) *Future {
	future := &Future{done: make(chan struct{})}
	go func() {
		defer close(future.done)
		future.result, future.err = work()
	}()
	return future
}

// Await blocks until the Future completes or the context is done.
func (future *Future) Await(awaitContext context.Context) (*tree.Tree, error) {
	select {
	case <-future.done:
		return future.result, future.err
	case <-awaitContext.Done():
		return nil, awaitContext.Err()
	}
}

// settle blocks until the work behind the Future has returned, regardless of any context.
func (future *Future) settle() {
	if future.done == nil {
		return
	}
	<-future.done
}

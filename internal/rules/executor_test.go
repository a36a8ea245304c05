package rules_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/ngjest/internal/rules"
	"github.com/temirov/ngjest/internal/tree"
)

const (
	orderFilePathConstant   = "order.txt"
	firstRuleNameConstant   = "first"
	secondRuleNameConstant  = "second"
	thirdRuleNameConstant   = "third"
	failingRuleNameConstant = "failing"
)

var errRuleFailure = errors.New("registry unavailable")

type namedTask struct {
	name string
}

func (task namedTask) Name() string {
	return task.name
}

func appendMarker(marker string) rules.StepFunc {
	return func(_ context.Context, stagedTree *tree.Tree, _ *rules.Context) error {
		content, readError := stagedTree.Read(orderFilePathConstant)
		if readError != nil {
			content = nil
		}
		return stagedTree.Write(orderFilePathConstant, append(content, []byte(marker)...))
	}
}

func readOrder(testInstance *testing.T, stagedTree *tree.Tree) string {
	testInstance.Helper()
	content, readError := stagedTree.Read(orderFilePathConstant)
	require.NoError(testInstance, readError)
	return string(content)
}

func TestRunExecutesRulesInOrderAwaitingAsyncRules(testInstance *testing.T) {
	stagedTree := tree.New(afero.NewMemMapFs())

	slowAsync := rules.Async(secondRuleNameConstant, func(executionContext context.Context, currentTree *tree.Tree, runContext *rules.Context) error {
		time.Sleep(20 * time.Millisecond)
		return appendMarker("B")(executionContext, currentTree, runContext)
	})

	finalTree, runError := rules.Run(context.Background(), []rules.Rule{
		rules.Sync(firstRuleNameConstant, appendMarker("A")),
		slowAsync,
		nil,
		rules.Sync(thirdRuleNameConstant, appendMarker("C")),
	}, stagedTree, rules.NewContext(nil))
	require.NoError(testInstance, runError)
	require.Same(testInstance, stagedTree, finalTree)
	require.Equal(testInstance, "ABC", readOrder(testInstance, finalTree))
}

func TestExecuteAbortsOnFirstFailure(testInstance *testing.T) {
	testCases := []struct {
		name        string
		failingRule rules.Rule
	}{
		{
			name: "synchronous_failure",
			failingRule: rules.Sync(failingRuleNameConstant, func(context.Context, *tree.Tree, *rules.Context) error {
				return errRuleFailure
			}),
		},
		{
			name: "asynchronous_rejection",
			failingRule: rules.Async(failingRuleNameConstant, func(context.Context, *tree.Tree, *rules.Context) error {
				return errRuleFailure
			}),
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			stagedTree := tree.New(afero.NewMemMapFs())
			observedCore, observedLogs := observer.New(zapcore.DebugLevel)
			runContext := rules.NewContext(zap.New(observedCore))

			registerTask := rules.Sync(firstRuleNameConstant, func(executionContext context.Context, currentTree *tree.Tree, currentContext *rules.Context) error {
				currentContext.AddTask(namedTask{name: "install"})
				currentContext.Warn(firstRuleNameConstant, "workspace left unchanged")
				return appendMarker("A")(executionContext, currentTree, currentContext)
			})

			outcome, executionError := rules.NewExecutor([]rules.Rule{
				registerTask,
				testCase.failingRule,
				rules.Sync(thirdRuleNameConstant, appendMarker("C")),
			}).Execute(context.Background(), stagedTree, runContext)
			require.Error(testingInstance, executionError)
			require.ErrorIs(testingInstance, executionError, errRuleFailure)

			var stepError rules.StepError
			require.ErrorAs(testingInstance, executionError, &stepError)
			require.Equal(testingInstance, 1, stepError.Index)
			require.Equal(testingInstance, failingRuleNameConstant, stepError.Name)
			require.Contains(testingInstance, stepError.Error(), "migration rule 2 (failing) failed")

			require.Len(testingInstance, outcome.Steps, 3)
			require.Equal(testingInstance, rules.StepCompleted, outcome.Steps[0].Status)
			require.Equal(testingInstance, rules.StepFailed, outcome.Steps[1].Status)
			require.ErrorIs(testingInstance, outcome.Steps[1].Err, errRuleFailure)
			require.Equal(testingInstance, rules.StepNotRun, outcome.Steps[2].Status)
			require.Equal(testingInstance, thirdRuleNameConstant, outcome.Steps[2].Name)

			require.Equal(testingInstance, "A", readOrder(testingInstance, stagedTree))
			require.Equal(testingInstance, []rules.Task{namedTask{name: "install"}}, runContext.Tasks())
			require.Equal(testingInstance, []rules.Warning{{Rule: firstRuleNameConstant, Message: "workspace left unchanged"}}, runContext.Warnings())
			require.Equal(testingInstance, 1, observedLogs.FilterMessage("Rule failed").Len())
		})
	}
}

func TestChainComposesSubChains(testInstance *testing.T) {
	stagedTree := tree.New(afero.NewMemMapFs())

	outcome, executionError := rules.NewExecutor([]rules.Rule{
		rules.Sync(firstRuleNameConstant, appendMarker("A")),
		rules.Chain("nested", rules.Async("nested-async", appendMarker("B")), rules.Sync("nested-sync", appendMarker("C"))),
		rules.Sync(thirdRuleNameConstant, appendMarker("D")),
	}).Execute(context.Background(), stagedTree, nil)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, "ABCD", readOrder(testInstance, outcome.Tree))
	require.Len(testInstance, outcome.Steps, 3)
	require.Equal(testInstance, "nested", outcome.Steps[1].Name)

	failingChain := rules.Chain("nested", rules.Sync("nested-failure", func(context.Context, *tree.Tree, *rules.Context) error {
		return errRuleFailure
	}))
	_, chainError := rules.Run(context.Background(), []rules.Rule{failingChain}, stagedTree, nil)

	var outerError rules.StepError
	require.ErrorAs(testInstance, chainError, &outerError)
	require.Equal(testInstance, "nested", outerError.Name)
	var innerError rules.StepError
	require.ErrorAs(testInstance, outerError.Cause, &innerError)
	require.Equal(testInstance, "nested-failure", innerError.Name)
}

type replacingRule struct {
	replacement *tree.Tree
}

func (rule replacingRule) Name() string {
	return "replace"
}

func (rule replacingRule) Apply(context.Context, *tree.Tree, *rules.Context) *rules.Future {
	return rules.Resolved(rule.replacement)
}

type nilFutureRule struct{}

func (nilFutureRule) Name() string {
	return "nil-future"
}

func (nilFutureRule) Apply(context.Context, *tree.Tree, *rules.Context) *rules.Future {
	return nil
}

func TestRunThreadsReturnedTree(testInstance *testing.T) {
	initialTree := tree.New(afero.NewMemMapFs())
	replacementTree := tree.New(afero.NewMemMapFs())

	finalTree, runError := rules.Run(context.Background(), []rules.Rule{
		nilFutureRule{},
		replacingRule{replacement: replacementTree},
		rules.Sync(secondRuleNameConstant, appendMarker("B")),
	}, initialTree, nil)
	require.NoError(testInstance, runError)
	require.Same(testInstance, replacementTree, finalTree)
	require.Equal(testInstance, "B", readOrder(testInstance, replacementTree))

	exists, existsError := initialTree.Exists(orderFilePathConstant)
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestRunHonorsCancellation(testInstance *testing.T) {
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, runError := rules.Run(cancelledContext, []rules.Rule{rules.Sync(firstRuleNameConstant, appendMarker("A"))}, tree.New(nil), nil)
	require.ErrorIs(testInstance, runError, context.Canceled)

	_, missingTreeError := rules.Run(context.Background(), nil, nil, nil)
	require.ErrorIs(testInstance, missingTreeError, rules.ErrTreeNotProvided)
}

func TestRunWaitsForAbandonedAsyncRuleBeforeReturning(testInstance *testing.T) {
	const lateFilePathConstant = "late.txt"
	stagedTree := tree.New(afero.NewMemMapFs())

	var stepReturned atomic.Bool
	slowAsync := rules.Async(secondRuleNameConstant, func(_ context.Context, currentTree *tree.Tree, _ *rules.Context) error {
		defer stepReturned.Store(true)
		time.Sleep(50 * time.Millisecond)
		return currentTree.Write(lateFilePathConstant, []byte("late"))
	})
	trailing := rules.Sync(thirdRuleNameConstant, appendMarker("C"))

	timeoutContext, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcome, executionError := rules.NewExecutor([]rules.Rule{slowAsync, trailing}).Execute(timeoutContext, stagedTree, nil)
	require.ErrorIs(testInstance, executionError, context.DeadlineExceeded)
	require.True(testInstance, stepReturned.Load())
	require.Len(testInstance, outcome.Steps, 2)
	require.Equal(testInstance, rules.StepFailed, outcome.Steps[0].Status)
	require.Equal(testInstance, rules.StepNotRun, outcome.Steps[1].Status)

	pathsAtReturn, pathsError := stagedTree.Paths()
	require.NoError(testInstance, pathsError)
	time.Sleep(60 * time.Millisecond)
	pathsLater, laterError := stagedTree.Paths()
	require.NoError(testInstance, laterError)
	require.Equal(testInstance, pathsAtReturn, pathsLater)

	orderExists, existsError := stagedTree.Exists(orderFilePathConstant)
	require.NoError(testInstance, existsError)
	require.False(testInstance, orderExists)
}

func TestFutureAwait(testInstance *testing.T) {
	resolvedTree := tree.New(nil)
	awaitedTree, awaitError := rules.Resolved(resolvedTree).Await(context.Background())
	require.NoError(testInstance, awaitError)
	require.Same(testInstance, resolvedTree, awaitedTree)

	_, rejectedError := rules.Rejected(errRuleFailure).Await(context.Background())
	require.ErrorIs(testInstance, rejectedError, errRuleFailure)

	blocking := make(chan struct{})
	defer close(blocking)
	pending := rules.Go(func() (*tree.Tree, error) {
		<-blocking
		return nil, nil
	})
	timeoutContext, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, pendingError := pending.Await(timeoutContext)
	require.ErrorIs(testInstance, pendingError, context.DeadlineExceeded)
}

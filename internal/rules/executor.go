package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/ngjest/internal/tree"
)

const (
	stepErrorTemplateConstant    = "migration rule %d (%s) failed: %v"
	missingTreeMessageConstant   = "rule chain requires a staged tree"
	ruleStartedMessageConstant   = "Applying rule"
	ruleCompletedMessageConstant = "Rule completed"
	ruleFailedMessageConstant    = "Rule failed"
	ruleIndexLogFieldConstant    = "index"
	ruleDurationLogFieldConstant = "duration"
)

// ErrTreeNotProvided indicates the chain was started without a tree.
var ErrTreeNotProvided = errors.New(missingTreeMessageConstant)

// StepStatus reports how far a rule got.
type StepStatus string

// Step statuses.
const (
	StepCompleted StepStatus = StepStatus("completed")
	StepFailed    StepStatus = StepStatus("failed")
	StepNotRun    StepStatus = StepStatus("not run")
)

// StepReport is the itemized account of one rule.
type StepReport struct {
	Index    int
	Name     string
	Status   StepStatus
	Err      error
	Duration time.Duration
}

// StepError identifies the rule that aborted the chain.
type StepError struct {
	Index int
	Name  string
	Cause error
}

// Error describes the failed rule.
func (stepError StepError) Error() string {
	return fmt.Sprintf(stepErrorTemplateConstant, stepError.Index+1, stepError.Name, stepError.Cause)
}

// Unwrap exposes the underlying cause.
func (stepError StepError) Unwrap() error {
	return stepError.Cause
}

// Outcome is the result of a chain execution.
type Outcome struct {
	Tree  *tree.Tree
	Steps []StepReport
}

// Executor runs rules strictly in order.
type Executor struct {
	rules []Rule
}

// NewExecutor constructs an Executor over a copy of the provided rules.
func NewExecutor(chained []Rule) *Executor {
	return &Executor{rules: append([]Rule{}, chained...)}
}

// Run executes rules in order and returns the final tree.
func Run(executionContext context.Context, chained []Rule, stagedTree *tree.Tree, runContext *Context) (*tree.Tree, error) {
	outcome, executionError := NewExecutor(chained).Execute(executionContext, stagedTree, runContext)
	if executionError != nil {
		return nil, executionError
	}
	return outcome.Tree, nil
}

// Execute applies every rule, awaiting each result before the next rule starts. The first failure
// aborts the chain; the remaining rules are reported as not run.
func (executor *Executor) Execute(executionContext context.Context, stagedTree *tree.Tree, runContext *Context) (Outcome, error) {
	if stagedTree == nil {
		return Outcome{}, ErrTreeNotProvided
	}
	if runContext == nil {
		runContext = NewContext(nil)
	}
	logger := runContext.Logger()

	reports := make([]StepReport, 0, len(executor.rules))
	currentTree := stagedTree
	for ruleIndex := range executor.rules {
		rule := executor.rules[ruleIndex]
		if rule == nil {
			continue
		}

		logger.Debug(ruleStartedMessageConstant, zap.Int(ruleIndexLogFieldConstant, ruleIndex), zap.String(ruleLogFieldConstant, rule.Name()))
		startTime := time.Now()

		nextTree, ruleError := executor.apply(executionContext, rule, currentTree, runContext)
		duration := time.Since(startTime)

		if ruleError != nil {
			logger.Error(ruleFailedMessageConstant, zap.String(ruleLogFieldConstant, rule.Name()), zap.Error(ruleError))
			reports = append(reports, StepReport{Index: ruleIndex, Name: rule.Name(), Status: StepFailed, Err: ruleError, Duration: duration})
			reports = append(reports, notRunReports(executor.rules, ruleIndex+1)...)
			return Outcome{Tree: currentTree, Steps: reports}, StepError{Index: ruleIndex, Name: rule.Name(), Cause: ruleError}
		}

		if nextTree != nil {
			currentTree = nextTree
		}
		logger.Debug(ruleCompletedMessageConstant, zap.String(ruleLogFieldConstant, rule.Name()), zap.Duration(ruleDurationLogFieldConstant, duration))
		reports = append(reports, StepReport{Index: ruleIndex, Name: rule.Name(), Status: StepCompleted, Duration: duration})
	}

	return Outcome{Tree: currentTree, Steps: reports}, nil
}

func (executor *Executor) apply(executionContext context.Context, rule Rule, stagedTree *tree.Tree, runContext *Context) (*tree.Tree, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}
	future := rule.Apply(executionContext, stagedTree, runContext)
	if future == nil {
		return stagedTree, nil
	}
	awaitedTree, awaitError := future.Await(executionContext)
	if awaitError != nil && executionContext.Err() != nil {
		// The rule still holds the tree until its goroutine returns.
		future.settle()
	}
	return awaitedTree, awaitError
}

func notRunReports(chained []Rule, startIndex int) []StepReport {
	reports := make([]StepReport, 0, len(chained))
	for ruleIndex := startIndex; ruleIndex < len(chained); ruleIndex++ {
		if chained[ruleIndex] == nil {
			continue
		}
		reports = append(reports, StepReport{Index: ruleIndex, Name: chained[ruleIndex].Name(), Status: StepNotRun})
	}
	return reports
}

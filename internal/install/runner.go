package install

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/ngjest/internal/execshell"
	"github.com/temirov/ngjest/internal/rules"
)

const (
	executorNotConfiguredMessageConstant = "install runner command executor not configured"
	taskFailedTemplateConstant           = "task %s failed: %v"
	unsupportedTaskTemplateConstant      = "task %s is not supported by the installer"
	skippingUnsupportedTaskMessage       = "Skipping task without an installer"
	runningTaskMessageConstant           = "Running post-migration task"
	taskLogFieldConstant                 = "task"
	packageManagerLogFieldConstant       = "package_manager"
	workingDirectoryLogFieldConstant     = "working_directory"
)

// ErrExecutorNotConfigured indicates that a Runner was constructed without a command executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// CommandExecutor runs shell commands.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// TaskError reports a failed task.
type TaskError struct {
	TaskName string
	Cause    error
}

// Error describes the failure.
func (taskError TaskError) Error() string {
	return fmt.Sprintf(taskFailedTemplateConstant, taskError.TaskName, taskError.Cause)
}

// Unwrap exposes the underlying cause.
func (taskError TaskError) Unwrap() error {
	return taskError.Cause
}

// UnsupportedTaskError reports a task type the installer does not know how to run.
type UnsupportedTaskError struct {
	TaskName string
}

// Error describes the unsupported task.
func (taskError UnsupportedTaskError) Error() string {
	return fmt.Sprintf(unsupportedTaskTemplateConstant, taskError.TaskName)
}

// Runner executes post-migration tasks.
type Runner struct {
	logger   *zap.Logger
	executor CommandExecutor
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger, executor CommandExecutor) (*Runner, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, executor: executor}, nil
}

// ExecuteTask runs a single task.
func (runner *Runner) ExecuteTask(executionContext context.Context, task rules.Task) error {
	var installTask PackageInstallTask
	switch typedTask := task.(type) {
	case PackageInstallTask:
		installTask = typedTask
	case *PackageInstallTask:
		if typedTask == nil {
			return UnsupportedTaskError{}
		}
		installTask = *typedTask
	default:
		if task == nil {
			return UnsupportedTaskError{}
		}
		return UnsupportedTaskError{TaskName: task.Name()}
	}

	command := installTask.Command()
	runner.logger.Info(
		runningTaskMessageConstant,
		zap.String(taskLogFieldConstant, installTask.Name()),
		zap.String(packageManagerLogFieldConstant, string(command.Name)),
		zap.String(workingDirectoryLogFieldConstant, command.Details.WorkingDirectory),
	)

	if _, executionError := runner.executor.Execute(executionContext, command); executionError != nil {
		return TaskError{TaskName: installTask.Name(), Cause: executionError}
	}
	return nil
}

// ExecuteTasks runs tasks in registration order and stops at the first failure. Tasks the installer
// does not support are logged and skipped.
func (runner *Runner) ExecuteTasks(executionContext context.Context, tasks []rules.Task) error {
	for _, task := range tasks {
		if task == nil {
			continue
		}
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		taskError := runner.ExecuteTask(executionContext, task)
		var unsupportedError UnsupportedTaskError
		if errors.As(taskError, &unsupportedError) {
			runner.logger.Warn(skippingUnsupportedTaskMessage, zap.String(taskLogFieldConstant, unsupportedError.TaskName))
			continue
		}
		if taskError != nil {
			return taskError
		}
	}
	return nil
}

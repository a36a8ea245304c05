package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CommandName identifies an executable invoked through the shell executor.
type CommandName string

// Supported package manager executables.
const (
	CommandNPM  CommandName = CommandName("npm")
	CommandYarn CommandName = CommandName("yarn")
	CommandPNPM CommandName = CommandName("pnpm")
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedTemplateConstant             = "%s exited with code %d%s"
	commandExecutionFailedTemplateConstant    = "%s could not run: %v"
	commandNotProvidedMessageConstant         = "command name must be provided"
	executingCommandMessageConstant           = "Executing shell command"
	commandCompletedMessageConstant           = "Shell command completed"
	commandFailedMessageConstant              = "Shell command exited with a non-zero code"
	commandExecutionFailedMessageConstant     = "Shell command could not run"
	logFieldCommandConstant                   = "command"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	logFieldStandardErrorConstant             = "stderr"
)

// ErrLoggerNotConfigured indicates that a shell executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates that a shell executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// ErrCommandNotProvided indicates that a command was executed without an executable name.
var ErrCommandNotProvided = errors.New(commandNotProvidedMessageConstant)

// CommandDetails captures the arguments and process environment of a command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult carries the captured output of a finished command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that finished with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (commandError CommandFailedError) Error() string {
	formatter := CommandMessageFormatter{}
	return fmt.Sprintf(commandFailedTemplateConstant, formatter.formatCommandLabel(commandError.Command), commandError.Result.ExitCode, formatter.formatStandardErrorSuffix(commandError.Result.StandardError))
}

// CommandExecutionError reports a command that could not be started or was interrupted.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (commandError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, CommandMessageFormatter{}.formatCommandLabel(commandError.Command), commandError.Cause)
}

// Unwrap exposes the underlying cause.
func (commandError CommandExecutionError) Unwrap() error {
	return commandError.Cause
}

// ShellExecutor runs commands and logs their lifecycle.
type ShellExecutor struct {
	logger               *zap.Logger
	runner               CommandRunner
	humanReadableLogging bool
	formatter            CommandMessageFormatter
}

// NewShellExecutor constructs a ShellExecutor. When humanReadableLogging is set the lifecycle
// messages are rendered as sentences instead of structured fields.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, humanReadableLogging ...bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	humanReadable := false
	for _, value := range humanReadableLogging {
		humanReadable = humanReadable || value
	}

	return &ShellExecutor{
		logger:               logger,
		runner:               runner,
		humanReadableLogging: humanReadable,
		formatter:            CommandMessageFormatter{},
	}, nil
}

// Execute runs the command. A non-zero exit code yields CommandFailedError; a runner failure yields
// CommandExecutionError. Both return an empty result.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(strings.TrimSpace(string(command.Name))) == 0 {
		return ExecutionResult{}, ErrCommandNotProvided
	}

	executor.logStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	if executionResult.ExitCode != 0 {
		executor.logFailed(command, executionResult)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logCompleted(command, executionResult)
	return executionResult, nil
}

// ExecuteNPM runs npm with the provided details.
func (executor *ShellExecutor) ExecuteNPM(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandNPM, Details: details})
}

// ExecuteYarn runs yarn with the provided details.
func (executor *ShellExecutor) ExecuteYarn(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandYarn, Details: details})
}

// ExecutePNPM runs pnpm with the provided details.
func (executor *ShellExecutor) ExecutePNPM(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandPNPM, Details: details})
}

func (executor *ShellExecutor) logStarted(command ShellCommand) {
	if executor.humanReadableLogging {
		executor.logger.Info(executor.formatter.BuildStartedMessage(command))
		return
	}
	executor.logger.Info(executingCommandMessageConstant, executor.commandFields(command)...)
}

func (executor *ShellExecutor) logCompleted(command ShellCommand, result ExecutionResult) {
	if executor.humanReadableLogging {
		executor.logger.Info(executor.formatter.BuildSuccessMessage(command))
		return
	}
	fields := append(executor.commandFields(command), zap.Int(logFieldExitCodeConstant, result.ExitCode))
	executor.logger.Info(commandCompletedMessageConstant, fields...)
}

func (executor *ShellExecutor) logFailed(command ShellCommand, result ExecutionResult) {
	if executor.humanReadableLogging {
		executor.logger.Warn(executor.formatter.BuildFailureMessage(command, result))
		return
	}
	fields := append(executor.commandFields(command),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.String(logFieldStandardErrorConstant, strings.TrimSpace(result.StandardError)),
	)
	executor.logger.Warn(commandFailedMessageConstant, fields...)
}

func (executor *ShellExecutor) logExecutionFailed(command ShellCommand, failure error) {
	if executor.humanReadableLogging {
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, failure))
		return
	}
	fields := append(executor.commandFields(command), zap.Error(failure))
	executor.logger.Error(commandExecutionFailedMessageConstant, fields...)
}

func (executor *ShellExecutor) commandFields(command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}
}

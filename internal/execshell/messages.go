package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	flagPrefixConstant                      = "-"
)

const (
	installSubcommandNameConstant   = "install"
	installShortSubcommandConstant  = "i"
	cleanInstallSubcommandConstant  = "ci"
	addSubcommandNameConstant       = "add"
	removeSubcommandNameConstant    = "remove"
	uninstallSubcommandNameConstant = "uninstall"
)

const (
	installStartTemplateConstant            = "Installing dependencies with %s in %s"
	installSuccessTemplateConstant          = "Installed dependencies with %s in %s"
	installFailureTemplateConstant          = "Failed to install dependencies with %s in %s (exit code %d%s)"
	installExecutionFailureTemplateConstant = "Unable to install dependencies with %s in %s: %s"
	addStartTemplateConstant                = "Adding %s with %s in %s"
	addSuccessTemplateConstant              = "Added %s with %s in %s"
	addFailureTemplateConstant              = "Failed to add %s with %s in %s (exit code %d%s)"
	addExecutionFailureTemplateConstant     = "Unable to add %s with %s in %s: %s"
	removeStartTemplateConstant             = "Removing %s with %s in %s"
	removeSuccessTemplateConstant           = "Removed %s with %s in %s"
	removeFailureTemplateConstant           = "Failed to remove %s with %s in %s (exit code %d%s)"
	removeExecutionFailureTemplateConstant  = "Unable to remove %s with %s in %s: %s"
	packageListSeparatorConstant            = ", "
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandNPM, CommandYarn, CommandPNPM:
		return formatter.describePackageManagerMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describePackageManagerMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	positionalArguments := formatter.positionalArguments(command.Details.Arguments)
	if len(positionalArguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	managerName := string(command.Name)
	workingDirectory := formatter.describeWorkingDirectory(command)
	packages := strings.Join(positionalArguments[1:], packageListSeparatorConstant)

	switch positionalArguments[0] {
	case installSubcommandNameConstant, installShortSubcommandConstant, cleanInstallSubcommandConstant:
		if len(packages) > 0 {
			return formatter.describePackageChange(stage, addStartTemplateConstant, addSuccessTemplateConstant, addFailureTemplateConstant, addExecutionFailureTemplateConstant, packages, managerName, workingDirectory, result, failure)
		}
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(installStartTemplateConstant, managerName, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(installSuccessTemplateConstant, managerName, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(installFailureTemplateConstant, managerName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(installExecutionFailureTemplateConstant, managerName, workingDirectory, formatter.describeFailure(failure))
		}
	case addSubcommandNameConstant:
		if len(packages) > 0 {
			return formatter.describePackageChange(stage, addStartTemplateConstant, addSuccessTemplateConstant, addFailureTemplateConstant, addExecutionFailureTemplateConstant, packages, managerName, workingDirectory, result, failure)
		}
	case removeSubcommandNameConstant, uninstallSubcommandNameConstant:
		if len(packages) > 0 {
			return formatter.describePackageChange(stage, removeStartTemplateConstant, removeSuccessTemplateConstant, removeFailureTemplateConstant, removeExecutionFailureTemplateConstant, packages, managerName, workingDirectory, result, failure)
		}
	}
	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describePackageChange(stage messageStage, startTemplate string, successTemplate string, failureTemplate string, executionFailureTemplate string, packages string, managerName string, workingDirectory string, result ExecutionResult, failure error) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(startTemplate, packages, managerName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(successTemplate, packages, managerName, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, packages, managerName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(executionFailureTemplate, packages, managerName, workingDirectory, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = commandLabel + commandArgumentsJoinSeparatorConstant + strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, flagPrefixConstant) {
			continue
		}
		positional = append(positional, trimmedArgument)
	}
	return positional
}

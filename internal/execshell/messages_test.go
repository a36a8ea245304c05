package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandMessageFormatterDescribesPackageManagerCommands(testInstance *testing.T) {
	testCases := []struct {
		name            string
		command         ShellCommand
		build           func(formatter CommandMessageFormatter, command ShellCommand) string
		expectedMessage string
	}{
		{
			name:    "install_started",
			command: ShellCommand{Name: CommandNPM, Details: CommandDetails{Arguments: []string{"install"}, WorkingDirectory: "/workspace/app"}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildStartedMessage(command)
			},
			expectedMessage: "Installing dependencies with npm in /workspace/app",
		},
		{
			name:    "install_without_directory",
			command: ShellCommand{Name: CommandYarn, Details: CommandDetails{Arguments: []string{"install", "--frozen-lockfile"}}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildSuccessMessage(command)
			},
			expectedMessage: "Installed dependencies with yarn in current directory",
		},
		{
			name:    "install_failure_includes_stderr",
			command: ShellCommand{Name: CommandPNPM, Details: CommandDetails{Arguments: []string{"install"}, WorkingDirectory: "/workspace/app"}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 1, StandardError: " ERR_PNPM_LOCKFILE \n"})
			},
			expectedMessage: "Failed to install dependencies with pnpm in /workspace/app (exit code 1: ERR_PNPM_LOCKFILE)",
		},
		{
			name:    "add_packages",
			command: ShellCommand{Name: CommandYarn, Details: CommandDetails{Arguments: []string{"add", "--dev", "jest", "jest-preset-angular"}, WorkingDirectory: "/workspace/app"}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildStartedMessage(command)
			},
			expectedMessage: "Adding jest, jest-preset-angular with yarn in /workspace/app",
		},
		{
			name:    "remove_execution_failure",
			command: ShellCommand{Name: CommandNPM, Details: CommandDetails{Arguments: []string{"uninstall", "karma"}, WorkingDirectory: "/workspace/app"}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildExecutionFailureMessage(command, errors.New("executable file not found"))
			},
			expectedMessage: "Unable to remove karma with npm in /workspace/app: executable file not found",
		},
		{
			name:    "unknown_subcommand_uses_generic_label",
			command: ShellCommand{Name: CommandNPM, Details: CommandDetails{Arguments: []string{"run", "test"}, WorkingDirectory: "/workspace/app"}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildStartedMessage(command)
			},
			expectedMessage: "Running npm run test (in /workspace/app)",
		},
		{
			name:    "other_executable_uses_generic_label",
			command: ShellCommand{Name: CommandName("node"), Details: CommandDetails{Arguments: []string{"--version"}}},
			build: func(formatter CommandMessageFormatter, command ShellCommand) string {
				return formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 2})
			},
			expectedMessage: "node --version failed with exit code 2",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			message := testCase.build(CommandMessageFormatter{}, testCase.command)
			require.Equal(testInstance, testCase.expectedMessage, message)
		})
	}
}

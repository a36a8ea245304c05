package install_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/ngjest/internal/execshell"
	"github.com/temirov/ngjest/internal/install"
	"github.com/temirov/ngjest/internal/rules"
)

const testWorkingDirectoryConstant = "/workspace/app"

type recordingCommandExecutor struct {
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (executor *recordingCommandExecutor) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, command)
	if executor.executionError != nil {
		return execshell.ExecutionResult{}, executor.executionError
	}
	return execshell.ExecutionResult{}, nil
}

type namedTask struct {
	name string
}

func (task namedTask) Name() string {
	return task.name
}

func TestParsePackageManager(testInstance *testing.T) {
	testCases := []struct {
		name            string
		value           string
		expectedManager install.PackageManager
		expectError     bool
	}{
		{name: "blank_defaults_to_npm", value: "", expectedManager: install.PackageManagerNPM},
		{name: "yarn", value: "yarn", expectedManager: install.PackageManagerYarn},
		{name: "pnpm_mixed_case", value: " PNPM ", expectedManager: install.PackageManagerPNPM},
		{name: "unsupported", value: "bun", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			packageManager, parseError := install.ParsePackageManager(testCase.value)
			if testCase.expectError {
				var inputError install.InvalidInputError
				require.ErrorAs(testInstance, parseError, &inputError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedManager, packageManager)
		})
	}
}

func TestRunnerExecutesInstallWithConfiguredManager(testInstance *testing.T) {
	testCases := []struct {
		name            string
		task            rules.Task
		expectedCommand execshell.CommandName
	}{
		{
			name:            "npm_value_task",
			task:            install.PackageInstallTask{WorkingDirectory: testWorkingDirectoryConstant, PackageManager: install.PackageManagerNPM},
			expectedCommand: execshell.CommandNPM,
		},
		{
			name:            "yarn_pointer_task",
			task:            &install.PackageInstallTask{WorkingDirectory: testWorkingDirectoryConstant, PackageManager: install.PackageManagerYarn},
			expectedCommand: execshell.CommandYarn,
		},
		{
			name:            "unset_manager_defaults_to_npm",
			task:            install.PackageInstallTask{WorkingDirectory: testWorkingDirectoryConstant},
			expectedCommand: execshell.CommandNPM,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			commandExecutor := &recordingCommandExecutor{}
			runner, creationError := install.NewRunner(zap.NewNop(), commandExecutor)
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, runner.ExecuteTask(context.Background(), testCase.task))
			require.Len(testInstance, commandExecutor.recordedCommands, 1)

			recordedCommand := commandExecutor.recordedCommands[0]
			require.Equal(testInstance, testCase.expectedCommand, recordedCommand.Name)
			require.Equal(testInstance, []string{"install"}, recordedCommand.Details.Arguments)
			require.Equal(testInstance, testWorkingDirectoryConstant, recordedCommand.Details.WorkingDirectory)
		})
	}
}

func TestRunnerWrapsExecutionFailures(testInstance *testing.T) {
	cause := errors.New("exit status 1")
	commandExecutor := &recordingCommandExecutor{executionError: cause}
	runner, creationError := install.NewRunner(nil, commandExecutor)
	require.NoError(testInstance, creationError)

	executionError := runner.ExecuteTask(context.Background(), install.PackageInstallTask{WorkingDirectory: testWorkingDirectoryConstant})

	var taskError install.TaskError
	require.ErrorAs(testInstance, executionError, &taskError)
	require.Equal(testInstance, "install-dependencies", taskError.TaskName)
	require.ErrorIs(testInstance, executionError, cause)
}

func TestRunnerExecuteTasksSkipsUnsupportedTasks(testInstance *testing.T) {
	commandExecutor := &recordingCommandExecutor{}
	runner, creationError := install.NewRunner(zap.NewNop(), commandExecutor)
	require.NoError(testInstance, creationError)

	tasks := []rules.Task{
		namedTask{name: "notify"},
		install.PackageInstallTask{WorkingDirectory: testWorkingDirectoryConstant, PackageManager: install.PackageManagerPNPM},
	}
	require.NoError(testInstance, runner.ExecuteTasks(context.Background(), tasks))
	require.Len(testInstance, commandExecutor.recordedCommands, 1)
	require.Equal(testInstance, execshell.CommandPNPM, commandExecutor.recordedCommands[0].Name)

	require.ErrorAs(testInstance, runner.ExecuteTask(context.Background(), namedTask{name: "notify"}), &install.UnsupportedTaskError{})
}

func TestRunnerExecuteTasksHonorsCancellation(testInstance *testing.T) {
	commandExecutor := &recordingCommandExecutor{}
	runner, creationError := install.NewRunner(zap.NewNop(), commandExecutor)
	require.NoError(testInstance, creationError)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	executionError := runner.ExecuteTasks(cancelledContext, []rules.Task{install.PackageInstallTask{}})
	require.ErrorIs(testInstance, executionError, context.Canceled)
	require.Empty(testInstance, commandExecutor.recordedCommands)
}

func TestNewRunnerRequiresExecutor(testInstance *testing.T) {
	_, creationError := install.NewRunner(zap.NewNop(), nil)
	require.ErrorIs(testInstance, creationError, install.ErrExecutorNotConfigured)
}

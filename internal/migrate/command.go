package migrate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/ngjest/internal/execshell"
	"github.com/temirov/ngjest/internal/install"
	"github.com/temirov/ngjest/internal/preset"
	"github.com/temirov/ngjest/internal/registry"
	"github.com/temirov/ngjest/internal/ui"
	"github.com/temirov/ngjest/internal/utils"
	"github.com/temirov/ngjest/internal/utils/flags"
)

const (
	commandUseConstant                    = "add-jest"
	commandShortDescriptionConstant       = "Migrate an Angular project from Karma to Jest"
	commandLongDescriptionConstant        = "add-jest removes the Karma and Jasmine test setup of an Angular project, adds Jest with its Angular preset, and installs the updated dependencies. Nothing is written unless every migration step succeeds."
	commandExecutionErrorTemplateConstant = "add-jest failed: %w"
	presetLoadErrorTemplateConstant       = "unable to load migration preset: %w"
	resolverCreationErrorTemplateConstant = "unable to construct version resolver: %w"
	executorCreationErrorTemplateConstant = "unable to construct command executor: %w"
	installerCreationErrorTemplateConst   = "unable to construct installer: %w"
	projectRootFlagNameConstant           = "root"
	projectRootFlagUsageConstant          = "Angular project root to migrate"
	projectFlagNameConstant               = "project"
	projectFlagUsageConstant              = "Workspace project whose test target is removed (defaults to defaultProject, then the first project)"
	configChoiceFlagNameConstant          = "config-choice"
	configChoiceFlagUsageConstant         = "Where the Jest configuration is stored"
	dryRunFlagNameConstant                = "dry-run"
	dryRunFlagUsageConstant               = "Report the staged changes without writing them"
	skipInstallFlagNameConstant           = "skip-install"
	skipInstallFlagUsageConstant          = "Do not install dependencies after migrating"
	packageManagerFlagNameConstant        = "package-manager"
	packageManagerFlagUsageConstant       = "Package manager used to install dependencies"
	presetFlagNameConstant                = "preset"
	presetFlagUsageConstant               = "Path to a YAML migration preset overriding the built-in one"
	registryFlagNameConstant              = "registry"
	registryFlagUsageConstant             = "Base URL of the npm-compatible registry"
	migrationCompletedMessageConstant     = "Jest migration completed"
	migrationFailedMessageConstant        = "Jest migration failed"
	summaryRenderFailedMessageConstant    = "Unable to render migration summary"
	logFieldProjectRootConstant           = "project_root"
	logFieldChangeCountConstant           = "changes"
	logFieldWarningCountConstant          = "warnings"
	logFieldDryRunConstant                = "dry_run"
)

// MigrationExecutor performs a migration run.
type MigrationExecutor interface {
	Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error)
}

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the add-jest Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        func() CommandConfiguration
	HumanReadableLoggingProvider func() bool
	ServiceProvider              ServiceProvider
	HTTPClient                   registry.HTTPClient
	CommandRunner                execshell.CommandRunner
}

type commandOptions struct {
	debugLoggingEnabled bool
	migrationOptions    MigrationOptions
	presetPath          string
	registry            RegistryConfiguration
}

// Build constructs the add-jest command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(projectRootFlagNameConstant, defaults.ProjectRoot, projectRootFlagUsageConstant)
	command.Flags().String(projectFlagNameConstant, "", projectFlagUsageConstant)
	command.Flags().String(configChoiceFlagNameConstant, defaults.ConfigChoice, flags.FormatChoiceUsage(defaults.ConfigChoice, []string{string(ConfigChoicePackageJSON), string(ConfigChoiceFile)}, configChoiceFlagUsageConstant))
	command.Flags().Bool(dryRunFlagNameConstant, defaults.DryRun, dryRunFlagUsageConstant)
	command.Flags().Bool(skipInstallFlagNameConstant, defaults.SkipInstall, skipInstallFlagUsageConstant)
	command.Flags().String(packageManagerFlagNameConstant, defaults.PackageManager, flags.FormatChoiceUsage(defaults.PackageManager, []string{string(install.PackageManagerNPM), string(install.PackageManagerYarn), string(install.PackageManagerPNPM)}, packageManagerFlagUsageConstant))
	command.Flags().String(presetFlagNameConstant, "", presetFlagUsageConstant)
	command.Flags().String(registryFlagNameConstant, defaults.Registry.BaseURL, registryFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger(options.debugLoggingEnabled)

	migrationPreset, presetError := preset.Load(options.presetPath)
	if presetError != nil {
		return fmt.Errorf(presetLoadErrorTemplateConstant, presetError)
	}

	resolver, resolverError := registry.NewResolver(logger, builder.resolveHTTPClient(), registry.Configuration{
		BaseURL:     options.registry.BaseURL,
		Timeout:     options.registry.Timeout,
		TokenSource: options.registry.TokenSource,
	}, nil)
	if resolverError != nil {
		return fmt.Errorf(resolverCreationErrorTemplateConstant, resolverError)
	}

	taskExecutor, taskExecutorError := builder.resolveTaskExecutor(logger)
	if taskExecutorError != nil {
		return taskExecutorError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:       logger,
		Resolver:     resolver,
		TaskExecutor: taskExecutor,
		Preset:       &migrationPreset,
	})
	if serviceError != nil {
		return serviceError
	}

	result, migrationError := service.Execute(command.Context(), options.migrationOptions)

	summaryWriter := utils.NewFlushingWriter(command.OutOrStdout())
	summary := ui.MigrationSummary{
		Changes:   result.Changes,
		Warnings:  result.Warnings,
		Steps:     result.Steps,
		DryRun:    options.migrationOptions.DryRun,
		Committed: result.Committed,
	}
	if renderError := ui.NewSummaryRenderer(summaryWriter).Render(summary); renderError != nil {
		logger.Warn(summaryRenderFailedMessageConstant, zap.Error(renderError))
	}

	if migrationError != nil {
		logger.Error(migrationFailedMessageConstant,
			zap.String(logFieldProjectRootConstant, options.migrationOptions.ProjectRoot),
			zap.Error(migrationError))
		return fmt.Errorf(commandExecutionErrorTemplateConstant, migrationError)
	}

	logger.Info(migrationCompletedMessageConstant,
		zap.String(logFieldProjectRootConstant, options.migrationOptions.ProjectRoot),
		zap.Int(logFieldChangeCountConstant, len(result.Changes)),
		zap.Int(logFieldWarningCountConstant, len(result.Warnings)),
		zap.Bool(logFieldDryRunConstant, options.migrationOptions.DryRun))
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	debugEnabled := false
	if command != nil {
		contextAccessor := utils.NewCommandContextAccessor()
		if logLevel, available := contextAccessor.LogLevel(command.Context()); available {
			debugEnabled = strings.EqualFold(logLevel, string(utils.LogLevelDebug))
		}

		flagSet := command.Flags()
		if flagSet.Changed(projectRootFlagNameConstant) {
			configuration.ProjectRoot, _ = flagSet.GetString(projectRootFlagNameConstant)
		}
		if flagSet.Changed(projectFlagNameConstant) {
			configuration.ProjectName, _ = flagSet.GetString(projectFlagNameConstant)
		}
		if flagSet.Changed(configChoiceFlagNameConstant) {
			configuration.ConfigChoice, _ = flagSet.GetString(configChoiceFlagNameConstant)
		}
		if flagSet.Changed(dryRunFlagNameConstant) {
			configuration.DryRun, _ = flagSet.GetBool(dryRunFlagNameConstant)
		}
		if flagSet.Changed(skipInstallFlagNameConstant) {
			configuration.SkipInstall, _ = flagSet.GetBool(skipInstallFlagNameConstant)
		}
		if flagSet.Changed(packageManagerFlagNameConstant) {
			configuration.PackageManager, _ = flagSet.GetString(packageManagerFlagNameConstant)
		}
		if flagSet.Changed(presetFlagNameConstant) {
			configuration.PresetPath, _ = flagSet.GetString(presetFlagNameConstant)
		}
		if flagSet.Changed(registryFlagNameConstant) {
			configuration.Registry.BaseURL, _ = flagSet.GetString(registryFlagNameConstant)
		}
		configuration = configuration.Sanitize()
	}

	configChoice, choiceError := ParseConfigChoice(configuration.ConfigChoice)
	if choiceError != nil {
		return commandOptions{}, choiceError
	}
	packageManager, managerError := install.ParsePackageManager(configuration.PackageManager)
	if managerError != nil {
		return commandOptions{}, managerError
	}

	return commandOptions{
		debugLoggingEnabled: debugEnabled,
		migrationOptions: MigrationOptions{
			ProjectRoot:    configuration.ProjectRoot,
			ProjectName:    configuration.ProjectName,
			ConfigChoice:   configChoice,
			PackageManager: packageManager,
			DryRun:         configuration.DryRun,
			SkipInstall:    configuration.SkipInstall,
		},
		presetPath: configuration.PresetPath,
		registry:   configuration.Registry,
	}, nil
}

func (builder *CommandBuilder) resolveLogger(enableDebug bool) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if enableDebug {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.DebugLevel))
	}
	return logger
}

func (builder *CommandBuilder) resolveHTTPClient() registry.HTTPClient {
	if builder.HTTPClient != nil {
		return builder.HTTPClient
	}
	return &http.Client{}
}

func (builder *CommandBuilder) resolveTaskExecutor(logger *zap.Logger) (TaskExecutor, error) {
	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if executorError != nil {
		return nil, fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}
	installer, installerError := install.NewRunner(logger, shellExecutor)
	if installerError != nil {
		return nil, fmt.Errorf(installerCreationErrorTemplateConst, installerError)
	}
	return installer, nil
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

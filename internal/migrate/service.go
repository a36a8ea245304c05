package migrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/ngjest/internal/fileset"
	"github.com/temirov/ngjest/internal/manifest"
	"github.com/temirov/ngjest/internal/preset"
	"github.com/temirov/ngjest/internal/rules"
	"github.com/temirov/ngjest/internal/tree"
	"github.com/temirov/ngjest/internal/workspace"
)

const (
	resolverMissingMessageConstant    = "version resolver not configured"
	manifestReadErrorTemplateConstant = "unable to read project manifest: %w"
	migrationErrorTemplateConstant    = "migration aborted: %w"
	commitErrorTemplateConstant       = "unable to write migrated files: %w"
	installErrorTemplateConstant      = "post-migration tasks failed: %w"
	migrationStartedMessageConstant   = "Starting Jest migration"
	frameworkVersionUnknownMessage    = "Framework version could not be determined"
	migrationAbortedMessageConstant   = "Migration aborted; no files were written"
	dryRunMessageConstant             = "Dry run; staged changes discarded"
	changesCommittedMessageConstant   = "Migrated files written"
	installSkippedMessageConstant     = "Skipping post-migration tasks"
	projectRootLogFieldConstant       = "project_root"
	frameworkMajorLogFieldConstant    = "framework_major"
	frameworkRangeLogFieldConstant    = "framework_range"
	schemaStateLogFieldConstant       = "schema"
	changeCountLogFieldConstant       = "changes"
	taskCountLogFieldConstant         = "tasks"
	frameworkPackageLogFieldConstant  = "framework_package"
)

var errResolverMissing = errors.New(resolverMissingMessageConstant)

// TaskExecutor runs the tasks registered by the rules.
type TaskExecutor interface {
	ExecuteTasks(executionContext context.Context, tasks []rules.Task) error
}

// FileSystemProvider returns the writable filesystem rooted at a project directory.
type FileSystemProvider func(projectRoot string) afero.Fs

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger             *zap.Logger
	Resolver           VersionResolver
	TaskExecutor       TaskExecutor
	Preset             *preset.Preset
	FileSystemProvider FileSystemProvider
}

// MigrationResult captures the observable outcomes of a run.
type MigrationResult struct {
	FrameworkVersion manifest.FrameworkVersion
	SchemaState      workspace.SchemaState
	Changes          []tree.Change
	Warnings         []rules.Warning
	Steps            []rules.StepReport
	Tasks            []rules.Task
	Committed        bool
	TasksExecuted    bool
}

// Service orchestrates the Karma to Jest migration.
type Service struct {
	logger             *zap.Logger
	resolver           VersionResolver
	taskExecutor       TaskExecutor
	preset             preset.Preset
	fileSystemProvider FileSystemProvider
}

// NewService constructs a Service with the provided dependencies. A nil preset selects the embedded default.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Resolver == nil {
		return nil, errResolverMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var migrationPreset preset.Preset
	if dependencies.Preset != nil {
		migrationPreset = *dependencies.Preset
	} else {
		defaultPreset, presetError := preset.Default()
		if presetError != nil {
			return nil, presetError
		}
		migrationPreset = defaultPreset
	}

	fileSystemProvider := dependencies.FileSystemProvider
	if fileSystemProvider == nil {
		fileSystemProvider = OSFileSystemProvider
	}

	return &Service{
		logger:             logger,
		resolver:           dependencies.Resolver,
		taskExecutor:       dependencies.TaskExecutor,
		preset:             migrationPreset,
		fileSystemProvider: fileSystemProvider,
	}, nil
}

// OSFileSystemProvider roots the operating system filesystem at the project directory.
func OSFileSystemProvider(projectRoot string) afero.Fs {
	if absoluteRoot, absoluteError := filepath.Abs(projectRoot); absoluteError == nil {
		projectRoot = absoluteRoot
	}
	return afero.NewBasePathFs(afero.NewOsFs(), projectRoot)
}

// Execute performs the migration. Nothing reaches the project directory unless every rule succeeds.
// Dry runs stage and report the changes without writing them or running tasks.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error) {
	projectRoot := strings.TrimSpace(options.ProjectRoot)
	if len(projectRoot) == 0 {
		return MigrationResult{}, InvalidInputError{FieldName: projectRootFieldNameConstant, Message: projectRootRequiredMessageConstant}
	}
	if absoluteRoot, absoluteError := filepath.Abs(projectRoot); absoluteError == nil {
		projectRoot = absoluteRoot
	}
	configChoice, choiceError := ParseConfigChoice(string(options.ConfigChoice))
	if choiceError != nil {
		return MigrationResult{}, choiceError
	}

	projectFileSystem := service.fileSystemProvider(projectRoot)
	stagedTree := tree.New(projectFileSystem)

	manifestEditor := manifest.NewEditor(service.logger)
	if validationError := manifestEditor.Validate(stagedTree); validationError != nil {
		return MigrationResult{}, fmt.Errorf(manifestReadErrorTemplateConstant, validationError)
	}

	frameworkVersion, detectionError := manifestEditor.DetectMajorVersion(stagedTree, service.preset.FrameworkPackage)
	if detectionError != nil {
		return MigrationResult{}, fmt.Errorf(manifestReadErrorTemplateConstant, detectionError)
	}
	schemaState := workspace.Classify(frameworkVersion)
	if !frameworkVersion.Known {
		service.logger.Warn(frameworkVersionUnknownMessage,
			zap.String(frameworkPackageLogFieldConstant, service.preset.FrameworkPackage),
			zap.String(frameworkRangeLogFieldConstant, frameworkVersion.Range))
	}

	runOptions := RunOptions{
		ProjectRoot:      projectRoot,
		ProjectName:      strings.TrimSpace(options.ProjectName),
		ConfigChoice:     configChoice,
		PackageManager:   options.PackageManager,
		FrameworkVersion: frameworkVersion,
		SchemaState:      schemaState,
	}

	service.logger.Info(migrationStartedMessageConstant,
		zap.String(projectRootLogFieldConstant, projectRoot),
		zap.Int(frameworkMajorLogFieldConstant, frameworkVersion.Major),
		zap.String(schemaStateLogFieldConstant, string(schemaState)))

	migrationRules := ruleSet{
		logger:          service.logger,
		preset:          service.preset,
		options:         runOptions,
		resolver:        service.resolver,
		manifestEditor:  manifestEditor,
		workspaceEditor: workspace.NewEditor(service.logger),
		fileOperations:  fileset.NewOperations(service.logger),
	}.rules()

	runContext := rules.NewContext(service.logger)
	outcome, runError := rules.NewExecutor(migrationRules).Execute(executionContext, stagedTree, runContext)

	result := MigrationResult{
		FrameworkVersion: frameworkVersion,
		SchemaState:      schemaState,
		Warnings:         runContext.Warnings(),
		Steps:            outcome.Steps,
		Tasks:            runContext.Tasks(),
	}
	if runError != nil {
		service.logger.Warn(migrationAbortedMessageConstant, zap.Error(runError))
		return result, fmt.Errorf(migrationErrorTemplateConstant, runError)
	}

	result.Changes = outcome.Tree.Changes()
	if options.DryRun {
		service.logger.Info(dryRunMessageConstant, zap.Int(changeCountLogFieldConstant, len(result.Changes)))
		return result, nil
	}

	if commitError := outcome.Tree.Commit(projectFileSystem); commitError != nil {
		return result, fmt.Errorf(commitErrorTemplateConstant, commitError)
	}
	result.Committed = true
	service.logger.Info(changesCommittedMessageConstant,
		zap.String(projectRootLogFieldConstant, projectRoot),
		zap.Int(changeCountLogFieldConstant, len(result.Changes)))

	if options.SkipInstall || service.taskExecutor == nil || len(result.Tasks) == 0 {
		service.logger.Info(installSkippedMessageConstant, zap.Int(taskCountLogFieldConstant, len(result.Tasks)))
		return result, nil
	}
	if taskError := service.taskExecutor.ExecuteTasks(executionContext, result.Tasks); taskError != nil {
		return result, fmt.Errorf(installErrorTemplateConstant, taskError)
	}
	result.TasksExecuted = true
	return result, nil
}

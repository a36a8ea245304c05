package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/temirov/ngjest/internal/manifest"
)

const (
	// StructuredConfigurationPath is the workspace configuration used by framework versions 6 and later.
	StructuredConfigurationPath = "angular.json"
	// LegacyConfigurationPath is the workspace configuration used before version 6.
	LegacyConfigurationPath = ".angular-cli.json"

	projectsKeyConstant              = "projects"
	defaultProjectKeyConstant        = "defaultProject"
	architectKeyConstant             = "architect"
	targetsKeyConstant               = "targets"
	testTargetKeyConstant            = "test"
	pathSeparatorConstant            = "."
	invalidJSONMessageConstant       = "document is not valid JSON"
	notObjectMessageConstant         = "document root is not a JSON object"
	deleteFailedTemplateConstant     = "workspace edit of %s failed: %w"
	workspaceMissingMessageConstant  = "Workspace configuration not found; nothing to clean"
	noProjectsMessageConstant        = "Workspace configuration defines no projects"
	noTargetsMessageConstant         = "Project defines no targets"
	testTargetAbsentMessageConstant  = "Project has no test target; nothing to clean"
	testTargetRemovedMessageConstant = "Removed test target from workspace configuration"
	unsupportedFormatMessageConstant = "Workspace configuration left unchanged"
	workspacePathLogFieldConstant    = "workspace"
	projectLogFieldConstant          = "project"
	targetsKeyLogFieldConstant       = "targets_key"
	schemaStateLogFieldConstant      = "schema"
)

// OutcomeStatus summarizes what RemoveTestTarget did.
type OutcomeStatus string

// Supported outcome statuses.
const (
	OutcomeRemoved     OutcomeStatus = OutcomeStatus("removed")
	OutcomeAbsent      OutcomeStatus = OutcomeStatus("absent")
	OutcomeMissingFile OutcomeStatus = OutcomeStatus("missing-file")
	OutcomeUnsupported OutcomeStatus = OutcomeStatus("unsupported")
)

// Outcome reports the result of a test target removal.
type Outcome struct {
	Status  OutcomeStatus
	Project string
	Warning *UnsupportedFormatWarning
}

// FileTree is the staged file access required by the editor.
type FileTree interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Editor edits the workspace configuration staged in a tree.
type Editor struct {
	logger *zap.Logger
}

// NewEditor constructs an Editor.
func NewEditor(logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{logger: logger}
}

// RemoveTestTarget deletes the test target of the selected project when the schema is structured.
// Legacy and unknown schemas produce an UnsupportedFormatWarning and leave every file untouched.
func (editor *Editor) RemoveTestTarget(fileTree FileTree, state SchemaState, projectName string) (Outcome, error) {
	if state != SchemaStructured {
		warningPath := StructuredConfigurationPath
		if state == SchemaLegacy {
			warningPath = LegacyConfigurationPath
		}
		warning := &UnsupportedFormatWarning{State: state, Path: warningPath}
		editor.logger.Warn(unsupportedFormatMessageConstant,
			zap.String(schemaStateLogFieldConstant, string(state)),
			zap.String(workspacePathLogFieldConstant, warningPath))
		return Outcome{Status: OutcomeUnsupported, Warning: warning}, nil
	}

	content, readError := fileTree.Read(StructuredConfigurationPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			editor.logger.Debug(workspaceMissingMessageConstant, zap.String(workspacePathLogFieldConstant, StructuredConfigurationPath))
			return Outcome{Status: OutcomeMissingFile}, nil
		}
		return Outcome{}, readError
	}
	if !gjson.ValidBytes(content) {
		return Outcome{}, ParseError{Path: StructuredConfigurationPath, Cause: errors.New(invalidJSONMessageConstant)}
	}
	document := gjson.ParseBytes(content)
	if !document.IsObject() {
		return Outcome{}, ParseError{Path: StructuredConfigurationPath, Cause: errors.New(notObjectMessageConstant)}
	}

	selectedProject, found, selectionError := selectProject(document, projectName)
	if selectionError != nil {
		return Outcome{}, selectionError
	}
	if !found {
		editor.logger.Debug(noProjectsMessageConstant, zap.String(workspacePathLogFieldConstant, StructuredConfigurationPath))
		return Outcome{Status: OutcomeAbsent}, nil
	}

	projectPath := projectsKeyConstant + pathSeparatorConstant + gjson.Escape(selectedProject)
	targetsKey, targetsFound := selectTargetsKey(document, projectPath)
	if !targetsFound {
		editor.logger.Debug(noTargetsMessageConstant, zap.String(projectLogFieldConstant, selectedProject))
		return Outcome{Status: OutcomeAbsent, Project: selectedProject}, nil
	}

	testTargetPath := projectPath + pathSeparatorConstant + targetsKey + pathSeparatorConstant + testTargetKeyConstant
	if !document.Get(testTargetPath).Exists() {
		editor.logger.Debug(testTargetAbsentMessageConstant, zap.String(projectLogFieldConstant, selectedProject))
		return Outcome{Status: OutcomeAbsent, Project: selectedProject}, nil
	}

	updatedContent, deleteError := sjson.DeleteBytes(content, testTargetPath)
	if deleteError != nil {
		return Outcome{}, fmt.Errorf(deleteFailedTemplateConstant, StructuredConfigurationPath, deleteError)
	}
	if writeError := fileTree.Write(StructuredConfigurationPath, manifest.Format(updatedContent)); writeError != nil {
		return Outcome{}, writeError
	}

	editor.logger.Info(testTargetRemovedMessageConstant,
		zap.String(projectLogFieldConstant, selectedProject),
		zap.String(targetsKeyLogFieldConstant, targetsKey),
		zap.String(workspacePathLogFieldConstant, StructuredConfigurationPath))
	return Outcome{Status: OutcomeRemoved, Project: selectedProject}, nil
}

// selectProject resolves the explicit project, then defaultProject, then the first declared project.
func selectProject(document gjson.Result, projectName string) (string, bool, error) {
	projects := document.Get(projectsKeyConstant)
	if !projects.IsObject() {
		return "", false, nil
	}

	trimmedName := strings.TrimSpace(projectName)
	if len(trimmedName) > 0 {
		if !projects.Get(gjson.Escape(trimmedName)).Exists() {
			return "", false, ProjectNotFoundError{Project: trimmedName, Path: StructuredConfigurationPath}
		}
		return trimmedName, true, nil
	}

	defaultProject := strings.TrimSpace(document.Get(defaultProjectKeyConstant).String())
	if len(defaultProject) > 0 && projects.Get(gjson.Escape(defaultProject)).Exists() {
		return defaultProject, true, nil
	}

	firstProject := ""
	found := false
	projects.ForEach(func(projectKey gjson.Result, _ gjson.Result) bool {
		firstProject = projectKey.String()
		found = true
		return false
	})
	return firstProject, found, nil
}

func selectTargetsKey(document gjson.Result, projectPath string) (string, bool) {
	for _, candidate := range []string{architectKeyConstant, targetsKeyConstant} {
		if document.Get(projectPath + pathSeparatorConstant + candidate).IsObject() {
			return candidate, true
		}
	}
	return "", false
}

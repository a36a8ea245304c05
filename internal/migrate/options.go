package migrate

import (
	"fmt"
	"strings"

	"github.com/temirov/ngjest/internal/install"
	"github.com/temirov/ngjest/internal/manifest"
	"github.com/temirov/ngjest/internal/workspace"
)

// ConfigChoice selects where the Jest configuration lives after migration.
type ConfigChoice string

// Supported configuration choices.
const (
	ConfigChoicePackageJSON ConfigChoice = ConfigChoice("packagejson")
	ConfigChoiceFile        ConfigChoice = ConfigChoice("file")
)

const (
	configChoiceFieldNameConstant      = "config"
	unsupportedConfigChoiceTemplate    = "unsupported configuration choice %q (expected packagejson or file)"
	invalidInputErrorTemplateConstant  = "%s: %s"
	projectRootFieldNameConstant       = "project_root"
	projectRootRequiredMessageConstant = "project root must be provided"
)

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// ParseConfigChoice converts a configuration value into a ConfigChoice. Blank values select the file choice.
func ParseConfigChoice(value string) (ConfigChoice, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if len(normalized) == 0 {
		return ConfigChoiceFile, nil
	}
	switch ConfigChoice(normalized) {
	case ConfigChoicePackageJSON, ConfigChoiceFile:
		return ConfigChoice(normalized), nil
	default:
		return "", InvalidInputError{FieldName: configChoiceFieldNameConstant, Message: fmt.Sprintf(unsupportedConfigChoiceTemplate, value)}
	}
}

// MigrationOptions configures a single migration run.
type MigrationOptions struct {
	ProjectRoot    string
	ProjectName    string
	ConfigChoice   ConfigChoice
	PackageManager install.PackageManager
	DryRun         bool
	SkipInstall    bool
}

// RunOptions is the immutable view of a run shared by every rule. The framework version and the
// workspace schema state are computed once before the first rule.
type RunOptions struct {
	ProjectRoot      string
	ProjectName      string
	ConfigChoice     ConfigChoice
	PackageManager   install.PackageManager
	FrameworkVersion manifest.FrameworkVersion
	SchemaState      workspace.SchemaState
}

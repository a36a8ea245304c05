package install

import (
	"fmt"
	"strings"

	"github.com/temirov/ngjest/internal/execshell"
)

// PackageManager names a supported Node package manager.
type PackageManager string

// Supported package managers.
const (
	PackageManagerNPM  PackageManager = PackageManager(execshell.CommandNPM)
	PackageManagerYarn PackageManager = PackageManager(execshell.CommandYarn)
	PackageManagerPNPM PackageManager = PackageManager(execshell.CommandPNPM)
)

// DefaultPackageManager is used when no package manager is configured.
const DefaultPackageManager = PackageManagerNPM

const (
	packageInstallTaskNameConstant    = "install-dependencies"
	installSubcommandConstant         = "install"
	unsupportedPackageManagerTemplate = "unsupported package manager %q (expected npm, yarn or pnpm)"
	packageManagerFieldNameConstant   = "package_manager"
	invalidInputErrorTemplateConstant = "%s: %s"
)

// InvalidInputError reports an invalid installer setting.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid setting.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// ParsePackageManager converts a configuration value into a PackageManager. Blank values select the default.
func ParsePackageManager(value string) (PackageManager, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if len(normalized) == 0 {
		return DefaultPackageManager, nil
	}
	switch PackageManager(normalized) {
	case PackageManagerNPM, PackageManagerYarn, PackageManagerPNPM:
		return PackageManager(normalized), nil
	default:
		return "", InvalidInputError{FieldName: packageManagerFieldNameConstant, Message: fmt.Sprintf(unsupportedPackageManagerTemplate, value)}
	}
}

// PackageInstallTask installs the project's dependencies once the migrated manifest is on disk.
type PackageInstallTask struct {
	WorkingDirectory string
	PackageManager   PackageManager
	Packages         []string
}

// Name identifies the task.
func (task PackageInstallTask) Name() string {
	return packageInstallTaskNameConstant
}

// Command builds the package manager invocation for the task.
func (task PackageInstallTask) Command() execshell.ShellCommand {
	packageManager := task.PackageManager
	if len(packageManager) == 0 {
		packageManager = DefaultPackageManager
	}
	return execshell.ShellCommand{
		Name: execshell.CommandName(packageManager),
		Details: execshell.CommandDetails{
			Arguments:        []string{installSubcommandConstant},
			WorkingDirectory: task.WorkingDirectory,
		},
	}
}

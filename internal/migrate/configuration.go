package migrate

import (
	"strings"
	"time"

	"github.com/temirov/ngjest/internal/install"
	"github.com/temirov/ngjest/internal/registry"
	pathutils "github.com/temirov/ngjest/internal/utils/path"
)

const (
	defaultProjectRootConstant           = "."
	configurationKeySeparatorConstant    = "."
	projectRootConfigurationKeyConstant  = "project_root"
	projectConfigurationKeyConstant      = "project"
	configChoiceConfigurationKeyConstant = "config"
	dryRunConfigurationKeyConstant       = "dry_run"
	skipInstallConfigurationKeyConstant  = "skip_install"
	packageManagerConfigurationKey       = "package_manager"
	presetConfigurationKeyConstant       = "preset"
	registryConfigurationKeyConstant     = "registry"
	baseURLConfigurationKeyConstant      = "base_url"
	timeoutConfigurationKeyConstant      = "timeout"
	tokenSourceConfigurationKeyConstant  = "token_source"
)

var migrateConfigurationHomeExpander = pathutils.NewHomeExpander()

// RegistryConfiguration captures how package versions are resolved.
type RegistryConfiguration struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	TokenSource string        `mapstructure:"token_source"`
}

// CommandConfiguration captures persisted configuration for the add-jest command.
type CommandConfiguration struct {
	ProjectRoot    string                `mapstructure:"project_root"`
	ProjectName    string                `mapstructure:"project"`
	ConfigChoice   string                `mapstructure:"config"`
	DryRun         bool                  `mapstructure:"dry_run"`
	SkipInstall    bool                  `mapstructure:"skip_install"`
	PackageManager string                `mapstructure:"package_manager"`
	PresetPath     string                `mapstructure:"preset"`
	Registry       RegistryConfiguration `mapstructure:"registry"`
}

// DefaultCommandConfiguration returns baseline configuration values for the add-jest command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ProjectRoot:    defaultProjectRootConstant,
		ConfigChoice:   string(ConfigChoiceFile),
		PackageManager: string(install.DefaultPackageManager),
		Registry: RegistryConfiguration{
			BaseURL: registry.DefaultBaseURL,
			Timeout: registry.DefaultTimeout,
		},
	}
}

// DefaultConfigurationValues produces Viper defaults for the add-jest command below rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	registryPrefix := prefix + registryConfigurationKeyConstant + configurationKeySeparatorConstant
	return map[string]any{
		prefix + projectRootConfigurationKeyConstant:         defaults.ProjectRoot,
		prefix + projectConfigurationKeyConstant:             defaults.ProjectName,
		prefix + configChoiceConfigurationKeyConstant:        defaults.ConfigChoice,
		prefix + dryRunConfigurationKeyConstant:              defaults.DryRun,
		prefix + skipInstallConfigurationKeyConstant:         defaults.SkipInstall,
		prefix + packageManagerConfigurationKey:              defaults.PackageManager,
		prefix + presetConfigurationKeyConstant:              defaults.PresetPath,
		registryPrefix + baseURLConfigurationKeyConstant:     defaults.Registry.BaseURL,
		registryPrefix + timeoutConfigurationKeyConstant:     defaults.Registry.Timeout,
		registryPrefix + tokenSourceConfigurationKeyConstant: defaults.Registry.TokenSource,
	}
}

// Sanitize trims configured values, expands home directory shortcuts and restores defaults for blank values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.ProjectRoot = migrateConfigurationHomeExpander.Expand(strings.TrimSpace(configuration.ProjectRoot))
	if len(sanitized.ProjectRoot) == 0 {
		sanitized.ProjectRoot = defaults.ProjectRoot
	}
	sanitized.ProjectName = strings.TrimSpace(configuration.ProjectName)
	sanitized.ConfigChoice = strings.ToLower(strings.TrimSpace(configuration.ConfigChoice))
	if len(sanitized.ConfigChoice) == 0 {
		sanitized.ConfigChoice = defaults.ConfigChoice
	}
	sanitized.PackageManager = strings.ToLower(strings.TrimSpace(configuration.PackageManager))
	if len(sanitized.PackageManager) == 0 {
		sanitized.PackageManager = defaults.PackageManager
	}
	sanitized.PresetPath = migrateConfigurationHomeExpander.Expand(strings.TrimSpace(configuration.PresetPath))

	sanitized.Registry.BaseURL = strings.TrimSpace(configuration.Registry.BaseURL)
	if len(sanitized.Registry.BaseURL) == 0 {
		sanitized.Registry.BaseURL = defaults.Registry.BaseURL
	}
	if sanitized.Registry.Timeout <= 0 {
		sanitized.Registry.Timeout = defaults.Registry.Timeout
	}
	sanitized.Registry.TokenSource = strings.TrimSpace(configuration.Registry.TokenSource)
	return sanitized
}

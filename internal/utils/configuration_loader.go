package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	configurationFileNotFoundTemplateConstant       = "configuration file %s does not exist"
	listSeparatorConstant                           = ","
)

// ConfigurationFileNotFoundError reports an explicitly requested configuration file that is missing.
type ConfigurationFileNotFoundError struct {
	FilePath string
}

// Error describes the missing file.
func (notFoundError ConfigurationFileNotFoundError) Error() string {
	return fmt.Sprintf(configurationFileNotFoundTemplateConstant, notFoundError.FilePath)
}

// Unwrap allows errors.Is(err, fs.ErrNotExist).
func (notFoundError ConfigurationFileNotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// ConfigurationSource describes where ConfigurationLoader looks for configuration.
type ConfigurationSource struct {
	Name              string
	Type              string
	EnvironmentPrefix string
	SearchPaths       []string
}

// ConfigurationLoader layers embedded defaults, a configuration file and environment overrides through Viper.
type ConfigurationLoader struct {
	source                    ConfigurationSource
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader that searches the provided paths and honors the environment prefix.
func NewConfigurationLoader(source ConfigurationSource) *ConfigurationLoader {
	source.SearchPaths = append([]string(nil), source.SearchPaths...)
	return &ConfigurationLoader{
		source:                 source,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// SetEmbeddedConfiguration stores configuration merged before any file on disk.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}
	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)
	if len(configurationData) == 0 {
		loader.embeddedConfiguration = nil
		return
	}
	loader.embeddedConfiguration = append([]byte(nil), configurationData...)
}

// LoadConfiguration decodes defaults, embedded data, the configuration file and environment overrides into targetConfiguration.
//
// An empty configurationFilePath searches the configured paths and tolerates absence; an explicit path must exist.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.source.Name)

	if mergeError := loader.mergeEmbedded(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, mergeError
	}
	viperInstance.SetConfigType(loader.source.Type)

	for _, searchPath := range loader.source.SearchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.source.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	explicitPath := strings.TrimSpace(configurationFilePath)
	if len(explicitPath) > 0 {
		viperInstance.SetConfigFile(explicitPath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		switch {
		case len(explicitPath) > 0 && errors.Is(readError, fs.ErrNotExist):
			return LoadedConfiguration{}, ConfigurationFileNotFoundError{FilePath: explicitPath}
		case errors.As(readError, &notFoundError):
		default:
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listSeparatorConstant),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbedded(viperInstance *viper.Viper) error {
	if len(loader.embeddedConfiguration) == 0 {
		return nil
	}

	configurationType := loader.source.Type
	if len(loader.embeddedConfigurationType) > 0 {
		configurationType = loader.embeddedConfigurationType
	}
	viperInstance.SetConfigType(configurationType)

	if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
		return fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

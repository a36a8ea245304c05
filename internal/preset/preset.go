package preset

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/ngjest/internal/manifest"
)

const (
	templateRootConstant              = "files"
	presetLoadErrorTemplateConstant   = "failed to load migration preset: %w"
	presetParseErrorTemplateConstant  = "failed to parse migration preset: %w"
	presetInvalidTemplateConstant     = "migration preset is invalid: %s"
	templateDirectoryTemplateConstant = "template directory %s is not usable: %w"
	missingAdditionsMessageConstant   = "add_dependencies must list at least one package"
	missingScriptsMessageConstant     = "scripts must be a mapping"
	missingConfigurationKeyMessage    = "manifest_configuration.key must be provided"
	blankEntryTemplateConstant        = "%s contains a blank entry"
)

//go:embed default_preset.yaml
var defaultPresetContent []byte

//go:embed files
var embeddedTemplates embed.FS

// ManifestConfiguration is the property written to the manifest when configuration lives in package.json.
type ManifestConfiguration struct {
	Key   string       `yaml:"key"`
	Value OrderedValue `yaml:"value"`
}

// Preset lists the edits performed by a migration.
type Preset struct {
	FrameworkPackage      string                `yaml:"framework_package"`
	DependencySection     string                `yaml:"dependency_section"`
	RemoveDependencies    []string              `yaml:"remove_dependencies"`
	AddDependencies       []string              `yaml:"add_dependencies"`
	RemoveFiles           []string              `yaml:"remove_files"`
	RemovePatterns        []string              `yaml:"remove_patterns"`
	TemplateMount         string                `yaml:"template_mount"`
	TemplateDirectory     string                `yaml:"template_directory"`
	ConfigurationFile     string                `yaml:"configuration_file"`
	Scripts               OrderedValue          `yaml:"scripts"`
	ManifestConfiguration ManifestConfiguration `yaml:"manifest_configuration"`

	templates fs.FS
}

// Default returns the embedded preset.
func Default() (Preset, error) {
	var preset Preset
	if decodeError := yaml.Unmarshal(defaultPresetContent, &preset); decodeError != nil {
		return Preset{}, fmt.Errorf(presetParseErrorTemplateConstant, decodeError)
	}
	templates, subError := fs.Sub(embeddedTemplates, templateRootConstant)
	if subError != nil {
		return Preset{}, fmt.Errorf(presetLoadErrorTemplateConstant, subError)
	}
	preset.templates = templates
	return preset, preset.Validate()
}

// Load returns the default preset overlaid with the fields declared in the file at presetPath.
// An empty path yields the default preset.
func Load(presetPath string) (Preset, error) {
	preset, defaultError := Default()
	if defaultError != nil {
		return Preset{}, defaultError
	}

	trimmedPath := strings.TrimSpace(presetPath)
	if len(trimmedPath) == 0 {
		return preset, nil
	}

	content, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Preset{}, fmt.Errorf(presetLoadErrorTemplateConstant, readError)
	}
	if decodeError := yaml.Unmarshal(content, &preset); decodeError != nil {
		return Preset{}, fmt.Errorf(presetParseErrorTemplateConstant, decodeError)
	}

	if templateDirectory := strings.TrimSpace(preset.TemplateDirectory); len(templateDirectory) > 0 {
		if !filepath.IsAbs(templateDirectory) {
			templateDirectory = filepath.Join(filepath.Dir(trimmedPath), templateDirectory)
		}
		info, statError := os.Stat(templateDirectory)
		if statError == nil && !info.IsDir() {
			statError = fs.ErrInvalid
		}
		if statError != nil {
			return Preset{}, fmt.Errorf(templateDirectoryTemplateConstant, templateDirectory, statError)
		}
		preset.templates = os.DirFS(templateDirectory)
	}

	return preset, preset.Validate()
}

// Validate checks that the preset can drive a migration.
func (preset Preset) Validate() error {
	if _, sectionError := manifest.ParseSection(preset.DependencySection); sectionError != nil {
		return fmt.Errorf(presetInvalidTemplateConstant, sectionError.Error())
	}
	if len(preset.AddDependencies) == 0 {
		return fmt.Errorf(presetInvalidTemplateConstant, missingAdditionsMessageConstant)
	}
	for _, listing := range []struct {
		name    string
		entries []string
	}{
		{name: "remove_dependencies", entries: preset.RemoveDependencies},
		{name: "add_dependencies", entries: preset.AddDependencies},
		{name: "remove_files", entries: preset.RemoveFiles},
		{name: "remove_patterns", entries: preset.RemovePatterns},
	} {
		for _, entry := range listing.entries {
			if len(strings.TrimSpace(entry)) == 0 {
				return fmt.Errorf(presetInvalidTemplateConstant, fmt.Sprintf(blankEntryTemplateConstant, listing.name))
			}
		}
	}
	if preset.Scripts.IsZero() || preset.Scripts.node.Kind != yaml.MappingNode {
		return fmt.Errorf(presetInvalidTemplateConstant, missingScriptsMessageConstant)
	}
	if !preset.ManifestConfiguration.Value.IsZero() && len(strings.TrimSpace(preset.ManifestConfiguration.Key)) == 0 {
		return fmt.Errorf(presetInvalidTemplateConstant, missingConfigurationKeyMessage)
	}
	return nil
}

// Section returns the dependency section edited by the migration.
func (preset Preset) Section() manifest.Section {
	section, _ := manifest.ParseSection(preset.DependencySection)
	return section
}

// Templates returns the template files merged into the project.
func (preset Preset) Templates() fs.FS {
	return preset.templates
}

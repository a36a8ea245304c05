package preset_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ngjest/internal/manifest"
	"github.com/temirov/ngjest/internal/preset"
)

const (
	expectedScriptsJSON       = `{"test":"jest","test:watch":"jest --watch"}`
	expectedConfigurationJSON = `{"preset":"jest-preset-angular","roots":["src"],"setupFilesAfterEnv":["<rootDir>/src/setup-jest.ts"],"globals":{"ts-jest":{"tsconfig":"<rootDir>/src/tsconfig.spec.json","stringifyContentPathRegex":"\\.html$"}}}`
	overridePresetContent     = `add_dependencies:
  - jest
  - jest-preset-angular
  - "@types/jest"
remove_patterns:
  - "**/*.karma.ts"
template_directory: templates
scripts:
  test: jest --ci
  coverage: jest --coverage
`
)

func TestDefaultPreset(testInstance *testing.T) {
	defaultPreset, loadError := preset.Default()
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, manifest.DefaultFrameworkPackage, defaultPreset.FrameworkPackage)
	require.Equal(testInstance, manifest.SectionDevDependencies, defaultPreset.Section())
	require.Equal(testInstance, []string{
		"karma",
		"karma-jasmine",
		"karma-jasmine-html-reporter",
		"karma-chrome-launcher",
		"karma-coverage-istanbul-reporter",
	}, defaultPreset.RemoveDependencies)
	require.Equal(testInstance, []string{"jest", "jest-preset-angular"}, defaultPreset.AddDependencies)
	require.Equal(testInstance, []string{
		"src/karma.conf.js",
		"karma.conf.js",
		"src/test.ts",
		"jest.config.js",
		"src/setup-jest.ts",
		"src/test-config.helper.ts",
	}, defaultPreset.RemoveFiles)
	require.Equal(testInstance, "jest", defaultPreset.ManifestConfiguration.Key)

	scriptsJSON, scriptsError := defaultPreset.Scripts.MarshalJSON()
	require.NoError(testInstance, scriptsError)
	require.Equal(testInstance, expectedScriptsJSON, string(scriptsJSON))

	configurationJSON, configurationError := defaultPreset.ManifestConfiguration.Value.MarshalJSON()
	require.NoError(testInstance, configurationError)
	require.Equal(testInstance, expectedConfigurationJSON, string(configurationJSON))

	templateFiles := make([]string, 0)
	walkError := fs.WalkDir(defaultPreset.Templates(), ".", func(templatePath string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if !entry.IsDir() {
			templateFiles = append(templateFiles, templatePath)
		}
		return nil
	})
	require.NoError(testInstance, walkError)
	require.Equal(testInstance, []string{"jest.config.js", "src/setup-jest.ts", "src/test-config.helper.ts"}, templateFiles)
}

func TestLoadOverlaysDeclaredFields(testInstance *testing.T) {
	presetDirectory := testInstance.TempDir()
	templateDirectory := filepath.Join(presetDirectory, "templates")
	require.NoError(testInstance, os.MkdirAll(templateDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(templateDirectory, "jest.config.js"), []byte("module.exports = {};\n"), 0o644))

	presetPath := filepath.Join(presetDirectory, "preset.yaml")
	require.NoError(testInstance, os.WriteFile(presetPath, []byte(overridePresetContent), 0o644))

	loadedPreset, loadError := preset.Load(presetPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"jest", "jest-preset-angular", "@types/jest"}, loadedPreset.AddDependencies)
	require.Equal(testInstance, []string{"**/*.karma.ts"}, loadedPreset.RemovePatterns)
	require.Len(testInstance, loadedPreset.RemoveDependencies, 5)

	scriptsJSON, scriptsError := loadedPreset.Scripts.MarshalJSON()
	require.NoError(testInstance, scriptsError)
	require.Equal(testInstance, `{"test":"jest --ci","coverage":"jest --coverage"}`, string(scriptsJSON))

	content, readError := fs.ReadFile(loadedPreset.Templates(), "jest.config.js")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "module.exports = {};\n", string(content))
}

func TestLoadRejectsInvalidPresets(testInstance *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "empty_additions", content: "add_dependencies: []\n"},
		{name: "blank_removal", content: "remove_files:\n  - \"\"\n"},
		{name: "unknown_section", content: "dependency_section: bundledDependencies\n"},
		{name: "scripts_not_mapping", content: "scripts:\n  - jest\n"},
		{name: "missing_template_directory", content: "template_directory: absent\n"},
		{name: "malformed_yaml", content: "add_dependencies: [jest\n"},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			presetPath := filepath.Join(testingInstance.TempDir(), "preset.yaml")
			require.NoError(testingInstance, os.WriteFile(presetPath, []byte(testCase.content), 0o644))
			_, loadError := preset.Load(presetPath)
			require.Error(testingInstance, loadError)
		})
	}

	_, missingError := preset.Load(filepath.Join(testInstance.TempDir(), "absent.yaml"))
	require.Error(testInstance, missingError)
}

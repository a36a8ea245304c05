package migrate

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ngjest/internal/fileset"
	"github.com/temirov/ngjest/internal/install"
	"github.com/temirov/ngjest/internal/manifest"
	"github.com/temirov/ngjest/internal/preset"
	"github.com/temirov/ngjest/internal/registry"
	"github.com/temirov/ngjest/internal/rules"
	"github.com/temirov/ngjest/internal/tree"
	"github.com/temirov/ngjest/internal/workspace"
)

// Rule names in execution order.
const (
	RuleRemoveLegacyDependencies    = "remove-legacy-dependencies"
	RuleAddJestDependencies         = "add-jest-dependencies"
	RuleCleanWorkspaceConfiguration = "clean-workspace-configuration"
	RuleRemoveLegacyFiles           = "remove-legacy-files"
	RuleAddJestFiles                = "add-jest-files"
	RuleAddJestToManifest           = "add-jest-to-manifest"
	RuleAddTestScripts              = "add-test-scripts"
)

const (
	scriptsPropertyKeyConstant        = "scripts"
	dependencyResolutionErrorTemplate = "unable to resolve %s: %w"
	packageListSeparatorConstant      = ", "
	resolvingDependenciesMessage      = "Resolving latest dependency versions"
	resolvedDependencyMessageConstant = "Resolved dependency version"
	skippingManifestConfigurationMsg  = "Jest configuration stays in its own file"
	manifestConfigurationMissingMsg   = "Preset declares no manifest configuration"
	packagesLogFieldConstant          = "packages"
	packageLogFieldConstant           = "package"
	versionLogFieldConstant           = "version"
	configChoiceLogFieldConstant      = "config"
)

// VersionResolver looks up the latest published version of packages.
type VersionResolver interface {
	ResolveAll(resolutionContext context.Context, packageNames []string) ([]registry.ResolvedVersion, error)
}

// ruleSet binds the migration rules to the collaborators and immutable options of one run.
type ruleSet struct {
	logger          *zap.Logger
	preset          preset.Preset
	options         RunOptions
	resolver        VersionResolver
	manifestEditor  *manifest.Editor
	workspaceEditor *workspace.Editor
	fileOperations  *fileset.Operations
}

func (set ruleSet) rules() []rules.Rule {
	return []rules.Rule{
		rules.Sync(RuleRemoveLegacyDependencies, set.removeLegacyDependencies),
		rules.Async(RuleAddJestDependencies, set.addJestDependencies),
		rules.Sync(RuleCleanWorkspaceConfiguration, set.cleanWorkspaceConfiguration),
		rules.Sync(RuleRemoveLegacyFiles, set.removeLegacyFiles),
		rules.Sync(RuleAddJestFiles, set.addJestFiles),
		rules.Sync(RuleAddJestToManifest, set.addJestToManifest),
		rules.Sync(RuleAddTestScripts, set.addTestScripts),
	}
}

func (set ruleSet) removeLegacyDependencies(_ context.Context, stagedTree *tree.Tree, _ *rules.Context) error {
	section := set.preset.Section()
	for _, packageName := range set.preset.RemoveDependencies {
		if removeError := set.manifestEditor.RemoveDependency(stagedTree, packageName, section); removeError != nil {
			return removeError
		}
	}
	return nil
}

// addJestDependencies registers exactly one install task, resolves every preset package and records
// them with a single manifest write.
func (set ruleSet) addJestDependencies(executionContext context.Context, stagedTree *tree.Tree, runContext *rules.Context) error {
	packageNames := append([]string(nil), set.preset.AddDependencies...)
	runContext.AddTask(install.PackageInstallTask{
		WorkingDirectory: set.options.ProjectRoot,
		PackageManager:   set.options.PackageManager,
		Packages:         packageNames,
	})

	set.logger.Debug(resolvingDependenciesMessage, zap.Strings(packagesLogFieldConstant, packageNames))
	resolvedVersions, resolveError := set.resolver.ResolveAll(executionContext, packageNames)
	if resolveError != nil {
		return fmt.Errorf(dependencyResolutionErrorTemplate, strings.Join(packageNames, packageListSeparatorConstant), resolveError)
	}

	section := set.preset.Section()
	entries := make([]manifest.Entry, 0, len(resolvedVersions))
	for _, resolvedVersion := range resolvedVersions {
		set.logger.Debug(resolvedDependencyMessageConstant,
			zap.String(packageLogFieldConstant, resolvedVersion.Name),
			zap.String(versionLogFieldConstant, resolvedVersion.Version))
		entries = append(entries, manifest.Entry{Name: resolvedVersion.Name, Version: resolvedVersion.Version, Section: section})
	}
	return set.manifestEditor.AddDependencies(stagedTree, entries)
}

func (set ruleSet) cleanWorkspaceConfiguration(_ context.Context, stagedTree *tree.Tree, runContext *rules.Context) error {
	outcome, removeError := set.workspaceEditor.RemoveTestTarget(stagedTree, set.options.SchemaState, set.options.ProjectName)
	if removeError != nil {
		return removeError
	}
	if outcome.Warning != nil {
		runContext.Warn(RuleCleanWorkspaceConfiguration, outcome.Warning.Error())
	}
	return nil
}

func (set ruleSet) removeLegacyFiles(_ context.Context, stagedTree *tree.Tree, _ *rules.Context) error {
	for _, filePath := range set.preset.RemoveFiles {
		if _, deleteError := set.fileOperations.SafeDelete(stagedTree, filePath); deleteError != nil {
			return deleteError
		}
	}
	for _, pattern := range set.preset.RemovePatterns {
		if _, deleteError := set.fileOperations.SafeDeleteMatching(stagedTree, pattern); deleteError != nil {
			return deleteError
		}
	}
	return nil
}

// addJestFiles merges the template directory. With the packagejson choice the standalone
// configuration file is left out so Jest sees a single configuration.
func (set ruleSet) addJestFiles(_ context.Context, stagedTree *tree.Tree, _ *rules.Context) error {
	excludedTemplates := make([]string, 0, 1)
	if set.options.ConfigChoice == ConfigChoicePackageJSON && len(strings.TrimSpace(set.preset.ConfigurationFile)) > 0 {
		excludedTemplates = append(excludedTemplates, path.Clean(set.preset.ConfigurationFile))
	}
	_, mergeError := set.fileOperations.MergeTemplate(stagedTree, set.preset.Templates(), set.preset.TemplateMount, excludedTemplates...)
	return mergeError
}

func (set ruleSet) addJestToManifest(_ context.Context, stagedTree *tree.Tree, _ *rules.Context) error {
	if set.options.ConfigChoice != ConfigChoicePackageJSON {
		set.logger.Debug(skippingManifestConfigurationMsg, zap.String(configChoiceLogFieldConstant, string(set.options.ConfigChoice)))
		return nil
	}
	configuration := set.preset.ManifestConfiguration
	if configuration.Value.IsZero() {
		set.logger.Debug(manifestConfigurationMissingMsg)
		return nil
	}
	return set.manifestEditor.SetProperty(stagedTree, configuration.Key, configuration.Value)
}

func (set ruleSet) addTestScripts(_ context.Context, stagedTree *tree.Tree, _ *rules.Context) error {
	return set.manifestEditor.SetProperty(stagedTree, scriptsPropertyKeyConstant, set.preset.Scripts)
}

package manifest

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// DefaultFrameworkPackage is the core library whose range identifies the framework version.
	DefaultFrameworkPackage = "@angular/core"

	rangeAlternativeSeparatorConstant = "||"
	semverPrefixConstant              = "v"
	upperBoundPrefixConstant          = "<"
)

var versionRangePattern = regexp.MustCompile(`^\s*(?:\^|~|>=|>|=|v)*\s*(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// FrameworkVersion captures the framework major version detected from the manifest.
type FrameworkVersion struct {
	Major int
	Known bool
	Range string
}

// UnknownFrameworkVersion is the value used when the version cannot be determined.
var UnknownFrameworkVersion = FrameworkVersion{}

// DetectMajorVersion derives the framework major version from the range recorded for frameworkPackage.
// Runtime dependencies take precedence over development dependencies.
func (editor *Editor) DetectMajorVersion(fileTree FileTree, frameworkPackage string) (FrameworkVersion, error) {
	packageName := strings.TrimSpace(frameworkPackage)
	if len(packageName) == 0 {
		packageName = DefaultFrameworkPackage
	}

	for _, section := range []Section{SectionDependencies, SectionDevDependencies} {
		versionRange, found, lookupError := editor.Dependency(fileTree, packageName, section)
		if lookupError != nil {
			return UnknownFrameworkVersion, lookupError
		}
		if found {
			return ParseFrameworkVersion(versionRange), nil
		}
	}
	return UnknownFrameworkVersion, nil
}

// ParseFrameworkVersion extracts the major version of the lowest bound of a version range.
// Ranges without a lower bound, tags and non-registry specifiers are unknown.
func ParseFrameworkVersion(versionRange string) FrameworkVersion {
	candidate := strings.TrimSpace(versionRange)
	if alternativeIndex := strings.Index(candidate, rangeAlternativeSeparatorConstant); alternativeIndex >= 0 {
		candidate = strings.TrimSpace(candidate[:alternativeIndex])
	}
	if strings.HasPrefix(candidate, upperBoundPrefixConstant) {
		return FrameworkVersion{Range: versionRange}
	}

	matches := versionRangePattern.FindStringSubmatch(candidate)
	if matches == nil {
		return FrameworkVersion{Range: versionRange}
	}

	canonical := semverPrefixConstant + matches[1]
	for _, component := range matches[2:] {
		if len(component) == 0 {
			break
		}
		canonical += "." + component
	}
	if !semver.IsValid(canonical) {
		return FrameworkVersion{Range: versionRange}
	}

	major, conversionError := strconv.Atoi(strings.TrimPrefix(semver.Major(canonical), semverPrefixConstant))
	if conversionError != nil {
		return FrameworkVersion{Range: versionRange}
	}
	return FrameworkVersion{Major: major, Known: true, Range: versionRange}
}

package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

const (
	currentDirectoryConstant         = "."
	pathSeparatorConstant            = "/"
	invalidPatternTemplateConstant   = "invalid file pattern %q: %w"
	templateWalkTemplateConstant     = "unable to read template files: %w"
	templateReadTemplateConstant     = "unable to read template file %s: %w"
	templateSourceMissingMessage     = "template source not configured"
	fileAbsentMessageConstant        = "File not present; nothing to delete"
	fileDeletedMessageConstant       = "Deleted file"
	patternMatchedNothingMessage     = "Pattern matched no files"
	templateCreatedMessageConstant   = "Added template file"
	templateOverwroteMessageConstant = "Overwriting existing file with template"
	templateExcludedMessageConstant  = "Skipping excluded template file"
	pathLogFieldConstant             = "path"
	patternLogFieldConstant          = "pattern"
)

// ErrTemplateSourceNotConfigured indicates MergeTemplate was called without a template filesystem.
var ErrTemplateSourceNotConfigured = errors.New(templateSourceMissingMessage)

// FileTree is the staged file access required by the operations.
type FileTree interface {
	Exists(path string) (bool, error)
	Write(path string, content []byte) error
	Delete(path string) error
	Paths() ([]string, error)
}

// MergedFile records one template file written by MergeTemplate.
type MergedFile struct {
	Path        string
	Overwritten bool
}

// Operations performs file set edits against a staged tree.
type Operations struct {
	logger *zap.Logger
}

// NewOperations constructs Operations.
func NewOperations(logger *zap.Logger) *Operations {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Operations{logger: logger}
}

// SafeDelete removes a file when it is present. Absent files, including files removed earlier in the
// same run, are skipped silently.
func (operations *Operations) SafeDelete(fileTree FileTree, filePath string) (bool, error) {
	exists, existsError := fileTree.Exists(filePath)
	if existsError != nil {
		return false, existsError
	}
	if !exists {
		operations.logger.Debug(fileAbsentMessageConstant, zap.String(pathLogFieldConstant, filePath))
		return false, nil
	}
	if deleteError := fileTree.Delete(filePath); deleteError != nil {
		if errors.Is(deleteError, fs.ErrNotExist) {
			operations.logger.Debug(fileAbsentMessageConstant, zap.String(pathLogFieldConstant, filePath))
			return false, nil
		}
		return false, deleteError
	}
	operations.logger.Info(fileDeletedMessageConstant, zap.String(pathLogFieldConstant, filePath))
	return true, nil
}

// SafeDeleteMatching removes every present file matching a doublestar pattern and returns the deleted paths.
func (operations *Operations) SafeDeleteMatching(fileTree FileTree, pattern string) ([]string, error) {
	normalizedPattern := normalizePattern(pattern)
	if !doublestar.ValidatePattern(normalizedPattern) {
		return nil, fmt.Errorf(invalidPatternTemplateConstant, pattern, doublestar.ErrBadPattern)
	}

	presentPaths, pathsError := fileTree.Paths()
	if pathsError != nil {
		return nil, pathsError
	}

	deletedPaths := make([]string, 0)
	for _, presentPath := range presentPaths {
		matched, matchError := doublestar.Match(normalizedPattern, presentPath)
		if matchError != nil {
			return nil, fmt.Errorf(invalidPatternTemplateConstant, pattern, matchError)
		}
		if !matched {
			continue
		}
		deleted, deleteError := operations.SafeDelete(fileTree, presentPath)
		if deleteError != nil {
			return nil, deleteError
		}
		if deleted {
			deletedPaths = append(deletedPaths, presentPath)
		}
	}

	if len(deletedPaths) == 0 {
		operations.logger.Debug(patternMatchedNothingMessage, zap.String(patternLogFieldConstant, pattern))
	}
	return deletedPaths, nil
}

// MergeTemplate copies every file of source into destinationMount. Existing files are overwritten.
// Template files matching one of the excluded doublestar patterns are skipped.
func (operations *Operations) MergeTemplate(fileTree FileTree, source fs.FS, destinationMount string, excludedPatterns ...string) ([]MergedFile, error) {
	if source == nil {
		return nil, ErrTemplateSourceNotConfigured
	}

	normalizedExclusions := make([]string, 0, len(excludedPatterns))
	for _, excludedPattern := range excludedPatterns {
		if len(strings.TrimSpace(excludedPattern)) == 0 {
			continue
		}
		normalizedPattern := normalizePattern(excludedPattern)
		if !doublestar.ValidatePattern(normalizedPattern) {
			return nil, fmt.Errorf(invalidPatternTemplateConstant, excludedPattern, doublestar.ErrBadPattern)
		}
		normalizedExclusions = append(normalizedExclusions, normalizedPattern)
	}

	mergedFiles := make([]MergedFile, 0)
	walkError := fs.WalkDir(source, currentDirectoryConstant, func(templatePath string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if entry.IsDir() {
			return nil
		}
		if isExcluded(normalizedExclusions, templatePath) {
			operations.logger.Debug(templateExcludedMessageConstant, zap.String(pathLogFieldConstant, templatePath))
			return nil
		}

		content, readError := fs.ReadFile(source, templatePath)
		if readError != nil {
			return fmt.Errorf(templateReadTemplateConstant, templatePath, readError)
		}

		destinationPath := path.Join(destinationMount, templatePath)
		exists, existsError := fileTree.Exists(destinationPath)
		if existsError != nil {
			return existsError
		}
		if writeError := fileTree.Write(destinationPath, content); writeError != nil {
			return writeError
		}

		if exists {
			operations.logger.Info(templateOverwroteMessageConstant, zap.String(pathLogFieldConstant, destinationPath))
		} else {
			operations.logger.Info(templateCreatedMessageConstant, zap.String(pathLogFieldConstant, destinationPath))
		}
		mergedFiles = append(mergedFiles, MergedFile{Path: strings.TrimPrefix(path.Clean(pathSeparatorConstant+destinationPath), pathSeparatorConstant), Overwritten: exists})
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(templateWalkTemplateConstant, walkError)
	}
	return mergedFiles, nil
}

func normalizePattern(pattern string) string {
	return strings.TrimPrefix(path.Clean(pathSeparatorConstant+strings.TrimSpace(pattern)), pathSeparatorConstant)
}

func isExcluded(patterns []string, templatePath string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, templatePath); matched {
			return true
		}
	}
	return false
}

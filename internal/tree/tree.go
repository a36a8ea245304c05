package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	rootPathConstant                 = "/"
	defaultFilePermissionsConstant   = fs.FileMode(0o644)
	defaultDirectoryPermissionsConst = fs.FileMode(0o755)
	emptyPathMessageConstant         = "path must reference a file below the project root"
	operationErrorTemplateConstant   = "%s %s failed: %v"
	operationErrorNoCauseTemplate    = "%s %s failed"
	readOperationNameConstant        = OperationName("read")
	writeOperationNameConstant       = OperationName("write")
	deleteOperationNameConstant      = OperationName("delete")
	statOperationNameConstant        = OperationName("stat")
	listOperationNameConstant        = OperationName("list")
	commitOperationNameConstant      = OperationName("commit")
	missingCommitTargetMessage       = "commit target not configured"
)

// ChangeKind classifies a staged change relative to the base filesystem.
type ChangeKind string

// Supported change kinds.
const (
	ChangeCreate ChangeKind = ChangeKind("create")
	ChangeUpdate ChangeKind = ChangeKind("update")
	ChangeDelete ChangeKind = ChangeKind("delete")
)

// Change describes one entry of the net change log.
type Change struct {
	Path string
	Kind ChangeKind
}

// OperationName identifies the tree operation that failed.
type OperationName string

// OperationError reports an unexpected I/O failure. Absence is never reported through OperationError.
type OperationError struct {
	Operation OperationName
	Path      string
	Cause     error
}

// Error describes the failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorNoCauseTemplate, operationError.Operation, operationError.Path)
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Path, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

var errEmptyPath = errors.New(emptyPathMessageConstant)

// Tree stages file mutations over a read-only base filesystem.
//
// Reads always reflect the latest staged state. Nothing reaches the base until Commit is called
// with a writable target.
type Tree struct {
	base    afero.Fs
	staged  afero.Fs
	deleted map[string]struct{}
	touched map[string]struct{}
}

// New constructs a Tree staging changes over the provided base filesystem. Base files must be stored
// under rooted paths ("/package.json"), as afero.NewBasePathFs and afero.NewOsFs do.
func New(base afero.Fs) *Tree {
	if base == nil {
		base = afero.NewMemMapFs()
	}
	return &Tree{
		base:    afero.NewReadOnlyFs(base),
		staged:  afero.NewMemMapFs(),
		deleted: map[string]struct{}{},
		touched: map[string]struct{}{},
	}
}

// Exists reports whether a file is present in the staged view.
func (tree *Tree) Exists(filePath string) (bool, error) {
	key, keyError := normalizeKey(filePath)
	if keyError != nil {
		return false, keyError
	}
	_, source, lookupError := tree.locate(key)
	if lookupError != nil {
		return false, lookupError
	}
	return source != nil, nil
}

// Read returns the staged content of a file. Absent files yield an error matching fs.ErrNotExist.
func (tree *Tree) Read(filePath string) ([]byte, error) {
	key, keyError := normalizeKey(filePath)
	if keyError != nil {
		return nil, keyError
	}

	_, source, lookupError := tree.locate(key)
	if lookupError != nil {
		return nil, lookupError
	}
	if source == nil {
		return nil, &fs.PathError{Op: string(readOperationNameConstant), Path: displayPath(key), Err: fs.ErrNotExist}
	}

	content, readError := afero.ReadFile(source, key)
	if readError != nil {
		return nil, OperationError{Operation: readOperationNameConstant, Path: displayPath(key), Cause: readError}
	}
	return content, nil
}

// Write stages content for a file, creating it or overwriting the current staged content.
func (tree *Tree) Write(filePath string, content []byte) error {
	key, keyError := normalizeKey(filePath)
	if keyError != nil {
		return keyError
	}

	if mkdirError := tree.staged.MkdirAll(path.Dir(key), defaultDirectoryPermissionsConst); mkdirError != nil {
		return OperationError{Operation: writeOperationNameConstant, Path: displayPath(key), Cause: mkdirError}
	}

	duplicatedContent := append([]byte(nil), content...)
	if writeError := afero.WriteFile(tree.staged, key, duplicatedContent, defaultFilePermissionsConstant); writeError != nil {
		return OperationError{Operation: writeOperationNameConstant, Path: displayPath(key), Cause: writeError}
	}

	delete(tree.deleted, key)
	tree.touched[key] = struct{}{}
	return nil
}

// Delete stages the removal of a file. Absent files yield an error matching fs.ErrNotExist.
func (tree *Tree) Delete(filePath string) error {
	key, keyError := normalizeKey(filePath)
	if keyError != nil {
		return keyError
	}

	inBase, source, lookupError := tree.locate(key)
	if lookupError != nil {
		return lookupError
	}
	if source == nil {
		return &fs.PathError{Op: string(deleteOperationNameConstant), Path: displayPath(key), Err: fs.ErrNotExist}
	}

	if source == tree.staged {
		if removeError := tree.staged.Remove(key); removeError != nil {
			return OperationError{Operation: deleteOperationNameConstant, Path: displayPath(key), Cause: removeError}
		}
	}
	if inBase {
		tree.deleted[key] = struct{}{}
	}
	tree.touched[key] = struct{}{}
	return nil
}

// Paths lists every file present in the staged view, sorted.
func (tree *Tree) Paths() ([]string, error) {
	present := map[string]struct{}{}

	baseFiles, baseError := listFiles(tree.base)
	if baseError != nil {
		return nil, baseError
	}
	for _, key := range baseFiles {
		if _, removed := tree.deleted[key]; removed {
			continue
		}
		present[key] = struct{}{}
	}

	stagedFiles, stagedError := listFiles(tree.staged)
	if stagedError != nil {
		return nil, stagedError
	}
	for _, key := range stagedFiles {
		present[key] = struct{}{}
	}

	paths := make([]string, 0, len(present))
	for key := range present {
		paths = append(paths, displayPath(key))
	}
	sort.Strings(paths)
	return paths, nil
}

// Changes returns the net change log sorted by path.
func (tree *Tree) Changes() []Change {
	keys := make([]string, 0, len(tree.touched))
	for key := range tree.touched {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		kind, changed := tree.classify(key)
		if !changed {
			continue
		}
		changes = append(changes, Change{Path: displayPath(key), Kind: kind})
	}
	return changes
}

// Commit applies the net change log to the target filesystem.
func (tree *Tree) Commit(target afero.Fs) error {
	if target == nil {
		return OperationError{Operation: commitOperationNameConstant, Path: rootPathConstant, Cause: errors.New(missingCommitTargetMessage)}
	}

	for _, change := range tree.Changes() {
		key, _ := normalizeKey(change.Path)
		switch change.Kind {
		case ChangeDelete:
			removeError := target.Remove(key)
			if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
				return OperationError{Operation: commitOperationNameConstant, Path: change.Path, Cause: removeError}
			}
		default:
			content, readError := afero.ReadFile(tree.staged, key)
			if readError != nil {
				return OperationError{Operation: commitOperationNameConstant, Path: change.Path, Cause: readError}
			}
			if mkdirError := target.MkdirAll(path.Dir(key), defaultDirectoryPermissionsConst); mkdirError != nil {
				return OperationError{Operation: commitOperationNameConstant, Path: change.Path, Cause: mkdirError}
			}
			if writeError := afero.WriteFile(target, key, content, tree.basePermissions(key)); writeError != nil {
				return OperationError{Operation: commitOperationNameConstant, Path: change.Path, Cause: writeError}
			}
		}
	}
	return nil
}

func (tree *Tree) classify(key string) (ChangeKind, bool) {
	baseContent, inBase := tree.baseContent(key)

	if _, removed := tree.deleted[key]; removed {
		return ChangeDelete, inBase
	}

	stagedContent, readError := afero.ReadFile(tree.staged, key)
	if readError != nil {
		return "", false
	}
	if !inBase {
		return ChangeCreate, true
	}
	if bytes.Equal(baseContent, stagedContent) {
		return "", false
	}
	return ChangeUpdate, true
}

// locate resolves which filesystem currently holds the staged version of key.
func (tree *Tree) locate(key string) (bool, afero.Fs, error) {
	inBase, baseError := isFile(tree.base, key)
	if baseError != nil {
		return false, nil, baseError
	}

	if _, removed := tree.deleted[key]; removed {
		return inBase, nil, nil
	}

	inStaged, stagedError := isFile(tree.staged, key)
	if stagedError != nil {
		return inBase, nil, stagedError
	}
	if inStaged {
		return inBase, tree.staged, nil
	}
	if inBase {
		return inBase, tree.base, nil
	}
	return false, nil, nil
}

func (tree *Tree) baseContent(key string) ([]byte, bool) {
	inBase, statError := isFile(tree.base, key)
	if statError != nil || !inBase {
		return nil, false
	}
	content, readError := afero.ReadFile(tree.base, key)
	if readError != nil {
		return nil, false
	}
	return content, true
}

func (tree *Tree) basePermissions(key string) fs.FileMode {
	info, statError := tree.base.Stat(key)
	if statError != nil {
		return defaultFilePermissionsConstant
	}
	return info.Mode().Perm()
}

func isFile(fileSystem afero.Fs, key string) (bool, error) {
	info, statError := fileSystem.Stat(key)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) || errors.Is(statError, os.ErrNotExist) {
			return false, nil
		}
		return false, OperationError{Operation: statOperationNameConstant, Path: displayPath(key), Cause: statError}
	}
	return !info.IsDir(), nil
}

func listFiles(fileSystem afero.Fs) ([]string, error) {
	files := make([]string, 0)
	walkError := afero.Walk(fileSystem, rootPathConstant, func(walkPath string, info fs.FileInfo, walkError error) error {
		if walkError != nil {
			if errors.Is(walkError, fs.ErrNotExist) {
				return nil
			}
			return walkError
		}
		if info.IsDir() {
			return nil
		}
		key, keyError := normalizeKey(walkPath)
		if keyError != nil {
			return nil
		}
		files = append(files, key)
		return nil
	})
	if walkError != nil {
		return nil, OperationError{Operation: listOperationNameConstant, Path: rootPathConstant, Cause: walkError}
	}
	return files, nil
}

func normalizeKey(filePath string) (string, error) {
	slashed := strings.ReplaceAll(strings.TrimSpace(filePath), "\\", "/")
	key := path.Clean(rootPathConstant + slashed)
	if key == rootPathConstant {
		return "", errEmptyPath
	}
	return key, nil
}

func displayPath(key string) string {
	return strings.TrimPrefix(key, rootPathConstant)
}

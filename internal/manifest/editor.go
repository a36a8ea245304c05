package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const (
	// DefaultPath is the manifest location relative to the project root.
	DefaultPath = "package.json"

	pathSeparatorConstant             = "."
	indentConstant                    = "  "
	nameFieldNameConstant             = "name"
	versionFieldNameConstant          = "version"
	sectionFieldNameConstant          = "section"
	keyFieldNameConstant              = "key"
	requiredValueMessageConstant      = "value required"
	unsupportedSectionMessageConstant = "unsupported dependency section"
	notObjectMessageConstant          = "document root is not a JSON object"
	invalidJSONMessageConstant        = "document is not valid JSON"
	sectionNotObjectTemplateConstant  = "%s is not a JSON object"
	valueEncodingTemplateConstant     = "value for %s could not be encoded: %w"
	editFailedTemplateConstant        = "manifest edit of %s failed: %w"
	dependencyAbsentMessageConstant   = "Dependency not present; nothing to remove"
	dependencyRemovedMessageConstant  = "Removed dependency"
	dependencyAddedMessageConstant    = "Added dependency"
	propertyMergedMessageConstant     = "Merged manifest property"
	propertyReplacedMessageConstant   = "Set manifest property"
	manifestPathLogFieldConstant      = "manifest"
	dependencyNameLogFieldConstant    = "dependency"
	dependencyVersionLogFieldConstant = "version"
	dependencySectionLogFieldConstant = "section"
	propertyKeyLogFieldConstant       = "property"
)

// Section names a dependency map of the manifest.
type Section string

// Supported dependency sections.
const (
	SectionDependencies         Section = Section("dependencies")
	SectionDevDependencies      Section = Section("devDependencies")
	SectionPeerDependencies     Section = Section("peerDependencies")
	SectionOptionalDependencies Section = Section("optionalDependencies")
)

// ParseSection normalizes textual section names.
func ParseSection(value string) (Section, error) {
	trimmedValue := strings.TrimSpace(value)
	for _, candidate := range []Section{SectionDependencies, SectionDevDependencies, SectionPeerDependencies, SectionOptionalDependencies} {
		if strings.EqualFold(trimmedValue, string(candidate)) {
			return candidate, nil
		}
	}
	return "", InvalidInputError{FieldName: sectionFieldNameConstant, Message: unsupportedSectionMessageConstant}
}

// Entry describes one dependency to add.
type Entry struct {
	Name    string
	Version string
	Section Section
}

// FileTree is the staged file access required by the editor.
type FileTree interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Editor applies structured edits to the staged manifest.
type Editor struct {
	logger *zap.Logger
	path   string
}

// NewEditor constructs an Editor for the manifest at DefaultPath.
func NewEditor(logger *zap.Logger) *Editor {
	return NewEditorForPath(logger, DefaultPath)
}

// NewEditorForPath constructs an Editor for a manifest at a custom location.
func NewEditorForPath(logger *zap.Logger, manifestPath string) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmedPath := strings.TrimSpace(manifestPath)
	if len(trimmedPath) == 0 {
		trimmedPath = DefaultPath
	}
	return &Editor{logger: logger, path: trimmedPath}
}

// Path reports the manifest location handled by the editor.
func (editor *Editor) Path() string {
	return editor.path
}

// Validate confirms the manifest exists and is a JSON object.
func (editor *Editor) Validate(fileTree FileTree) error {
	_, loadError := editor.load(fileTree)
	return loadError
}

// Dependency returns the version range recorded for a dependency.
func (editor *Editor) Dependency(fileTree FileTree, name string, section Section) (string, bool, error) {
	document, loadError := editor.load(fileTree)
	if loadError != nil {
		return "", false, loadError
	}
	result := gjson.GetBytes(document, dependencyPath(section, name))
	if !result.Exists() {
		return "", false, nil
	}
	return result.String(), true, nil
}

// RemoveDependency deletes a dependency from a section. Absent dependencies are a no-op.
func (editor *Editor) RemoveDependency(fileTree FileTree, name string, section Section) error {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 {
		return InvalidInputError{FieldName: nameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	document, loadError := editor.load(fileTree)
	if loadError != nil {
		return loadError
	}

	path := dependencyPath(section, trimmedName)
	if !gjson.GetBytes(document, path).Exists() {
		editor.logger.Debug(dependencyAbsentMessageConstant,
			zap.String(dependencyNameLogFieldConstant, trimmedName),
			zap.String(dependencySectionLogFieldConstant, string(section)))
		return nil
	}

	updatedDocument, deleteError := sjson.DeleteBytes(document, path)
	if deleteError != nil {
		return fmt.Errorf(editFailedTemplateConstant, path, deleteError)
	}

	updatedDocument, sortError := sortSection(updatedDocument, section)
	if sortError != nil {
		return sortError
	}

	if writeError := editor.store(fileTree, updatedDocument); writeError != nil {
		return writeError
	}
	editor.logger.Info(dependencyRemovedMessageConstant,
		zap.String(dependencyNameLogFieldConstant, trimmedName),
		zap.String(dependencySectionLogFieldConstant, string(section)))
	return nil
}

// AddDependency records a dependency, overwriting an existing entry of the same name.
func (editor *Editor) AddDependency(fileTree FileTree, entry Entry) error {
	return editor.AddDependencies(fileTree, []Entry{entry})
}

// AddDependencies records several dependencies with a single manifest write.
func (editor *Editor) AddDependencies(fileTree FileTree, entries []Entry) error {
	for _, entry := range entries {
		if len(strings.TrimSpace(entry.Name)) == 0 {
			return InvalidInputError{FieldName: nameFieldNameConstant, Message: requiredValueMessageConstant}
		}
		if len(strings.TrimSpace(entry.Version)) == 0 {
			return InvalidInputError{FieldName: versionFieldNameConstant, Message: requiredValueMessageConstant}
		}
		if len(entry.Section) == 0 {
			return InvalidInputError{FieldName: sectionFieldNameConstant, Message: requiredValueMessageConstant}
		}
	}
	if len(entries) == 0 {
		return nil
	}

	document, loadError := editor.load(fileTree)
	if loadError != nil {
		return loadError
	}

	touchedSections := map[Section]struct{}{}
	for _, entry := range entries {
		sectionResult := gjson.GetBytes(document, gjson.Escape(string(entry.Section)))
		if sectionResult.Exists() && !sectionResult.IsObject() {
			return ParseError{Path: editor.path, Cause: fmt.Errorf(sectionNotObjectTemplateConstant, entry.Section)}
		}

		path := dependencyPath(entry.Section, strings.TrimSpace(entry.Name))
		updatedDocument, setError := sjson.SetBytes(document, path, strings.TrimSpace(entry.Version))
		if setError != nil {
			return fmt.Errorf(editFailedTemplateConstant, path, setError)
		}
		document = updatedDocument
		touchedSections[entry.Section] = struct{}{}
	}

	for section := range touchedSections {
		sortedDocument, sortError := sortSection(document, section)
		if sortError != nil {
			return sortError
		}
		document = sortedDocument
	}

	if writeError := editor.store(fileTree, document); writeError != nil {
		return writeError
	}
	for _, entry := range entries {
		editor.logger.Info(dependencyAddedMessageConstant,
			zap.String(dependencyNameLogFieldConstant, strings.TrimSpace(entry.Name)),
			zap.String(dependencyVersionLogFieldConstant, strings.TrimSpace(entry.Version)),
			zap.String(dependencySectionLogFieldConstant, string(entry.Section)))
	}
	return nil
}

// SetProperty sets a top-level property. When both the existing and the new value are objects the
// new keys are merged into the existing object; otherwise the value is replaced.
func (editor *Editor) SetProperty(fileTree FileTree, key string, value any) error {
	trimmedKey := strings.TrimSpace(key)
	if len(trimmedKey) == 0 {
		return InvalidInputError{FieldName: keyFieldNameConstant, Message: requiredValueMessageConstant}
	}

	encodedValue, encodeError := encodeValue(value)
	if encodeError != nil {
		return fmt.Errorf(valueEncodingTemplateConstant, trimmedKey, encodeError)
	}

	document, loadError := editor.load(fileTree)
	if loadError != nil {
		return loadError
	}

	propertyPath := gjson.Escape(trimmedKey)
	existingValue := gjson.GetBytes(document, propertyPath)
	newValue := gjson.ParseBytes(encodedValue)

	logMessage := propertyReplacedMessageConstant
	if existingValue.IsObject() && newValue.IsObject() {
		logMessage = propertyMergedMessageConstant
		var mergeError error
		newValue.ForEach(func(memberKey gjson.Result, memberValue gjson.Result) bool {
			memberPath := propertyPath + pathSeparatorConstant + gjson.Escape(memberKey.String())
			document, mergeError = sjson.SetRawBytes(document, memberPath, []byte(memberValue.Raw))
			return mergeError == nil
		})
		if mergeError != nil {
			return fmt.Errorf(editFailedTemplateConstant, trimmedKey, mergeError)
		}
	} else {
		updatedDocument, setError := sjson.SetRawBytes(document, propertyPath, encodedValue)
		if setError != nil {
			return fmt.Errorf(editFailedTemplateConstant, trimmedKey, setError)
		}
		document = updatedDocument
	}

	if writeError := editor.store(fileTree, document); writeError != nil {
		return writeError
	}
	editor.logger.Info(logMessage, zap.String(propertyKeyLogFieldConstant, trimmedKey), zap.String(manifestPathLogFieldConstant, editor.path))
	return nil
}

func (editor *Editor) load(fileTree FileTree) ([]byte, error) {
	content, readError := fileTree.Read(editor.path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, ParseError{Path: editor.path, Cause: fs.ErrNotExist}
		}
		return nil, readError
	}
	if !gjson.ValidBytes(content) {
		return nil, ParseError{Path: editor.path, Cause: errors.New(invalidJSONMessageConstant)}
	}
	if !gjson.ParseBytes(content).IsObject() {
		return nil, ParseError{Path: editor.path, Cause: errors.New(notObjectMessageConstant)}
	}
	return content, nil
}

func (editor *Editor) store(fileTree FileTree, document []byte) error {
	return fileTree.Write(editor.path, Format(document))
}

// Format renders a JSON document two-space indented with a trailing newline, preserving key order.
func Format(document []byte) []byte {
	return pretty.PrettyOptions(document, &pretty.Options{Width: 0, Prefix: "", Indent: indentConstant, SortKeys: false})
}

func dependencyPath(section Section, name string) string {
	return gjson.Escape(string(section)) + pathSeparatorConstant + gjson.Escape(name)
}

type sectionMember struct {
	name string
	raw  string
}

func sortSection(document []byte, section Section) ([]byte, error) {
	sectionPath := gjson.Escape(string(section))
	sectionResult := gjson.GetBytes(document, sectionPath)
	if !sectionResult.IsObject() {
		return document, nil
	}

	members := make([]sectionMember, 0)
	sectionResult.ForEach(func(memberKey gjson.Result, memberValue gjson.Result) bool {
		members = append(members, sectionMember{name: memberKey.String(), raw: memberKey.Raw + ":" + memberValue.Raw})
		return true
	})
	sort.SliceStable(members, func(left int, right int) bool {
		return members[left].name < members[right].name
	})

	var builder strings.Builder
	builder.WriteString("{")
	for memberIndex, member := range members {
		if memberIndex > 0 {
			builder.WriteString(",")
		}
		builder.WriteString(member.raw)
	}
	builder.WriteString("}")

	sortedDocument, setError := sjson.SetRawBytes(document, sectionPath, []byte(builder.String()))
	if setError != nil {
		return nil, fmt.Errorf(editFailedTemplateConstant, sectionPath, setError)
	}
	return sortedDocument, nil
}

func encodeValue(value any) ([]byte, error) {
	switch typedValue := value.(type) {
	case json.RawMessage:
		if !gjson.ValidBytes(typedValue) {
			return nil, errors.New(invalidJSONMessageConstant)
		}
		return typedValue, nil
	default:
		var buffer bytes.Buffer
		encoder := json.NewEncoder(&buffer)
		encoder.SetEscapeHTML(false)
		if encodeError := encoder.Encode(normalizeValue(value)); encodeError != nil {
			return nil, encodeError
		}
		return bytes.TrimRight(buffer.Bytes(), "\n"), nil
	}
}

// normalizeValue converts map[any]any values, as produced by some YAML decoders, into JSON-encodable maps.
func normalizeValue(value any) any {
	switch typedValue := value.(type) {
	case map[any]any:
		converted := make(map[string]any, len(typedValue))
		for mapKey, mapValue := range typedValue {
			converted[fmt.Sprint(mapKey)] = normalizeValue(mapValue)
		}
		return converted
	case map[string]any:
		converted := make(map[string]any, len(typedValue))
		for mapKey, mapValue := range typedValue {
			converted[mapKey] = normalizeValue(mapValue)
		}
		return converted
	case []any:
		converted := make([]any, len(typedValue))
		for itemIndex, itemValue := range typedValue {
			converted[itemIndex] = normalizeValue(itemValue)
		}
		return converted
	default:
		return value
	}
}

package workspace

import (
	"fmt"
)

const (
	parseErrorTemplateConstant            = "workspace configuration %s could not be parsed: %v"
	parseErrorNoCauseTemplateConstant     = "workspace configuration %s could not be parsed"
	projectNotFoundTemplateConstant       = "project %q is not defined in %s"
	legacyWarningTemplateConstant         = "automated cleanup of %s is not supported for framework versions below 6; remove the test target manually"
	unknownVersionWarningTemplateConstant = "framework version could not be determined; %s was left unchanged"
)

// ParseError reports an unreadable workspace configuration document.
type ParseError struct {
	Path  string
	Cause error
}

// Error describes the parse failure.
func (parseError ParseError) Error() string {
	if parseError.Cause == nil {
		return fmt.Sprintf(parseErrorNoCauseTemplateConstant, parseError.Path)
	}
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.Path, parseError.Cause)
}

// Unwrap exposes the underlying cause.
func (parseError ParseError) Unwrap() error {
	return parseError.Cause
}

// ProjectNotFoundError indicates an explicitly requested project is absent from the workspace.
type ProjectNotFoundError struct {
	Project string
	Path    string
}

// Error describes the missing project.
func (notFoundError ProjectNotFoundError) Error() string {
	return fmt.Sprintf(projectNotFoundTemplateConstant, notFoundError.Project, notFoundError.Path)
}

// UnsupportedFormatWarning signals that the workspace layout cannot be edited automatically.
// It is never fatal; the configuration is left untouched.
type UnsupportedFormatWarning struct {
	State SchemaState
	Path  string
}

// Error describes the warning.
func (warning UnsupportedFormatWarning) Error() string {
	if warning.State == SchemaLegacy {
		return fmt.Sprintf(legacyWarningTemplateConstant, warning.Path)
	}
	return fmt.Sprintf(unknownVersionWarningTemplateConstant, warning.Path)
}

package manifest

import (
	"fmt"
)

const (
	parseErrorTemplateConstant        = "manifest %s could not be parsed: %v"
	parseErrorNoCauseTemplateConstant = "manifest %s could not be parsed"
	invalidInputErrorTemplateConstant = "%s: %s"
)

// ParseError reports a missing or malformed manifest. Nothing is written when it is returned.
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

// InvalidInputError surfaces validation issues for editor inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

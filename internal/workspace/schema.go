package workspace

import (
	"github.com/temirov/ngjest/internal/manifest"
)

const structuredSchemaMinimumMajorConstant = 6

// SchemaState classifies the workspace configuration layout.
type SchemaState string

// Supported schema states.
const (
	SchemaStructured SchemaState = SchemaState("structured")
	SchemaLegacy     SchemaState = SchemaState("legacy")
	SchemaUnknown    SchemaState = SchemaState("unknown")
)

// Classify maps a detected framework version to the workspace schema state.
func Classify(version manifest.FrameworkVersion) SchemaState {
	if !version.Known {
		return SchemaUnknown
	}
	if version.Major >= structuredSchemaMinimumMajorConstant {
		return SchemaStructured
	}
	return SchemaLegacy
}

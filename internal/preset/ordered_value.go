package preset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

const unsupportedNodeKindTemplateConstant = "unsupported YAML node kind %d"

// OrderedValue holds a YAML value and renders it as JSON with mapping keys in document order.
type OrderedValue struct {
	node *yaml.Node
}

// UnmarshalYAML captures the raw node.
func (value *OrderedValue) UnmarshalYAML(node *yaml.Node) error {
	duplicated := *node
	value.node = &duplicated
	return nil
}

// IsZero reports whether no value was declared.
func (value OrderedValue) IsZero() bool {
	return value.node == nil
}

// MarshalJSON renders the value as JSON.
func (value OrderedValue) MarshalJSON() ([]byte, error) {
	if value.node == nil {
		return []byte("null"), nil
	}
	var buffer bytes.Buffer
	if renderError := renderNode(&buffer, value.node); renderError != nil {
		return nil, renderError
	}
	return buffer.Bytes(), nil
}

func renderNode(buffer *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buffer.WriteString("null")
			return nil
		}
		return renderNode(buffer, node.Content[0])
	case yaml.AliasNode:
		return renderNode(buffer, node.Alias)
	case yaml.MappingNode:
		buffer.WriteByte('{')
		for contentIndex := 0; contentIndex+1 < len(node.Content); contentIndex += 2 {
			if contentIndex > 0 {
				buffer.WriteByte(',')
			}
			if keyError := encodeJSON(buffer, node.Content[contentIndex].Value); keyError != nil {
				return keyError
			}
			buffer.WriteByte(':')
			if valueError := renderNode(buffer, node.Content[contentIndex+1]); valueError != nil {
				return valueError
			}
		}
		buffer.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buffer.WriteByte('[')
		for contentIndex, item := range node.Content {
			if contentIndex > 0 {
				buffer.WriteByte(',')
			}
			if itemError := renderNode(buffer, item); itemError != nil {
				return itemError
			}
		}
		buffer.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var decoded any
		if decodeError := node.Decode(&decoded); decodeError != nil {
			return decodeError
		}
		return encodeJSON(buffer, decoded)
	default:
		return fmt.Errorf(unsupportedNodeKindTemplateConstant, node.Kind)
	}
}

func encodeJSON(buffer *bytes.Buffer, value any) error {
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	buffer.Truncate(buffer.Len() - 1)
	return nil
}

package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when a serialized tree cannot be decoded.
var ErrInvalidDocument = errors.New("invalid MetaAST document")

type wireNode struct {
	Meta     *Metadata       `json:"meta,omitempty"`
	Kind     string          `json:"kind"`
	Attrs    json.RawMessage `json:"attrs,omitempty"`
	Children []*Node         `json:"children"`
}

// wireLanguageSpecific keeps the native payload raw; only the owning
// adapter knows how to decode it.
type wireLanguageSpecific struct {
	Native   json.RawMessage `json:"native,omitempty"`
	Extra    map[string]any  `json:"extra,omitempty"`
	Language Language        `json:"language"`
	Hint     string          `json:"hint,omitempty"`
}

// MarshalJSON encodes the node as {"kind", "attrs", "meta", "children"}.
func (node *Node) MarshalJSON() ([]byte, error) {
	if node.Attrs == nil {
		return nil, fmt.Errorf("%w: node without attributes", ErrInvalidDocument)
	}

	attrs, err := json.Marshal(node.Attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal %s attrs: %w", node.Kind(), err)
	}

	children := node.Children
	if children == nil {
		children = []*Node{}
	}

	return json.Marshal(wireNode{
		Kind:     node.Kind().String(),
		Attrs:    attrs,
		Meta:     node.Meta,
		Children: children,
	})
}

// UnmarshalJSON decodes the format produced by MarshalJSON.
func (node *Node) UnmarshalJSON(data []byte) error {
	var wire wireNode

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	kind, err := ParseKind(wire.Kind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	attrs, err := decodeAttrs(kind, wire.Attrs)
	if err != nil {
		return err
	}

	for idx, child := range wire.Children {
		if child == nil {
			return fmt.Errorf("%w: %s child %d is null", ErrInvalidDocument, kind, idx)
		}
	}

	if wire.Children == nil {
		wire.Children = []*Node{}
	}

	node.Attrs = attrs
	node.Meta = wire.Meta
	node.Children = wire.Children

	return nil
}

func decodeAttrs(kind Kind, raw json.RawMessage) (Attributes, error) {
	if kind == KindLanguageSpecific {
		var wire wireLanguageSpecific

		if len(raw) > 0 {
			err := json.Unmarshal(raw, &wire)
			if err != nil {
				return nil, fmt.Errorf("%w: %s attrs: %w", ErrInvalidDocument, kind, err)
			}
		}

		attrs := LanguageSpecificAttrs{Language: wire.Language, Hint: wire.Hint, Extra: wire.Extra}
		if len(wire.Native) > 0 {
			attrs.Native = wire.Native
		}

		return attrs, nil
	}

	zero := zeroAttrs(kind)
	target := reflect.New(reflect.TypeOf(zero))

	if len(raw) > 0 {
		err := json.Unmarshal(raw, target.Interface())
		if err != nil {
			return nil, fmt.Errorf("%w: %s attrs: %w", ErrInvalidDocument, kind, err)
		}
	}

	attrs, ok := target.Elem().Interface().(Attributes)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no attribute type", ErrInvalidDocument, kind)
	}

	return attrs, nil
}

// DecodeJSON decodes one tree.
func DecodeJSON(data []byte) (*Node, error) {
	node := &Node{}

	err := json.Unmarshal(data, node)
	if err != nil {
		return nil, err
	}

	return node, nil
}

// ToMap converts a tree to plain maps and slices, the shape used for YAML
// output and schema validation.
func ToMap(node *Node) (map[string]any, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}

	var out map[string]any

	err = json.Unmarshal(data, &out)
	if err != nil {
		return nil, fmt.Errorf("reshape tree: %w", err)
	}

	return out, nil
}

// EncodeYAML renders a tree as YAML using the JSON map shape.
func EncodeYAML(node *Node) ([]byte, error) {
	shape, err := ToMap(node)
	if err != nil {
		return nil, err
	}

	out, err := yaml.Marshal(shape)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	return out, nil
}

// DecodeYAML decodes a tree produced by EncodeYAML.
func DecodeYAML(data []byte) (*Node, error) {
	var shape map[string]any

	err := yaml.Unmarshal(data, &shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	encoded, err := json.Marshal(shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return DecodeJSON(encoded)
}

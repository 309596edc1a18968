package python

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidDump is returned for JSON that is not an ast dump.
var ErrInvalidDump = errors.New("invalid ast dump")

const (
	keyType   = "_type"
	keyFields = "_fields"

	keyLineno       = "lineno"
	keyColOffset    = "col_offset"
	keyEndLineno    = "end_lineno"
	keyEndColOffset = "end_col_offset"
)

// scalarFields are field names whose null value means a missing scalar
// rather than an empty node slot.
//
//nolint:gochecknoglobals // Immutable lookup table.
var scalarFields = map[string]struct{}{
	scalarID: {}, scalarAttr: {}, scalarName: {}, scalarArg: {}, "module": {},
	"type_comment": {}, scalarKind: {}, "conversion": {}, "level": {}, scalarIsAsync: {},
	"simple": {}, "tag": {}, "rest": {}, "asname": {},
}

// valueScalarTypes carry their "value" field as a scalar.
//
//nolint:gochecknoglobals // Immutable lookup table.
var valueScalarTypes = map[string]struct{}{
	"Constant":       {},
	"MatchSingleton": {},
}

func isScalarField(nodeType, name string) bool {
	if name == scalarValue {
		_, ok := valueScalarTypes[nodeType]

		return ok
	}

	_, ok := scalarFields[name]

	return ok
}

// MarshalJSON encodes the node in the shape produced by the dump script.
func (node *Node) MarshalJSON() ([]byte, error) {
	document, err := node.toDocument()
	if err != nil {
		return nil, err
	}

	return json.Marshal(document)
}

func (node *Node) toDocument() (map[string]any, error) {
	document := map[string]any{keyType: node.Type}

	names := make([]string, 0, len(node.Fields))

	for _, field := range node.Fields {
		names = append(names, field.Name)

		encoded, err := encodeField(field)
		if err != nil {
			return nil, err
		}

		document[field.Name] = encoded
	}

	for name, value := range node.Scalars {
		encoded, err := encodeScalar(node.Type, name, value)
		if err != nil {
			return nil, err
		}

		document[name] = encoded
	}

	document[keyFields] = names

	if node.Pos != nil {
		document[keyLineno] = node.Pos.Line
		document[keyColOffset] = node.Pos.Col
		document[keyEndLineno] = node.Pos.EndLine
		document[keyEndColOffset] = node.Pos.EndCol
	}

	return document, nil
}

func encodeField(field Field) (any, error) {
	if !field.List {
		if len(field.Nodes) == 0 || field.Nodes[0] == nil {
			return nil, nil
		}

		return field.Nodes[0].toDocument()
	}

	items := make([]any, len(field.Nodes))

	for idx, child := range field.Nodes {
		if child == nil {
			continue
		}

		encoded, err := child.toDocument()
		if err != nil {
			return nil, err
		}

		items[idx] = encoded
	}

	return items, nil
}

func encodeScalar(nodeType, name string, value any) (any, error) {
	if name != scalarValue || nodeType != "Constant" {
		return value, nil
	}

	floatValue, ok := value.(float64)
	if ok && (math.IsInf(floatValue, 0) || math.IsNaN(floatValue)) {
		return floatRepr(floatValue), nil
	}

	return value, nil
}

func floatRepr(value float64) string {
	switch {
	case math.IsNaN(value):
		return "nan"
	case math.IsInf(value, 1):
		return "inf"
	default:
		return "-inf"
	}
}

// UnmarshalJSON decodes a dump-script document.
func (node *Node) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var document map[string]any

	err := decoder.Decode(&document)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}

	decoded, err := fromDocument(document)
	if err != nil {
		return err
	}

	*node = *decoded

	return nil
}

// DecodeJSON decodes a dump-script document into a native tree.
func DecodeJSON(data []byte) (*Node, error) {
	var node Node

	err := node.UnmarshalJSON(data)
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func fromDocument(document map[string]any) (*Node, error) {
	nodeType, ok := document[keyType].(string)
	if !ok || nodeType == "" {
		return nil, fmt.Errorf("%w: object without %s", ErrInvalidDump, keyType)
	}

	node := NewNode(nodeType)
	node.Pos = decodePos(document)

	order := fieldOrder(document)

	for _, name := range order {
		raw := document[name]

		if isScalarField(nodeType, name) {
			node.Scalars[name] = decodeScalar(raw)

			continue
		}

		err := decodeNodeField(node, name, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", nodeType, name, err)
		}
	}

	for name, raw := range document {
		if name == keyType || name == keyFields || isPositionKey(name) {
			continue
		}

		if node.field(name) != nil {
			continue
		}

		if _, done := node.Scalars[name]; done {
			continue
		}

		node.Scalars[name] = decodeScalar(raw)
	}

	if nodeType == "Constant" {
		normalizeConstant(node)
	}

	return node, nil
}

func fieldOrder(document map[string]any) []string {
	rawFields, ok := document[keyFields].([]any)
	if !ok {
		keys := make([]string, 0, len(document))

		for name := range document {
			if name != keyType && !isPositionKey(name) {
				keys = append(keys, name)
			}
		}

		slices.Sort(keys)

		return keys
	}

	order := make([]string, 0, len(rawFields))

	for _, raw := range rawFields {
		name, isString := raw.(string)
		if isString {
			order = append(order, name)
		}
	}

	return order
}

func decodeNodeField(node *Node, name string, raw any) error {
	switch value := raw.(type) {
	case nil:
		node.Set(name, nil)
	case map[string]any:
		child, err := fromDocument(value)
		if err != nil {
			return err
		}

		node.Set(name, child)
	case []any:
		if containsString(value) {
			node.Scalars[name] = decodeScalar(value)

			return nil
		}

		children := make([]*Node, len(value))

		for idx, item := range value {
			if item == nil {
				continue
			}

			itemDoc, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: list item %d is %T", ErrInvalidDump, idx, item)
			}

			child, err := fromDocument(itemDoc)
			if err != nil {
				return err
			}

			children[idx] = child
		}

		node.SetList(name, children...)
	default:
		node.Scalars[name] = decodeScalar(value)
	}

	return nil
}

func containsString(items []any) bool {
	for _, item := range items {
		if _, ok := item.(string); ok {
			return true
		}
	}

	return false
}

func decodeScalar(raw any) any {
	switch value := raw.(type) {
	case json.Number:
		integer, err := value.Int64()
		if err == nil {
			return integer
		}

		// Integers beyond int64 keep their digits.
		if !strings.ContainsAny(value.String(), ".eE") {
			return value.String()
		}

		floating, err := value.Float64()
		if err == nil {
			return floating
		}

		return value.String()
	case []any:
		names := make([]string, 0, len(value))

		for _, item := range value {
			text, _ := item.(string)
			names = append(names, text)
		}

		return names
	default:
		return value
	}
}

// normalizeConstant coerces the decoded value to the Go type that matches
// its value_type.
func normalizeConstant(node *Node) {
	value := node.Scalars[scalarValue]

	switch node.Str(scalarValueType) {
	case valueFloat:
		switch typed := value.(type) {
		case int64:
			node.Scalars[scalarValue] = float64(typed)
		case string:
			parsed, err := strconv.ParseFloat(typed, 64)
			if err == nil {
				node.Scalars[scalarValue] = parsed
			}
		}
	case valueInt:
		if _, ok := value.(int64); !ok {
			node.Scalars[scalarValueType] = valueBigInt
			node.Scalars[scalarValue] = fmt.Sprint(value)
		}
	}
}

func isPositionKey(name string) bool {
	switch name {
	case keyLineno, keyColOffset, keyEndLineno, keyEndColOffset:
		return true
	default:
		return false
	}
}

func decodePos(document map[string]any) *Pos {
	line, ok := intOf(document[keyLineno])
	if !ok {
		return nil
	}

	pos := &Pos{Line: line}
	pos.Col, _ = intOf(document[keyColOffset])
	pos.EndLine, _ = intOf(document[keyEndLineno])
	pos.EndCol, _ = intOf(document[keyEndColOffset])

	return pos
}

func intOf(raw any) (int, bool) {
	number, ok := raw.(json.Number)
	if !ok {
		return 0, false
	}

	value, err := number.Int64()
	if err != nil {
		return 0, false
	}

	return int(value), true
}

package elixir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDump is returned for JSON that is not a quoted-form dump.
var ErrInvalidDump = errors.New("invalid quoted dump")

// JSON shape written by the dump script: atoms are {"atom": name} except
// true, false and nil which use JSON literals; floats are {"float": n};
// two-tuples are {"pair": [a, b]}; calls are {"form", "meta", "args"} and
// variables carry "context" instead of "args".
const (
	keyAtom    = "atom"
	keyFloat   = "float"
	keyPair    = "pair"
	keyForm    = "form"
	keyMeta    = "meta"
	keyArgs    = "args"
	keyContext = "context"
)

// MarshalJSON implements json.Marshaler.
func (atom Atom) MarshalJSON() ([]byte, error) {
	switch atom {
	case atomTrue, atomFalse:
		return []byte(atom), nil
	case atomNil:
		return []byte("null"), nil
	}

	return json.Marshal(map[string]string{keyAtom: string(atom)})
}

// MarshalJSON implements json.Marshaler.
func (value BigInt) MarshalJSON() ([]byte, error) {
	if !isDigits(string(value)) {
		return nil, fmt.Errorf("%w: bad integer digits %q", ErrInvalidDump, string(value))
	}

	return []byte(value), nil
}

// MarshalJSON implements json.Marshaler.
func (value Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{keyFloat: float64(value)})
}

// MarshalJSON implements json.Marshaler.
func (list List) MarshalJSON() ([]byte, error) {
	if list == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]Term(list))
}

// MarshalJSON implements json.Marshaler.
func (pair Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]Term{keyPair: {pair.First, pair.Second}})
}

// MarshalJSON implements json.Marshaler.
func (call *Call) MarshalJSON() ([]byte, error) {
	document := map[string]any{keyForm: call.Form, keyMeta: call.Meta}

	if call.Variable {
		if call.Context == "" {
			document[keyContext] = nil
		} else {
			document[keyContext] = string(call.Context)
		}
	} else {
		document[keyArgs] = List(call.Args)
	}

	return json.Marshal(document)
}

// EncodeJSON encodes term in the dump script's shape.
func EncodeJSON(term Term) ([]byte, error) {
	if term == nil {
		return nil, fmt.Errorf("%w: nil term", ErrInvalidDump)
	}

	return json.Marshal(term)
}

// DecodeJSON parses the output of the dump script.
func DecodeJSON(data []byte) (Term, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any

	err := decoder.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDump, err)
	}

	return decodeTerm(raw)
}

//nolint:cyclop // One case per JSON shape.
func decodeTerm(raw any) (Term, error) {
	switch value := raw.(type) {
	case nil:
		return atomNil, nil
	case bool:
		if value {
			return atomTrue, nil
		}

		return atomFalse, nil
	case json.Number:
		return decodeInteger(value)
	case string:
		return String(value), nil
	case []any:
		return decodeList(value)
	case map[string]any:
		return decodeObject(value)
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidDump, raw)
	}
}

func decodeInteger(number json.Number) (Term, error) {
	if integer, err := number.Int64(); err == nil {
		return Int(integer), nil
	}

	text := number.String()
	if !isDigits(text) {
		return nil, fmt.Errorf("%w: integer expected, got %s", ErrInvalidDump, text)
	}

	return BigInt(text), nil
}

// isDigits accepts an optionally negative decimal integer.
func isDigits(text string) bool {
	text = strings.TrimPrefix(text, "-")
	if text == "" {
		return false
	}

	for _, digit := range text {
		if digit < '0' || digit > '9' {
			return false
		}
	}

	return true
}

func decodeList(values []any) (List, error) {
	list := make(List, len(values))

	for idx, element := range values {
		decoded, err := decodeTerm(element)
		if err != nil {
			return nil, err
		}

		list[idx] = decoded
	}

	return list, nil
}

//nolint:cyclop // One branch per object shape.
func decodeObject(object map[string]any) (Term, error) {
	if name, ok := object[keyAtom]; ok {
		text, isString := name.(string)
		if !isString {
			return nil, fmt.Errorf("%w: atom name must be a string", ErrInvalidDump)
		}

		return Atom(text), nil
	}

	if number, ok := object[keyFloat]; ok {
		digits, isNumber := number.(json.Number)
		if !isNumber {
			return nil, fmt.Errorf("%w: float must be a number", ErrInvalidDump)
		}

		parsed, err := digits.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDump, err)
		}

		return Float(parsed), nil
	}

	if elements, ok := object[keyPair]; ok {
		values, isList := elements.([]any)
		if !isList || len(values) != 2 {
			return nil, fmt.Errorf("%w: pair needs two elements", ErrInvalidDump)
		}

		list, err := decodeList(values)
		if err != nil {
			return nil, err
		}

		return Pair{First: list[0], Second: list[1]}, nil
	}

	if _, ok := object[keyForm]; ok {
		return decodeCall(object)
	}

	return nil, fmt.Errorf("%w: unknown object shape", ErrInvalidDump)
}

func decodeCall(object map[string]any) (*Call, error) {
	form, err := decodeTerm(object[keyForm])
	if err != nil {
		return nil, err
	}

	call := &Call{Form: form, Meta: decodeMeta(object[keyMeta])}

	if context, ok := object[keyContext]; ok {
		call.Variable = true

		if name, isString := context.(string); isString {
			call.Context = Atom(name)
		}

		return call, nil
	}

	values, ok := object[keyArgs].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: call without args", ErrInvalidDump)
	}

	args, err := decodeList(values)
	if err != nil {
		return nil, err
	}

	call.Args = []Term(args)

	return call, nil
}

func decodeMeta(raw any) Meta {
	fields, ok := raw.(map[string]any)
	if !ok {
		return Meta{}
	}

	var metadata Meta

	if line, ok := fields["line"].(json.Number); ok {
		parsed, _ := line.Int64()
		metadata.Line = int(parsed)
	}

	if column, ok := fields["column"].(json.Number); ok {
		parsed, _ := column.Int64()
		metadata.Column = int(parsed)
	}

	if noParens, ok := fields["no_parens"].(bool); ok {
		metadata.NoParens = noParens
	}

	return metadata
}

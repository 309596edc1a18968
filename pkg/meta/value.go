package meta

import (
	"math"
	"strconv"
)

// LiteralType is the semantic type of a literal value.
type LiteralType string

// Literal types.
const (
	LiteralInteger LiteralType = "integer"
	LiteralFloat   LiteralType = "float"
	LiteralString  LiteralType = "string"
	LiteralBoolean LiteralType = "boolean"
	LiteralNull    LiteralType = "null"
	LiteralSymbol  LiteralType = "symbol"
)

// Value is a tagged literal. Only the field selected by Type is meaningful;
// Str holds both string and symbol payloads.
type Value struct {
	Type  LiteralType `json:"type"`
	Str   string      `json:"str,omitempty"`
	Int   int64       `json:"int,omitempty"`
	Float float64     `json:"float,omitempty"`
	Bool  bool        `json:"bool,omitempty"`
}

// Int returns an integer value.
func Int(value int64) Value {
	return Value{Type: LiteralInteger, Int: value}
}

// Float returns a float value.
func Float(value float64) Value {
	return Value{Type: LiteralFloat, Float: value}
}

// Str returns a string value.
func Str(value string) Value {
	return Value{Type: LiteralString, Str: value}
}

// Bool returns a boolean value.
func Bool(value bool) Value {
	return Value{Type: LiteralBoolean, Bool: value}
}

// Null returns the null value.
func Null() Value {
	return Value{Type: LiteralNull}
}

// Symbol returns a symbol value (an Elixir atom, for instance).
func Symbol(name string) Value {
	return Value{Type: LiteralSymbol, Str: name}
}

// Equal compares values by type and payload. NaN floats compare equal to
// each other so that round-tripped trees stay equal.
func (value Value) Equal(other Value) bool {
	if value.Type != other.Type {
		return false
	}

	switch value.Type {
	case LiteralInteger:
		return value.Int == other.Int
	case LiteralFloat:
		if math.IsNaN(value.Float) && math.IsNaN(other.Float) {
			return true
		}

		return value.Float == other.Float
	case LiteralString, LiteralSymbol:
		return value.Str == other.Str
	case LiteralBoolean:
		return value.Bool == other.Bool
	case LiteralNull:
		return true
	default:
		return false
	}
}

// String renders the value for tree text output.
func (value Value) String() string {
	switch value.Type {
	case LiteralInteger:
		return strconv.FormatInt(value.Int, 10)
	case LiteralFloat:
		return strconv.FormatFloat(value.Float, 'g', -1, 64)
	case LiteralString:
		return strconv.Quote(value.Str)
	case LiteralSymbol:
		return ":" + value.Str
	case LiteralBoolean:
		return strconv.FormatBool(value.Bool)
	case LiteralNull:
		return "null"
	default:
		return "<invalid>"
	}
}

package python

import "github.com/Sumatoshi-tech/metaast/pkg/meta"

type operator struct {
	category meta.OpCategory
	symbol   string
}

// binaryOps maps ast operator node types to MetaAST operators.
//
//nolint:gochecknoglobals // Immutable lookup table.
var binaryOps = map[string]operator{
	"Add":      {meta.OpArithmetic, "+"},
	"Sub":      {meta.OpArithmetic, "-"},
	"Mult":     {meta.OpArithmetic, "*"},
	"Div":      {meta.OpArithmetic, "/"},
	"FloorDiv": {meta.OpArithmetic, "//"},
	"Mod":      {meta.OpArithmetic, "%"},
	"Pow":      {meta.OpArithmetic, "**"},
	"MatMult":  {meta.OpArithmetic, "@"},
	"LShift":   {meta.OpBitwise, "<<"},
	"RShift":   {meta.OpBitwise, ">>"},
	"BitOr":    {meta.OpBitwise, "|"},
	"BitXor":   {meta.OpBitwise, "^"},
	"BitAnd":   {meta.OpBitwise, "&"},
}

//nolint:gochecknoglobals // Immutable lookup table.
var unaryOps = map[string]operator{
	"Not":    {meta.OpBoolean, "not"},
	"USub":   {meta.OpArithmetic, "-"},
	"UAdd":   {meta.OpArithmetic, "+"},
	"Invert": {meta.OpBitwise, "~"},
}

//nolint:gochecknoglobals // Immutable lookup table.
var boolOps = map[string]operator{
	"And": {meta.OpBoolean, "and"},
	"Or":  {meta.OpBoolean, "or"},
}

//nolint:gochecknoglobals // Immutable lookup table.
var compareOps = map[string]operator{
	"Eq":    {meta.OpComparison, "=="},
	"NotEq": {meta.OpComparison, "!="},
	"Lt":    {meta.OpComparison, "<"},
	"LtE":   {meta.OpComparison, "<="},
	"Gt":    {meta.OpComparison, ">"},
	"GtE":   {meta.OpComparison, ">="},
	"Is":    {meta.OpComparison, "is"},
	"IsNot": {meta.OpComparison, "is not"},
	"In":    {meta.OpComparison, "in"},
	"NotIn": {meta.OpComparison, "not in"},
}

// opKind tells which ast node family an operator reifies into.
type opKind int

const (
	opBin opKind = iota
	opUnary
	opBool
	opCompare
)

type opKey struct {
	category meta.OpCategory
	symbol   string
	kind     opKind
}

// reverseOps maps MetaAST operators back to ast operator node types.
//
//nolint:gochecknoglobals // Built once from the forward tables.
var reverseOps = buildReverse()

func buildReverse() map[opKey]string {
	reverse := map[opKey]string{}

	tables := []struct {
		table map[string]operator
		kind  opKind
	}{
		{binaryOps, opBin},
		{unaryOps, opUnary},
		{boolOps, opBool},
		{compareOps, opCompare},
	}

	for _, entry := range tables {
		for name, op := range entry.table {
			reverse[opKey{category: op.category, symbol: op.symbol, kind: entry.kind}] = name
		}
	}

	return reverse
}

func lookupReverse(category meta.OpCategory, symbol string, kind opKind) (string, bool) {
	name, ok := reverseOps[opKey{category: category, symbol: symbol, kind: kind}]

	return name, ok
}

// binarySpelling is the source text of a binary operator node type.
func binarySpelling(nodeType string) string {
	if op, ok := binaryOps[nodeType]; ok {
		return op.symbol
	}

	if op, ok := compareOps[nodeType]; ok {
		return op.symbol
	}

	if op, ok := boolOps[nodeType]; ok {
		return op.symbol
	}

	return ""
}

// binaryTypeOf is the reverse of binarySpelling for tree-sitter operator text.
func binaryTypeOf(symbol string) (string, bool) {
	for _, table := range []map[string]operator{binaryOps, compareOps, boolOps} {
		for name, op := range table {
			if op.symbol == symbol {
				return name, true
			}
		}
	}

	return "", false
}

func unaryTypeOf(symbol string) (string, bool) {
	for name, op := range unaryOps {
		if op.symbol == symbol {
			return name, true
		}
	}

	return "", false
}

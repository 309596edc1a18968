package python

import (
	"maps"
	"math"
	"reflect"
	"slices"
)

// Pos is a CPython source span: 1-based lines, 0-based UTF-8 byte columns.
type Pos struct {
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

// Field is one node-valued field of an ast node. List is set for fields that
// CPython declares as lists (body, args, elts, ...); such fields may hold nil
// entries, as Dict.keys does for ** unpacking.
type Field struct {
	Name  string
	Nodes []*Node
	List  bool
}

// Node mirrors one CPython ast node. Node-valued fields keep their CPython
// order; scalar fields (identifiers, constant values, flags) live in Scalars.
type Node struct {
	Scalars map[string]any
	Pos     *Pos
	Type    string
	Fields  []Field
}

// Scalar field names that never hold nodes.
const (
	scalarID        = "id"
	scalarAttr      = "attr"
	scalarName      = "name"
	scalarArg       = "arg"
	scalarValue     = "value"
	scalarValueType = "value_type"
	scalarKind      = "kind"
	scalarIsAsync   = "is_async"
	scalarText      = "text"
	scalarCSTType   = "cst_type"
	scalarStatement = "statement"
)

// Constant value types, as reported by type(value).__name__.
const (
	valueInt      = "int"
	valueBigInt   = "bigint"
	valueFloat    = "float"
	valueStr      = "str"
	valueBool     = "bool"
	valueNone     = "NoneType"
	valueBytes    = "bytes"
	valueComplex  = "complex"
	valueEllipsis = "ellipsis"
)

// typeVerbatim is produced by frontends for source they cannot lower into
// ast shape. It prints back as its original text.
const typeVerbatim = "Verbatim"

const typeModule = "Module"

// NewNode builds a node of type typ with no fields.
func NewNode(typ string) *Node {
	return &Node{Type: typ, Scalars: map[string]any{}}
}

func (node *Node) field(name string) *Field {
	if node == nil {
		return nil
	}

	for idx := range node.Fields {
		if node.Fields[idx].Name == name {
			return &node.Fields[idx]
		}
	}

	return nil
}

// Child returns the single node held by field name, or nil.
func (node *Node) Child(name string) *Node {
	found := node.field(name)
	if found == nil || len(found.Nodes) == 0 {
		return nil
	}

	return found.Nodes[0]
}

// List returns the nodes held by field name.
func (node *Node) List(name string) []*Node {
	found := node.field(name)
	if found == nil {
		return nil
	}

	return found.Nodes
}

// Str returns a string scalar, or "" when missing.
func (node *Node) Str(name string) string {
	if node == nil {
		return ""
	}

	value, _ := node.Scalars[name].(string)

	return value
}

// Scalar returns a scalar value.
func (node *Node) Scalar(name string) any {
	if node == nil {
		return nil
	}

	return node.Scalars[name]
}

// Set stores a single-node field; a nil child records an empty optional field.
func (node *Node) Set(name string, child *Node) *Node {
	var nodes []*Node
	if child != nil {
		nodes = []*Node{child}
	}

	node.Fields = append(node.Fields, Field{Name: name, Nodes: nodes})

	return node
}

// SetList stores a list field.
func (node *Node) SetList(name string, children ...*Node) *Node {
	nodes := make([]*Node, len(children))
	copy(nodes, children)

	node.Fields = append(node.Fields, Field{Name: name, Nodes: nodes, List: true})

	return node
}

// Replace swaps the nodes of an existing field, or appends a list field.
func (node *Node) Replace(name string, children ...*Node) *Node {
	found := node.field(name)
	if found == nil {
		return node.SetList(name, children...)
	}

	found.Nodes = append([]*Node(nil), children...)

	return node
}

// SetScalar stores a scalar field.
func (node *Node) SetScalar(name string, value any) *Node {
	if node.Scalars == nil {
		node.Scalars = map[string]any{}
	}

	node.Scalars[name] = value

	return node
}

// At attaches a position.
func (node *Node) At(pos *Pos) *Node {
	node.Pos = pos

	return node
}

// Equal compares two native trees ignoring positions. Missing fields and
// empty fields are equivalent, as are missing and nil scalars.
func (node *Node) Equal(other any) bool {
	otherNode, ok := other.(*Node)
	if !ok {
		return false
	}

	type pair struct{ left, right *Node }

	stack := []pair{{node, otherNode}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.left == nil || current.right == nil {
			if current.left != current.right {
				return false
			}

			continue
		}

		if current.left.Type != current.right.Type {
			return false
		}

		if !scalarsEqual(current.left.Scalars, current.right.Scalars) {
			return false
		}

		names := fieldNames(current.left, current.right)

		for _, name := range names {
			leftNodes := current.left.List(name)
			rightNodes := current.right.List(name)

			if len(leftNodes) != len(rightNodes) {
				return false
			}

			for idx := range leftNodes {
				stack = append(stack, pair{leftNodes[idx], rightNodes[idx]})
			}
		}
	}

	return true
}

func fieldNames(left, right *Node) []string {
	names := make([]string, 0, len(left.Fields)+len(right.Fields))

	for _, node := range []*Node{left, right} {
		for _, field := range node.Fields {
			if !slices.Contains(names, field.Name) {
				names = append(names, field.Name)
			}
		}
	}

	return names
}

func scalarsEqual(left, right map[string]any) bool {
	keys := map[string]bool{}

	for key := range maps.Keys(left) {
		keys[key] = true
	}

	for key := range maps.Keys(right) {
		keys[key] = true
	}

	for key := range keys {
		if !scalarEqual(left[key], right[key]) {
			return false
		}
	}

	return true
}

func scalarEqual(left, right any) bool {
	leftFloat, leftOK := left.(float64)
	rightFloat, rightOK := right.(float64)

	if leftOK && rightOK && math.IsNaN(leftFloat) && math.IsNaN(rightFloat) {
		return true
	}

	return reflect.DeepEqual(left, right)
}

func (node *Node) isStatement() bool {
	if node == nil {
		return false
	}

	if node.Type == typeVerbatim {
		statement, _ := node.Scalars[scalarStatement].(bool)

		return statement
	}

	_, ok := statementTypes[node.Type]

	return ok
}

//nolint:gochecknoglobals // Immutable lookup table.
var statementTypes = map[string]struct{}{
	"FunctionDef": {}, "AsyncFunctionDef": {}, "ClassDef": {}, "Return": {}, "Delete": {},
	"Assign": {}, "TypeAlias": {}, "AugAssign": {}, "AnnAssign": {}, "For": {}, "AsyncFor": {},
	"While": {}, "If": {}, "With": {}, "AsyncWith": {}, "Match": {}, "Raise": {}, "Try": {},
	"TryStar": {}, "Assert": {}, "Import": {}, "ImportFrom": {}, "Global": {}, "Nonlocal": {},
	"Expr": {}, "Pass": {}, "Break": {}, "Continue": {},
}

// Constructors shared by the frontends and FromMeta. Field order follows CPython.

func newName(id, ctx string) *Node {
	return NewNode("Name").SetScalar(scalarID, id).Set("ctx", NewNode(ctx))
}

func newConstant(valueType string, value any) *Node {
	return NewNode("Constant").SetScalar(scalarValue, value).SetScalar(scalarValueType, valueType)
}

func newExpr(value *Node) *Node {
	return NewNode("Expr").Set("value", value)
}

func newModule(body ...*Node) *Node {
	return NewNode(typeModule).SetList("body", body...).SetList("type_ignores")
}

func newBinOp(left *Node, operator string, right *Node) *Node {
	return NewNode("BinOp").Set("left", left).Set("op", NewNode(operator)).Set("right", right)
}

func newUnaryOp(operator string, operand *Node) *Node {
	return NewNode("UnaryOp").Set("op", NewNode(operator)).Set("operand", operand)
}

func newBoolOp(operator string, values ...*Node) *Node {
	return NewNode("BoolOp").Set("op", NewNode(operator)).SetList("values", values...)
}

func newCompare(left *Node, operators []string, comparators []*Node) *Node {
	ops := make([]*Node, len(operators))
	for idx, operator := range operators {
		ops[idx] = NewNode(operator)
	}

	return NewNode("Compare").Set("left", left).SetList("ops", ops...).SetList("comparators", comparators...)
}

func newCall(fn *Node, args []*Node, keywords []*Node) *Node {
	return NewNode("Call").Set("func", fn).SetList("args", args...).SetList("keywords", keywords...)
}

func newAttribute(value *Node, attr, ctx string) *Node {
	return NewNode("Attribute").Set("value", value).SetScalar(scalarAttr, attr).Set("ctx", NewNode(ctx))
}

func newSequence(typ string, ctx string, elts ...*Node) *Node {
	return NewNode(typ).SetList("elts", elts...).Set("ctx", NewNode(ctx))
}

func newDict(keys, values []*Node) *Node {
	return NewNode("Dict").SetList("keys", keys...).SetList("values", values...)
}

func newArg(name string) *Node {
	return NewNode("arg").SetScalar(scalarArg, name).Set("annotation", nil)
}

func newArguments(names []string) *Node {
	args := make([]*Node, len(names))
	for idx, name := range names {
		args[idx] = newArg(name)
	}

	return NewNode("arguments").
		SetList("posonlyargs").
		SetList("args", args...).
		Set("vararg", nil).
		SetList("kwonlyargs").
		SetList("kw_defaults").
		Set("kwarg", nil).
		SetList("defaults")
}

func newLambda(params []string, body *Node) *Node {
	return NewNode("Lambda").Set("args", newArguments(params)).Set("body", body)
}

func newIf(test *Node, body, orelse []*Node) *Node {
	return NewNode("If").Set("test", test).SetList("body", body...).SetList("orelse", orelse...)
}

func newIfExp(test, body, orelse *Node) *Node {
	return NewNode("IfExp").Set("test", test).Set("body", body).Set("orelse", orelse)
}

func newWhile(test *Node, body []*Node) *Node {
	return NewNode("While").Set("test", test).SetList("body", body...).SetList("orelse")
}

func newFor(target, iter *Node, body []*Node) *Node {
	return NewNode("For").Set("target", target).Set("iter", iter).SetList("body", body...).SetList("orelse")
}

func newAssign(target, value *Node) *Node {
	return NewNode("Assign").SetList("targets", target).Set("value", value)
}

func newAugAssign(target *Node, operator string, value *Node) *Node {
	return NewNode("AugAssign").Set("target", target).Set("op", NewNode(operator)).Set("value", value)
}

func newReturn(value *Node) *Node {
	return NewNode("Return").Set("value", value)
}

func newFunctionDef(name string, params []string, body []*Node) *Node {
	return NewNode("FunctionDef").
		SetScalar(scalarName, name).
		Set("args", newArguments(params)).
		SetList("body", body...).
		SetList("decorator_list").
		Set("returns", nil).
		SetList("type_params")
}

func newClassDef(name string, bases []*Node, body []*Node) *Node {
	return NewNode("ClassDef").
		SetScalar(scalarName, name).
		SetList("bases", bases...).
		SetList("keywords").
		SetList("body", body...).
		SetList("decorator_list").
		SetList("type_params")
}

func newTry(body, handlers, finalbody []*Node) *Node {
	return NewNode("Try").
		SetList("body", body...).
		SetList("handlers", handlers...).
		SetList("orelse").
		SetList("finalbody", finalbody...)
}

func newExceptHandler(exceptionType *Node, name string, body []*Node) *Node {
	handler := NewNode("ExceptHandler").Set("type", exceptionType)
	if name != "" {
		handler.SetScalar(scalarName, name)
	}

	return handler.SetList("body", body...)
}

func newListComp(elt, target, iter *Node) *Node {
	generator := NewNode("comprehension").
		Set("target", target).
		Set("iter", iter).
		SetList("ifs").
		SetScalar(scalarIsAsync, int64(0))

	return NewNode("ListComp").Set("elt", elt).SetList("generators", generator)
}

func newVerbatim(cstType, text string, statement bool) *Node {
	return NewNode(typeVerbatim).
		SetScalar(scalarCSTType, cstType).
		SetScalar(scalarText, text).
		SetScalar(scalarStatement, statement)
}

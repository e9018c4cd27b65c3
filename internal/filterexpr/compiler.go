package filterexpr

import "fmt"

// Op names the operator at a non-leaf Node. Bare literal leaves (including
// the name operand of ["tag", name]) have kind kindLiteral and no Op.
type Op string

const (
	opEq          Op = "=="
	opNe          Op = "!="
	opLt          Op = "<"
	opGt          Op = ">"
	opLe          Op = "<="
	opGe          Op = ">="
	opAny         Op = "any"
	opAll         Op = "all"
	opNone        Op = "none"
	opNot         Op = "not"
	opIn          Op = "in"
	opNotIn       Op = "not-in"
	opStartsWith  Op = "starts-with"
	opEndsWith    Op = "ends-with"
	opRegexMatch  Op = "regex-match"
	opRegexCap    Op = "regex-capture"
	opBoolean     Op = "boolean"
	opLiteral     Op = "literal"
	opTag         Op = "tag"
	opKey         Op = "key"
	opValue       Op = "value"
	opGeomTypeA   Op = "$type"
	opGeomTypeB   Op = "type"
)

// kind distinguishes leaf nodes (no runtime operator dispatch) from
// operator nodes.
type kind int

const (
	kindLiteral kind = iota
	kindOp
)

// Node is a compiled expression tree. Evaluation never re-inspects the
// source JSON; every arity and shape check happens once, here, at compile
// time.
type Node struct {
	kind    kind
	literal Value
	op      Op
	args    []*Node
}

type arity struct {
	min, max int // max < 0 means unbounded (variadic)
}

var arities = map[Op]arity{
	opEq:         {2, 2},
	opNe:         {2, 2},
	opLt:         {2, 2},
	opGt:         {2, 2},
	opLe:         {2, 2},
	opGe:         {2, 2},
	opAny:        {0, -1},
	opAll:        {0, -1},
	opNone:       {0, -1},
	opNot:        {1, 1},
	opIn:         {2, 2},
	opNotIn:      {2, 2},
	opStartsWith: {2, 2},
	opEndsWith:   {2, 2},
	opRegexMatch: {2, 2},
	opRegexCap:   {3, 3},
	opBoolean:    {1, 1},
	opLiteral:    {1, 1},
	opTag:        {1, 1},
	opKey:        {0, 0},
	opValue:      {0, 0},
	opGeomTypeA:  {0, 0},
	opGeomTypeB:  {0, 0},
}

// Compile turns a parsed JSON value (as produced by encoding/json into
// interface{}) into an evaluable expression tree. A bare non-array JSON
// value is an implicit literal; an array must take the [op, arg...] form,
// including for embedding a literal array via ["literal", [...]].
func Compile(v interface{}) (*Node, error) {
	arr, ok := v.([]interface{})
	if !ok {
		val, err := FromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("filterexpr: %w", err)
		}
		return &Node{kind: kindLiteral, literal: val}, nil
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("filterexpr: empty expression array")
	}
	opName, ok := arr[0].(string)
	if !ok {
		return nil, fmt.Errorf("filterexpr: expression head must be an operator name, got %T", arr[0])
	}
	op := Op(opName)
	ar, known := arities[op]
	if !known {
		return nil, fmt.Errorf("filterexpr: unknown operator %q", opName)
	}
	operands := arr[1:]
	if len(operands) < ar.min || (ar.max >= 0 && len(operands) > ar.max) {
		return nil, fmt.Errorf("filterexpr: operator %q takes %s, got %d", opName, arityDescription(ar), len(operands))
	}

	if op == opLiteral {
		val, err := literalValue(operands[0])
		if err != nil {
			return nil, fmt.Errorf("filterexpr: literal operand: %w", err)
		}
		return &Node{kind: kindOp, op: opLiteral, literal: val}, nil
	}

	args := make([]*Node, len(operands))
	for i, operand := range operands {
		child, err := Compile(operand)
		if err != nil {
			return nil, fmt.Errorf("filterexpr: operator %q arg %d: %w", opName, i, err)
		}
		args[i] = child
	}
	return &Node{kind: kindOp, op: op, args: args}, nil
}

// literalValue converts the unevaluated operand of ["literal", ...] into a
// Value: scalars and arrays are accepted, objects are not (no Value
// variant represents them).
func literalValue(v interface{}) (Value, error) {
	if _, ok := v.(map[string]interface{}); ok {
		return Value{}, fmt.Errorf("object literals are not supported")
	}
	return FromJSON(v)
}

func arityDescription(a arity) string {
	if a.max < 0 {
		return fmt.Sprintf("at least %d args", a.min)
	}
	if a.min == a.max {
		return fmt.Sprintf("exactly %d args", a.min)
	}
	return fmt.Sprintf("between %d and %d args", a.min, a.max)
}

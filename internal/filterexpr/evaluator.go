package filterexpr

import (
	"regexp"
	"sync"
)

// Context bundles everything a compiled expression may read while
// evaluating against one feature (or one tag, for tag-removal expressions):
// the feature's geometry class, its full tag set, and — when evaluating a
// tag expression — the tag key/value currently under consideration, for
// the key() and value() accessor positions.
type Context struct {
	GeometryType string // "Point", "LineString", "Polygon", or "" if unknown
	Tags         map[string]Value

	HasKey bool
	Key    string

	HasCurrentValue bool
	CurrentValue    Value
}

var regexCache sync.Map // pattern string -> *regexp.Regexp (or compile error)

type regexEntry struct {
	re  *regexp.Regexp
	err error
}

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(pattern); ok {
		e := v.(regexEntry)
		return e.re, e.err
	}
	re, err := regexp.Compile(pattern)
	actual, _ := regexCache.LoadOrStore(pattern, regexEntry{re: re, err: err})
	e := actual.(regexEntry)
	return e.re, e.err
}

// Eval evaluates the compiled tree against ctx. Type mismatches between an
// operator and its operands yield Null (which is falsy) rather than an
// error: the DSL's runtime semantics are permissive by design, reserving
// hard failures for compile time.
func (n *Node) Eval(ctx *Context) Value {
	if n.kind == kindLiteral {
		return n.literal
	}
	switch n.op {
	case opLiteral:
		return n.literal
	case opEq:
		return Bool(n.args[0].Eval(ctx).Equal(n.args[1].Eval(ctx)))
	case opNe:
		return Bool(!n.args[0].Eval(ctx).Equal(n.args[1].Eval(ctx)))
	case opLt:
		return compareOrd(n, ctx, func(a, b float64) bool { return a < b }, func(a, b string) bool { return a < b })
	case opGt:
		return compareOrd(n, ctx, func(a, b float64) bool { return a > b }, func(a, b string) bool { return a > b })
	case opLe:
		return compareOrd(n, ctx, func(a, b float64) bool { return a <= b }, func(a, b string) bool { return a <= b })
	case opGe:
		return compareOrd(n, ctx, func(a, b float64) bool { return a >= b }, func(a, b string) bool { return a >= b })
	case opAny:
		for _, a := range n.args {
			if a.Eval(ctx).Truthy() {
				return Bool(true)
			}
		}
		return Bool(false)
	case opAll:
		for _, a := range n.args {
			if !a.Eval(ctx).Truthy() {
				return Bool(false)
			}
		}
		return Bool(true)
	case opNone:
		for _, a := range n.args {
			if a.Eval(ctx).Truthy() {
				return Bool(false)
			}
		}
		return Bool(true)
	case opNot:
		return Bool(!n.args[0].Eval(ctx).Truthy())
	case opIn:
		return inSet(n, ctx, false)
	case opNotIn:
		return inSet(n, ctx, true)
	case opStartsWith:
		return strPredicate(n, ctx, func(s, prefix string) bool { return len(s) >= len(prefix) && s[:len(prefix)] == prefix })
	case opEndsWith:
		return strPredicate(n, ctx, func(s, suffix string) bool { return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix })
	case opRegexMatch:
		return evalRegexMatch(n, ctx)
	case opRegexCap:
		return evalRegexCapture(n, ctx)
	case opBoolean:
		return Bool(n.args[0].Eval(ctx).Truthy())
	case opTag:
		return evalTag(n, ctx)
	case opKey:
		if ctx.HasKey {
			return String(ctx.Key)
		}
		return Null()
	case opValue:
		if ctx.HasCurrentValue {
			return ctx.CurrentValue
		}
		return Null()
	case opGeomTypeA, opGeomTypeB:
		if ctx.GeometryType == "" {
			return Null()
		}
		return String(ctx.GeometryType)
	default:
		return Null()
	}
}

func compareOrd(n *Node, ctx *Context, numCmp func(a, b float64) bool, strCmp func(a, b string) bool) Value {
	l, r := n.args[0].Eval(ctx), n.args[1].Eval(ctx)
	if l.Kind != r.Kind {
		return Null()
	}
	switch l.Kind {
	case KindNumber:
		return Bool(numCmp(l.AsNumber(), r.AsNumber()))
	case KindString:
		return Bool(strCmp(l.AsString(), r.AsString()))
	default:
		return Null()
	}
}

// inSet evaluates "in" (negate=false) or "not-in" (negate=true); a
// non-array second operand is a type mismatch and yields Null.
func inSet(n *Node, ctx *Context, negate bool) Value {
	needle := n.args[0].Eval(ctx)
	hay := n.args[1].Eval(ctx)
	if hay.Kind != KindArray {
		return Null()
	}
	found := false
	for _, e := range hay.AsArray() {
		if needle.Equal(e) {
			found = true
			break
		}
	}
	return Bool(found != negate)
}

func strPredicate(n *Node, ctx *Context, pred func(a, b string) bool) Value {
	l, r := n.args[0].Eval(ctx), n.args[1].Eval(ctx)
	if l.Kind != KindString || r.Kind != KindString {
		return Null()
	}
	return Bool(pred(l.AsString(), r.AsString()))
}

func evalRegexMatch(n *Node, ctx *Context) Value {
	subject := n.args[0].Eval(ctx)
	pattern := n.args[1].Eval(ctx)
	if subject.Kind != KindString || pattern.Kind != KindString {
		return Null()
	}
	re, err := compileRegex(pattern.AsString())
	if err != nil {
		return Null()
	}
	return Bool(re.MatchString(subject.AsString()))
}

func evalRegexCapture(n *Node, ctx *Context) Value {
	subject := n.args[0].Eval(ctx)
	pattern := n.args[1].Eval(ctx)
	idx := n.args[2].Eval(ctx)
	if subject.Kind != KindString || pattern.Kind != KindString || idx.Kind != KindNumber {
		return Null()
	}
	re, err := compileRegex(pattern.AsString())
	if err != nil {
		return Null()
	}
	m := re.FindStringSubmatch(subject.AsString())
	i := int(idx.AsNumber())
	if m == nil || i < 0 || i >= len(m) {
		return Null()
	}
	return String(m[i])
}

func evalTag(n *Node, ctx *Context) Value {
	name := n.args[0].Eval(ctx)
	if name.Kind != KindString {
		return Null()
	}
	if ctx.Tags == nil {
		return Null()
	}
	v, ok := ctx.Tags[name.AsString()]
	if !ok {
		return Null()
	}
	return v
}

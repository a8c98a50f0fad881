// Package rex models the scalar expressions attached to relational operators.
//
// Expressions are immutable trees over input references, local references,
// calls, pattern field references, field accesses and literals. Their textual
// form keeps operands positional ($0, $1, ...), which is what the transform
// synthesizer in pkg/origin substitutes real field names into.
package rex

import (
	"fmt"
	"strings"
)

// Node is a scalar expression node.
type Node interface {
	// String renders the expression with positional operand references,
	// e.g. "SUM($1)" or "$0 + $1".
	String() string

	exprNode()
}

// InputRef references a column of the operator's input row by index.
type InputRef struct {
	Index int
}

func (r *InputRef) String() string { return fmt.Sprintf("$%d", r.Index) }
func (*InputRef) exprNode()        {}

// LocalRef references an entry in a Calc program's private expression list.
// It is only meaningful inside a program and must be expanded before a
// consumer inspects the expression.
type LocalRef struct {
	Index int
}

func (r *LocalRef) String() string { return fmt.Sprintf("$t%d", r.Index) }
func (*LocalRef) exprNode()        {}

// PatternFieldRef references an input column from inside a MATCH_RECOGNIZE
// measure, scoped to a pattern variable.
type PatternFieldRef struct {
	Alpha string // pattern variable, e.g. "A"
	Index int
}

// String renders like a plain input reference; the pattern variable does not
// participate in positional substitution.
func (r *PatternFieldRef) String() string { return fmt.Sprintf("$%d", r.Index) }
func (*PatternFieldRef) exprNode()        {}

// CorrelVariable is a reference to a correlation variable, e.g. "$cor0".
type CorrelVariable struct {
	Name string
}

func (v *CorrelVariable) String() string { return v.Name }
func (*CorrelVariable) exprNode()        {}

// FieldAccess reads a named field from a record-valued expression, most
// commonly a correlation variable ("$cor0.user_name").
type FieldAccess struct {
	Expr  Node
	Field string
}

func (f *FieldAccess) String() string { return f.Expr.String() + "." + f.Field }
func (*FieldAccess) exprNode()        {}

// Literal is a constant value. Text is the serialized form and may contain
// encoding artifacts from the producing planner (see origin.SynthesizeTransform).
type Literal struct {
	Value any
	Text  string
}

func (l *Literal) String() string {
	if l.Text != "" {
		return l.Text
	}
	return fmt.Sprint(l.Value)
}
func (*Literal) exprNode() {}

// Call applies an operator or function to ordered operands.
type Call struct {
	Op       string
	Operands []Node
}

// infixOps are rendered between their two operands instead of prefix form.
var infixOps = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "%": {},
	"=": {}, "<>": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"||": {}, "AND": {}, "OR": {},
}

func (c *Call) String() string {
	if len(c.Operands) == 0 {
		// Niladic functions print without parentheses, e.g. LOCALTIMESTAMP.
		return c.Op
	}
	if _, ok := infixOps[c.Op]; ok && len(c.Operands) == 2 {
		return c.Operands[0].String() + " " + c.Op + " " + c.Operands[1].String()
	}
	parts := make([]string, len(c.Operands))
	for i, op := range c.Operands {
		parts[i] = op.String()
	}
	return c.Op + "(" + strings.Join(parts, ", ") + ")"
}
func (*Call) exprNode() {}

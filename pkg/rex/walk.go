package rex

// Walk visits expr and every sub-expression in pre-order. If visit returns
// false the walk stops immediately.
func Walk(expr Node, visit func(Node) bool) {
	walk(expr, visit)
}

func walk(expr Node, visit func(Node) bool) bool {
	if expr == nil {
		return true
	}
	if !visit(expr) {
		return false
	}
	switch e := expr.(type) {
	case *Call:
		for _, op := range e.Operands {
			if !walk(op, visit) {
				return false
			}
		}
	case *FieldAccess:
		return walk(e.Expr, visit)
	}
	return true
}

// InputRefs returns every input-column reference under expr, in visit order.
// Pattern field references are a distinct node type and are not included.
func InputRefs(expr Node) []*InputRef {
	var refs []*InputRef
	Walk(expr, func(n Node) bool {
		if ref, ok := n.(*InputRef); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

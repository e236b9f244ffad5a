package ach

// IsTailRecursive reports whether body calls rec at least once and every
// such call is in tail position. Bodies that qualify run in a loop
// instead of growing the Go stack.
func IsTailRecursive(body Node) bool {
	found, allTail := false, true
	walkTail(body, true, func(n Node, tail bool) bool {
		if _, ok := recCallArgs(n); ok {
			found = true
			allTail = allTail && tail
		}
		return allTail
	})
	return found && allTail
}

// IsTailPosition reports whether node, somewhere inside the function body,
// contributes its value directly as the function's result. Nodes inside
// nested lambdas belong to another function and are never in tail position
// of body; so are nodes not found in body at all.
func IsTailPosition(body, node Node) bool {
	result := false
	walkTail(body, true, func(n Node, tail bool) bool {
		if n == node {
			result = tail
			return false
		}
		return true
	})
	return result
}

func recCallArgs(n Node) ([]Node, bool) {
	switch c := n.(type) {
	case *FunctionCall:
		if c.Name == "rec" {
			return c.Args, true
		}
	case *CallExpr:
		if _, ok := c.Callee.(*RecRef); ok {
			return c.Args, true
		}
	}
	return nil, false
}

// walkTail visits n and its descendants with whether each one is in tail
// position, stopping once visit returns false. Lambdas are visited but not
// entered since they have their own rec.
func walkTail(n Node, tail bool, visit func(Node, bool) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n, tail) {
		return false
	}

	switch n := n.(type) {
	case *Lambda:
		return true
	case *If:
		return walkTail(n.Cond, false, visit) &&
			walkTail(n.Then, tail, visit) &&
			walkTail(n.Else, tail, visit)
	case *Piecewise:
		for _, c := range n.Cases {
			if !walkTail(c.Cond, false, visit) || !walkTail(c.Value, tail, visit) {
				return false
			}
		}
		return walkTail(n.Default, tail, visit)
	case *Sequence:
		return stmtsTail(n.Stmts, tail, visit)
	case *DoBlock:
		return stmtsTail(n.Stmts, tail, visit)
	case *Return:
		return walkTail(n.Value, true, visit)
	case *Match:
		if !walkTail(n.Value, false, visit) {
			return false
		}
		for _, arm := range n.Arms {
			if !walkTail(arm.Guard, false, visit) || !walkTail(arm.Body, tail, visit) {
				return false
			}
		}
		return true
	}

	ok := true
	n.Walk(func(c Node) bool {
		if c == n {
			return true
		}
		if ok && !walkTail(c, false, visit) {
			ok = false
		}
		return false
	})
	return ok
}

func stmtsTail(stmts []Node, tail bool, visit func(Node, bool) bool) bool {
	for k, s := range stmts {
		if !walkTail(s, tail && k == len(stmts)-1, visit) {
			return false
		}
	}
	return true
}

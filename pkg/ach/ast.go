package ach

import (
	"context"
)

// Node is an AST node. Nodes are immutable once parsed; evaluation state
// lives in the Interpreter.
type Node interface {
	Eval(ctx context.Context, i *Interpreter) (Value, error)
	GetSourceLocation() *SourceLocation

	// Walk recursively visits this node and all its children, calling fn for each node.
	// The callback returns true to continue walking into children, false to skip children.
	Walk(fn func(Node) bool)
}

// Parser turns source text into top-level statements. The engine ships
// no grammar of its own; embedders supply one.
type Parser interface {
	Parse(ctx context.Context, filename string, src []byte) ([]Node, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, filename string, src []byte) ([]Node, error)

func (f ParserFunc) Parse(ctx context.Context, filename string, src []byte) ([]Node, error) {
	return f(ctx, filename, src)
}

func walkAll(fn func(Node) bool, nodes ...Node) {
	for _, n := range nodes {
		if n != nil {
			n.Walk(fn)
		}
	}
}

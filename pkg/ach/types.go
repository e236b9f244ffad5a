package ach

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Type is a type annotation. Annotations are optional; values without one
// are never checked.
type Type interface {
	String() string
	isType()
}

// SimpleType is a type identified by its name alone.
type SimpleType string

const (
	NumberType      SimpleType = "Number"
	BooleanType     SimpleType = "Boolean"
	StringType      SimpleType = "String"
	ComplexType     SimpleType = "Complex"
	VectorType      SimpleType = "Vector"
	EdgeType        SimpleType = "Edge"
	GeneratorType   SimpleType = "Generator"
	ErrorType       SimpleType = "Error"
	AnyFunctionType SimpleType = "Function"
	NullType        SimpleType = "null"
	AnyType         SimpleType = "Any"
)

func (t SimpleType) String() string { return string(t) }
func (SimpleType) isType()          {}

// WildcardDim matches any size in a tensor shape annotation.
const WildcardDim = -1

// TensorType is Tensor<Elem, [d1, d2, ...]>. A nil Shape matches any shape.
type TensorType struct {
	Elem  Type
	Shape []int
}

func (t TensorType) String() string {
	elem := "Number"
	if t.Elem != nil {
		elem = t.Elem.String()
	}
	if t.Shape == nil {
		return fmt.Sprintf("Tensor<%s>", elem)
	}
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		if d == WildcardDim {
			dims[i] = "_"
		} else {
			dims[i] = fmt.Sprint(d)
		}
	}
	return fmt.Sprintf("Tensor<%s, [%s]>", elem, strings.Join(dims, ", "))
}

func (TensorType) isType() {}

// FieldType is one field of a record type.
type FieldType struct {
	Mutable bool
	Type    Type
}

// RecordType is a structural record type: a value matches when it has at
// least these fields.
type RecordType struct {
	Fields map[string]FieldType
}

func (t RecordType) String() string {
	parts := make([]string, 0, len(t.Fields))
	for _, name := range slices.Sorted(maps.Keys(t.Fields)) {
		f := t.Fields[name]
		prefix := ""
		if f.Mutable {
			prefix = "mut "
		}
		parts = append(parts, fmt.Sprintf("%s%s: %s", prefix, name, typeString(f.Type)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (RecordType) isType() {}

// FunctionType is (P1, P2) => R. A nil param or return entry is untyped.
type FunctionType struct {
	Params []Type
	Return Type
}

func (t FunctionType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = typeString(p)
	}
	return fmt.Sprintf("(%s) => %s", strings.Join(params, ", "), typeString(t.Return))
}

func (FunctionType) isType() {}

// UnionType matches any of its members.
type UnionType struct {
	Types []Type
}

func (t UnionType) String() string {
	parts := make([]string, len(t.Types))
	for i, m := range t.Types {
		parts[i] = typeString(m)
	}
	return strings.Join(parts, " | ")
}

func (UnionType) isType() {}

// TypeRef names a user-defined type alias.
type TypeRef struct {
	Name string
}

func (t TypeRef) String() string { return t.Name }
func (TypeRef) isType()          {}

func typeString(t Type) string {
	if t == nil {
		return "Any"
	}
	return t.String()
}

// InferType returns the most specific annotation describing v.
func InferType(v Value) Type {
	if v == nil {
		return NullType
	}
	return v.Type()
}

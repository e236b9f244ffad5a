package ach

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vito/achronyme/pkg/persist"
)

// ToPersist maps a runtime value to its serializable mirror. Values that
// cannot be written map to persist.Unsupported with a reason.
func ToPersist(v Value) persist.Value {
	switch x := Deref(v).(type) {
	case nil, NullValue:
		return persist.Null()
	case NumberValue:
		return persist.Number(x.Val)
	case BoolValue:
		return persist.Bool(x.Val)
	case StringValue:
		return persist.String(x.Val)
	case ComplexValue:
		return persist.Complex(x.Val)
	case VectorValue:
		list := make([]persist.Value, len(x.Elements))
		for k, e := range x.Elements {
			list[k] = ToPersist(e)
		}
		return persist.Vector(list)
	case TensorValue:
		return persist.Tensor(slices.Clone(x.Shape), slices.Clone(x.Data))
	case ComplexTensorValue:
		return persist.ComplexTensor(slices.Clone(x.Shape), slices.Clone(x.Data))
	case RecordValue:
		return persist.Record(persistFields(x.Fields))
	case EdgeValue:
		return persist.Edge(x.From, x.To, x.Directed, persistFields(x.Props))
	case BuiltinFunction:
		return persist.Builtin(x.Name)
	case *Closure:
		return persist.Unsupported("user-defined functions cannot be saved")
	case *Generator:
		return persist.Unsupported("generators cannot be saved")
	case *ErrorValue:
		return persist.Unsupported("errors cannot be saved")
	}
	return persist.Unsupported(fmt.Sprintf("%s values cannot be saved", typeString(InferType(v))))
}

func persistFields(fields map[string]Value) map[string]persist.Value {
	out := make(map[string]persist.Value, len(fields))
	for name, f := range fields {
		out[name] = ToPersist(f)
	}
	return out
}

// FromPersist rebuilds a runtime value. Record fields come back
// immutable.
func FromPersist(pv persist.Value) (Value, error) {
	switch pv.Kind {
	case persist.KindNull:
		return NullValue{}, nil
	case persist.KindNumber:
		return NumberValue{Val: pv.Number}, nil
	case persist.KindBool:
		return BoolValue{Val: pv.Bool}, nil
	case persist.KindString:
		return StringValue{Val: pv.String}, nil
	case persist.KindComplex:
		return ComplexValue{Val: pv.Complex}, nil
	case persist.KindVector:
		elems := make([]Value, len(pv.List))
		for k, e := range pv.List {
			v, err := FromPersist(e)
			if err != nil {
				return nil, err
			}
			elems[k] = v
		}
		return VectorValue{Elements: elems}, nil
	case persist.KindTensor:
		return TensorValue{Shape: pv.Shape, Data: pv.Data}, nil
	case persist.KindComplexTensor:
		return ComplexTensorValue{Shape: pv.Shape, Data: pv.CData}, nil
	case persist.KindRecord:
		fields, err := fieldsFromPersist(pv.Fields)
		if err != nil {
			return nil, err
		}
		return RecordValue{Fields: fields}, nil
	case persist.KindEdge:
		props, err := fieldsFromPersist(pv.Fields)
		if err != nil {
			return nil, err
		}
		return EdgeValue{From: pv.From, To: pv.To, Directed: pv.Directed, Props: props}, nil
	case persist.KindBuiltin:
		return BuiltinFunction{Name: pv.String}, nil
	}
	return nil, fmt.Errorf("%w: cannot restore %s value", persist.ErrInvalidFormat, pv.Kind)
}

func fieldsFromPersist(fields map[string]persist.Value) (map[string]Value, error) {
	out := make(map[string]Value, len(fields))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		v, err := FromPersist(fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

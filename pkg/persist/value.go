package persist

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind tags a serialized value. The numeric values are part of the file
// format and must not change.
type Kind uint8

const (
	KindNull          Kind = 0
	KindNumber        Kind = 1
	KindBool          Kind = 2
	KindString        Kind = 3
	KindComplex       Kind = 4
	KindVector        Kind = 5
	KindTensor        Kind = 6
	KindComplexTensor Kind = 7
	KindRecord        Kind = 8
	KindEdge          Kind = 9
	KindBuiltin       Kind = 10
	KindUnsupported   Kind = 255
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Boolean"
	case KindString:
		return "String"
	case KindComplex:
		return "Complex"
	case KindVector:
		return "Vector"
	case KindTensor:
		return "Tensor"
	case KindComplexTensor:
		return "ComplexTensor"
	case KindRecord:
		return "Record"
	case KindEdge:
		return "Edge"
	case KindBuiltin:
		return "BuiltinFunction"
	case KindUnsupported:
		return "Unsupported"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is the serializable mirror of a runtime value. Only the fields for
// its Kind are meaningful.
type Value struct {
	Kind Kind

	Number  float64
	Bool    bool
	Complex complex128

	// String holds a string payload, a builtin's name, or the reason a
	// value is unsupported.
	String string

	List  []Value
	Shape []int
	Data  []float64
	CData []complex128

	// Fields holds record fields, or an edge's properties.
	Fields map[string]Value

	From, To string
	Directed bool
}

func Null() Value                { return Value{Kind: KindNull} }
func Number(f float64) Value     { return Value{Kind: KindNumber, Number: f} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func String(s string) Value      { return Value{Kind: KindString, String: s} }
func Complex(c complex128) Value { return Value{Kind: KindComplex, Complex: c} }
func Vector(vs []Value) Value    { return Value{Kind: KindVector, List: vs} }
func Builtin(name string) Value  { return Value{Kind: KindBuiltin, String: name} }

func Tensor(shape []int, data []float64) Value {
	return Value{Kind: KindTensor, Shape: shape, Data: data}
}

func ComplexTensor(shape []int, data []complex128) Value {
	return Value{Kind: KindComplexTensor, Shape: shape, CData: data}
}

func Record(fields map[string]Value) Value {
	return Value{Kind: KindRecord, Fields: fields}
}

func Edge(from, to string, directed bool, props map[string]Value) Value {
	return Value{Kind: KindEdge, From: from, To: to, Directed: directed, Fields: props}
}

// Unsupported marks a value that cannot be written, with the reason.
func Unsupported(reason string) Value {
	return Value{Kind: KindUnsupported, String: reason}
}

// Supported reports whether v and everything inside it can be written.
func (v Value) Supported() bool {
	switch v.Kind {
	case KindUnsupported:
		return false
	case KindVector:
		for _, e := range v.List {
			if !e.Supported() {
				return false
			}
		}
	case KindRecord, KindEdge:
		for _, f := range v.Fields {
			if !f.Supported() {
				return false
			}
		}
	}
	return true
}

// reason finds the first unsupported value inside v.
func (v Value) reason() string {
	if v.Kind == KindUnsupported {
		return v.String
	}
	for _, e := range v.List {
		if !e.Supported() {
			return e.reason()
		}
	}
	for _, k := range slices.Sorted(maps.Keys(v.Fields)) {
		if f := v.Fields[k]; !f.Supported() {
			return f.reason()
		}
	}
	return ""
}

var _ msgpack.CustomEncoder = Value{}
var _ msgpack.CustomDecoder = (*Value)(nil)

// EncodeMsgpack writes v as an array whose first element is the kind tag.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := &writer{enc: enc}
	switch v.Kind {
	case KindNull:
		w.header(1, v.Kind)
	case KindNumber:
		w.header(2, v.Kind)
		w.do(enc.EncodeFloat64(v.Number))
	case KindBool:
		w.header(2, v.Kind)
		w.do(enc.EncodeBool(v.Bool))
	case KindString, KindBuiltin, KindUnsupported:
		w.header(2, v.Kind)
		w.do(enc.EncodeString(v.String))
	case KindComplex:
		w.header(3, v.Kind)
		w.do(enc.EncodeFloat64(real(v.Complex)))
		w.do(enc.EncodeFloat64(imag(v.Complex)))
	case KindVector:
		w.header(2, v.Kind)
		w.do(enc.EncodeArrayLen(len(v.List)))
		for _, e := range v.List {
			w.do(e.EncodeMsgpack(enc))
		}
	case KindTensor:
		w.header(3, v.Kind)
		w.shape(v.Shape)
		w.do(enc.EncodeArrayLen(len(v.Data)))
		for _, f := range v.Data {
			w.do(enc.EncodeFloat64(f))
		}
	case KindComplexTensor:
		w.header(3, v.Kind)
		w.shape(v.Shape)
		w.do(enc.EncodeArrayLen(len(v.CData)))
		for _, c := range v.CData {
			w.do(enc.EncodeArrayLen(2))
			w.do(enc.EncodeFloat64(real(c)))
			w.do(enc.EncodeFloat64(imag(c)))
		}
	case KindRecord:
		w.header(2, v.Kind)
		w.fields(v.Fields)
	case KindEdge:
		w.header(5, v.Kind)
		w.do(enc.EncodeString(v.From))
		w.do(enc.EncodeString(v.To))
		w.do(enc.EncodeBool(v.Directed))
		w.fields(v.Fields)
	default:
		return fmt.Errorf("%w: cannot encode %s", ErrInvalidFormat, v.Kind)
	}
	return w.err
}

// writer keeps the first encoding error so the cases above stay flat.
type writer struct {
	enc *msgpack.Encoder
	err error
}

func (w *writer) do(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) header(n int, k Kind) {
	w.do(w.enc.EncodeArrayLen(n))
	w.do(w.enc.EncodeUint8(uint8(k)))
}

func (w *writer) shape(shape []int) {
	w.do(w.enc.EncodeArrayLen(len(shape)))
	for _, d := range shape {
		w.do(w.enc.EncodeInt(int64(d)))
	}
}

// fields writes a map with its keys in sorted order.
func (w *writer) fields(fields map[string]Value) {
	w.do(w.enc.EncodeMapLen(len(fields)))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		w.do(w.enc.EncodeString(k))
		w.do(fields[k].EncodeMsgpack(w.enc))
	}
}

// DecodeMsgpack reads a value written by EncodeMsgpack.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("%w: empty value", ErrInvalidFormat)
	}
	tag, err := dec.DecodeUint8()
	if err != nil {
		return err
	}

	*v = Value{Kind: Kind(tag)}
	want := map[Kind]int{
		KindNull:          1,
		KindNumber:        2,
		KindBool:          2,
		KindString:        2,
		KindBuiltin:       2,
		KindUnsupported:   2,
		KindComplex:       3,
		KindVector:        2,
		KindTensor:        3,
		KindComplexTensor: 3,
		KindRecord:        2,
		KindEdge:          5,
	}
	if expected, ok := want[v.Kind]; !ok {
		return fmt.Errorf("%w: unknown value tag %d", ErrInvalidFormat, tag)
	} else if n != expected {
		return fmt.Errorf("%w: %s has %d elements, expected %d", ErrInvalidFormat, v.Kind, n, expected)
	}

	switch v.Kind {
	case KindNull:
	case KindNumber:
		v.Number, err = dec.DecodeFloat64()
	case KindBool:
		v.Bool, err = dec.DecodeBool()
	case KindString, KindBuiltin, KindUnsupported:
		v.String, err = dec.DecodeString()
	case KindComplex:
		var re, im float64
		if re, err = dec.DecodeFloat64(); err != nil {
			return err
		}
		im, err = dec.DecodeFloat64()
		v.Complex = complex(re, im)
	case KindVector:
		var n int
		if n, err = dec.DecodeArrayLen(); err != nil {
			return err
		}
		v.List = make([]Value, max(n, 0))
		for i := range v.List {
			if err := v.List[i].DecodeMsgpack(dec); err != nil {
				return err
			}
		}
	case KindTensor:
		if v.Shape, err = decodeShape(dec); err != nil {
			return err
		}
		var n int
		if n, err = dec.DecodeArrayLen(); err != nil {
			return err
		}
		v.Data = make([]float64, max(n, 0))
		for i := range v.Data {
			if v.Data[i], err = dec.DecodeFloat64(); err != nil {
				return err
			}
		}
		err = checkShape(v.Shape, len(v.Data))
	case KindComplexTensor:
		if v.Shape, err = decodeShape(dec); err != nil {
			return err
		}
		var n int
		if n, err = dec.DecodeArrayLen(); err != nil {
			return err
		}
		v.CData = make([]complex128, max(n, 0))
		for i := range v.CData {
			if pair, err := dec.DecodeArrayLen(); err != nil {
				return err
			} else if pair != 2 {
				return fmt.Errorf("%w: complex element has %d parts", ErrInvalidFormat, pair)
			}
			re, err := dec.DecodeFloat64()
			if err != nil {
				return err
			}
			im, err := dec.DecodeFloat64()
			if err != nil {
				return err
			}
			v.CData[i] = complex(re, im)
		}
		err = checkShape(v.Shape, len(v.CData))
	case KindRecord:
		v.Fields, err = decodeFields(dec)
	case KindEdge:
		if v.From, err = dec.DecodeString(); err != nil {
			return err
		}
		if v.To, err = dec.DecodeString(); err != nil {
			return err
		}
		if v.Directed, err = dec.DecodeBool(); err != nil {
			return err
		}
		v.Fields, err = decodeFields(dec)
	}
	return err
}

func decodeShape(dec *msgpack.Decoder) ([]int, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	shape := make([]int, max(n, 0))
	for i := range shape {
		if shape[i], err = dec.DecodeInt(); err != nil {
			return nil, err
		}
		if shape[i] < 0 {
			return nil, fmt.Errorf("%w: negative tensor dimension %d", ErrInvalidFormat, shape[i])
		}
	}
	return shape, nil
}

func checkShape(shape []int, n int) error {
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != n {
		return fmt.Errorf("%w: tensor shape %v needs %d elements, found %d", ErrInvalidFormat, shape, size, n)
	}
	return nil
}

func decodeFields(dec *msgpack.Decoder) (map[string]Value, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]Value, max(n, 0))
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		var f Value
		if err := f.DecodeMsgpack(dec); err != nil {
			return nil, err
		}
		fields[k] = f
	}
	return fields, nil
}

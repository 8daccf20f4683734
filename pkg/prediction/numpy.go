package prediction

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// NDArray is a numpy array decoded from a pickle. Numeric data is converted
// to float64 in C order; object arrays keep their elements in Objects.
type NDArray struct {
	Shape   []int
	DType   *DType
	Data    []float64
	Objects []any
	Fortran bool
}

// Len is the number of elements.
func (a *NDArray) Len() int {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	return n
}

// Row returns the trailing-axis slice at the given leading index.
func (a *NDArray) Row(i int) []float64 {
	if len(a.Shape) == 0 {
		return a.Data
	}
	w := a.Len() / a.Shape[0]
	return a.Data[i*w : (i+1)*w]
}

// PySetState receives (version, shape, dtype, is_fortran, rawdata).
func (a *NDArray) PySetState(state any) error {
	items, ok := sequence(state)
	if !ok || len(items) < 5 {
		return errors.Errorf("ndarray state %T", state)
	}
	shape, ok := sequence(items[1])
	if !ok {
		return errors.Errorf("ndarray shape %T", items[1])
	}
	a.Shape = make([]int, len(shape))
	for i, s := range shape {
		if a.Shape[i], ok = toInt(s); !ok {
			return errors.Errorf("ndarray shape element %T", s)
		}
	}
	dt, ok := items[2].(*DType)
	if !ok {
		return errors.Errorf("ndarray dtype %T", items[2])
	}
	a.DType = dt
	a.Fortran, _ = items[3].(bool)

	if objs, ok := sequence(items[4]); ok {
		a.Objects = make([]any, len(objs))
		for i, o := range objs {
			a.Objects[i] = native(o)
		}
		return nil
	}
	raw, ok := rawBytes(items[4])
	if !ok {
		return errors.Errorf("ndarray data %T", items[4])
	}
	data, err := dt.decode(raw)
	if err != nil {
		return err
	}
	if len(data) != a.Len() {
		return errors.Errorf("ndarray has %d values for shape %v", len(data), a.Shape)
	}
	if a.Fortran {
		data = toCOrder(data, a.Shape)
	}
	a.Data = data
	return nil
}

// DType is a numpy dtype such as "f8" or "<i4".
type DType struct {
	Kind      byte
	Size      int
	BigEndian bool
}

// reconstructClass implements numpy.core.multiarray._reconstruct. The array
// content arrives later through NDArray.PySetState.
type reconstructClass struct{}

func (reconstructClass) Call(args ...any) (any, error) {
	return &NDArray{}, nil
}

// ndarrayClass stands for the numpy.ndarray type passed to _reconstruct.
type ndarrayClass struct{}

// dtypeClass implements the numpy.dtype constructor, called as dtype('f8', False, True).
type dtypeClass struct{}

func (d dtypeClass) Call(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("numpy.dtype without arguments")
	}
	name, ok := args[0].(string)
	if !ok || len(name) < 1 {
		return nil, errors.Errorf("numpy.dtype name %T", args[0])
	}
	out := &DType{Kind: name[0], Size: 1}
	switch name[0] {
	case '<', '=', '|':
		return d.Call(append([]any{name[1:]}, args[1:]...)...)
	case '>':
		dt, err := d.Call(append([]any{name[1:]}, args[1:]...)...)
		if err == nil {
			dt.(*DType).BigEndian = true
		}
		return dt, err
	}
	if len(name) > 1 {
		size, err := strconv.Atoi(name[1:])
		if err != nil {
			return nil, errors.Wrapf(ErrUnsupportedDType, "%q", name)
		}
		out.Size = size
	}
	return out, nil
}

// PySetState receives (version, byteorder, subarray, names, fields, elsize, alignment, flags).
func (d *DType) PySetState(state any) error {
	items, ok := sequence(state)
	if !ok || len(items) < 2 {
		return errors.Errorf("dtype state %T", state)
	}
	if order, ok := items[1].(string); ok {
		d.BigEndian = order == ">"
	}
	return nil
}

func (d *DType) String() string {
	order := "<"
	if d.BigEndian {
		order = ">"
	}
	return fmt.Sprintf("%s%c%d", order, d.Kind, d.Size)
}

func (d *DType) decode(raw []byte) ([]float64, error) {
	if d.Size <= 0 || len(raw)%d.Size != 0 {
		return nil, errors.Wrapf(ErrUnsupportedDType, "%d bytes of %s", len(raw), d)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if d.BigEndian {
		order = binary.BigEndian
	}

	out := make([]float64, len(raw)/d.Size)
	for i := range out {
		b := raw[i*d.Size : (i+1)*d.Size]
		switch {
		case d.Kind == 'f' && d.Size == 8:
			out[i] = math.Float64frombits(order.Uint64(b))
		case d.Kind == 'f' && d.Size == 4:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case (d.Kind == 'b' || d.Kind == 'u') && d.Size == 1:
			out[i] = float64(b[0])
		case d.Kind == 'i' && d.Size == 1:
			out[i] = float64(int8(b[0]))
		case d.Kind == 'i' && d.Size == 2:
			out[i] = float64(int16(order.Uint16(b)))
		case d.Kind == 'u' && d.Size == 2:
			out[i] = float64(order.Uint16(b))
		case d.Kind == 'i' && d.Size == 4:
			out[i] = float64(int32(order.Uint32(b)))
		case d.Kind == 'u' && d.Size == 4:
			out[i] = float64(order.Uint32(b))
		case d.Kind == 'i' && d.Size == 8:
			out[i] = float64(int64(order.Uint64(b)))
		case d.Kind == 'u' && d.Size == 8:
			out[i] = float64(order.Uint64(b))
		default:
			return nil, errors.Wrap(ErrUnsupportedDType, d.String())
		}
	}
	return out, nil
}

// scalarClass implements numpy.core.multiarray.scalar(dtype, rawbytes).
type scalarClass struct{}

func (scalarClass) Call(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("numpy scalar needs a dtype and data")
	}
	dt, ok := args[0].(*DType)
	if !ok {
		return nil, errors.Errorf("numpy scalar dtype %T", args[0])
	}
	raw, ok := rawBytes(args[1])
	if !ok {
		return nil, errors.Errorf("numpy scalar data %T", args[1])
	}
	v, err := dt.decode(raw)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, errors.Errorf("numpy scalar of %d values", len(v))
	}
	return v[0], nil
}

// latin1Encoder implements _codecs.encode, which protocol 2 pickles use to
// carry bytes objects.
type latin1Encoder struct{}

func (latin1Encoder) Call(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("_codecs.encode without arguments")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, errors.Errorf("_codecs.encode of %T", args[0])
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out, nil
}

func rawBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

// toCOrder transposes column-major data into row-major order.
func toCOrder(data []float64, shape []int) []float64 {
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for f := range data {
		// f is the Fortran offset of idx
		c := 0
		for k := range shape {
			c = c*shape[k] + idx[k]
		}
		out[c] = data[f]
		for k := 0; k < len(shape); k++ {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}

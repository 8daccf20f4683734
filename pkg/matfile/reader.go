package matfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const headerLen = 128

// data element types
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17
	miUTF32      = 18
)

const flagComplex = 0x0800

// Read decodes every variable of the MAT file at path.
func Read(path string) (map[string]*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	vars, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return vars, nil
}

// ReadVariable decodes the MAT file at path and returns one variable.
func ReadVariable(path, name string) (*Array, error) {
	vars, err := Read(path)
	if err != nil {
		return nil, err
	}
	v, ok := vars[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoVariable, "%s in %s", name, path)
	}
	return v, nil
}

// Decode reads a level 5 MAT file.
func Decode(r io.Reader) (map[string]*Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen || !bytes.HasPrefix(data, []byte("MATLAB")) {
		return nil, ErrNotMAT
	}

	d := &decoder{}
	switch string(data[126:128]) {
	case "IM":
		d.order = binary.LittleEndian
	case "MI":
		d.order = binary.BigEndian
	default:
		return nil, errors.Wrapf(ErrNotMAT, "endian indicator %q", data[126:128])
	}

	vars := make(map[string]*Array)
	rest := data[headerLen:]
	for len(rest) > 0 {
		var typ uint32
		var payload []byte
		typ, payload, rest, err = d.element(rest)
		if err != nil {
			return nil, err
		}
		arr, err := d.variable(typ, payload)
		if err != nil {
			return nil, err
		}
		if arr != nil {
			vars[arr.Name] = arr
		}
	}
	return vars, nil
}

type decoder struct {
	order binary.ByteOrder
}

// element splits the next data element off buf, handling the small element
// format and the 8 byte alignment of regular elements.
func (d *decoder) element(buf []byte) (typ uint32, payload, rest []byte, err error) {
	if len(buf) < 8 {
		return 0, nil, nil, errors.Wrapf(ErrCorrupt, "%d trailing bytes", len(buf))
	}
	first := d.order.Uint32(buf[0:4])
	if n := first >> 16; n != 0 {
		if n > 4 {
			return 0, nil, nil, errors.Wrapf(ErrCorrupt, "small element of %d bytes", n)
		}
		return first & 0xffff, buf[4 : 4+n], buf[8:], nil
	}

	n := int(d.order.Uint32(buf[4:8]))
	if n > len(buf)-8 {
		return 0, nil, nil, errors.Wrapf(ErrCorrupt, "element of %d bytes, %d left", n, len(buf)-8)
	}
	next := 8 + n
	if first != miCOMPRESSED {
		next = (next + 7) &^ 7
		if next > len(buf) {
			next = len(buf)
		}
	}
	return first, buf[8 : 8+n], buf[next:], nil
}

// variable decodes a top level element. Elements other than matrices are
// skipped.
func (d *decoder) variable(typ uint32, payload []byte) (*Array, error) {
	switch typ {
	case miCOMPRESSED:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "inflate")
		}
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.Wrap(err, "inflate")
		}
		innerTyp, innerPayload, _, err := d.element(inflated)
		if err != nil {
			return nil, err
		}
		return d.variable(innerTyp, innerPayload)
	case miMATRIX:
		return d.matrix(payload)
	default:
		return nil, nil
	}
}

func (d *decoder) matrix(buf []byte) (*Array, error) {
	// empty cell elements are written as a bare miMATRIX tag
	if len(buf) == 0 {
		return &Array{Class: ClassDouble, Dims: []int{0, 0}}, nil
	}

	typ, flags, buf, err := d.element(buf)
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, errors.Wrap(ErrCorrupt, "array flags")
	}
	flagWord := d.order.Uint32(flags[0:4])
	arr := &Array{Class: Class(flagWord & 0xff)}
	complexData := flagWord&flagComplex != 0

	typ, dims, buf, err := d.element(buf)
	if err != nil {
		return nil, err
	}
	dimVals, err := d.numbers(typ, dims)
	if err != nil {
		return nil, errors.Wrap(err, "dimensions")
	}
	for _, v := range dimVals {
		if v < 0 || v > math.MaxInt32 || v != math.Trunc(v) {
			return nil, errors.Wrapf(ErrCorrupt, "dimension %v", v)
		}
		arr.Dims = append(arr.Dims, int(v))
	}

	_, name, buf, err := d.element(buf)
	if err != nil {
		return nil, err
	}
	arr.Name = string(name)

	// every cell child carries at least an 8 byte tag, every other element at
	// least one byte of data
	limit := len(buf)
	switch arr.Class {
	case ClassCell:
		limit = len(buf) / 8
	case ClassStruct:
		limit = math.MaxInt32
	}
	n, ok := elementCount(arr.Dims, limit)
	if !ok {
		return nil, errors.Wrapf(ErrCorrupt, "dims %v of %s exceed %d bytes of data", arr.Dims, arr.Name, len(buf))
	}

	switch {
	case arr.Class == ClassCell:
		arr.Cells = make([]*Array, n)
		for i := range arr.Cells {
			if arr.Cells[i], buf, err = d.child(buf); err != nil {
				return nil, errors.Wrapf(err, "cell %d of %s", i, arr.Name)
			}
		}
	case arr.Class == ClassStruct:
		if err := d.structFields(arr, buf); err != nil {
			return nil, err
		}
	case arr.Class == ClassChar:
		if arr.Empty() {
			return arr, nil
		}
		typ, text, _, err := d.element(buf)
		if err != nil {
			return nil, err
		}
		if arr.Text, err = d.text(typ, text); err != nil {
			return nil, err
		}
	case arr.Class.Numeric():
		if arr.Empty() && len(buf) == 0 {
			return arr, nil
		}
		typ, re, rest, err := d.element(buf)
		if err != nil {
			return nil, err
		}
		if arr.Real, err = d.numbers(typ, re); err != nil {
			return nil, errors.Wrapf(err, "real part of %s", arr.Name)
		}
		if complexData {
			typ, im, _, err := d.element(rest)
			if err != nil {
				return nil, err
			}
			if arr.Imag, err = d.numbers(typ, im); err != nil {
				return nil, errors.Wrapf(err, "imaginary part of %s", arr.Name)
			}
		}
		if len(arr.Real) != arr.Len() {
			return nil, errors.Wrapf(ErrCorrupt, "%s has %d values for dims %v", arr.Name, len(arr.Real), arr.Dims)
		}
	default:
		return nil, errors.Wrapf(ErrUnsupported, "class %d of %s", arr.Class, arr.Name)
	}
	return arr, nil
}

// elementCount is the product of dims, or false when it exceeds limit.
func elementCount(dims []int, limit int) (int, bool) {
	for _, d := range dims {
		if d == 0 {
			return 0, true
		}
	}
	n := 1
	for _, d := range dims {
		if n > limit/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

func (d *decoder) child(buf []byte) (*Array, []byte, error) {
	typ, payload, rest, err := d.element(buf)
	if err != nil {
		return nil, nil, err
	}
	if typ != miMATRIX {
		return nil, nil, errors.Wrapf(ErrCorrupt, "child element of type %d", typ)
	}
	arr, err := d.matrix(payload)
	return arr, rest, err
}

func (d *decoder) structFields(arr *Array, buf []byte) error {
	typ, lenBuf, buf, err := d.element(buf)
	if err != nil {
		return err
	}
	nameLen, err := d.numbers(typ, lenBuf)
	if err != nil || len(nameLen) != 1 || nameLen[0] <= 0 {
		return errors.Wrap(ErrCorrupt, "struct field name length")
	}
	_, names, buf, err := d.element(buf)
	if err != nil {
		return err
	}
	width := int(nameLen[0])
	for i := 0; i+width <= len(names); i += width {
		arr.FieldNames = append(arr.FieldNames, string(bytes.TrimRight(names[i:i+width], "\x00")))
	}

	if len(arr.FieldNames) > 0 {
		if _, ok := elementCount(append([]int{len(arr.FieldNames)}, arr.Dims...), len(buf)/8); !ok {
			return errors.Wrapf(ErrCorrupt, "dims %v of %s exceed %d bytes of fields", arr.Dims, arr.Name, len(buf))
		}
	}

	arr.Fields = make(map[string][]*Array, len(arr.FieldNames))
	if len(arr.FieldNames) == 0 {
		return nil
	}
	for i := 0; i < arr.Len(); i++ {
		for _, f := range arr.FieldNames {
			var child *Array
			if child, buf, err = d.child(buf); err != nil {
				return errors.Wrapf(err, "field %s of %s", f, arr.Name)
			}
			arr.Fields[f] = append(arr.Fields[f], child)
		}
	}
	return nil
}

func (d *decoder) text(typ uint32, buf []byte) (string, error) {
	switch typ {
	case miUTF8, miINT8, miUINT8:
		return string(buf), nil
	}
	codes, err := d.numbers(typ, buf)
	if err != nil {
		return "", err
	}
	runes := make([]rune, len(codes))
	for i, c := range codes {
		runes[i] = rune(c)
	}
	return string(runes), nil
}

// numbers converts a numeric data element to float64 values.
func (d *decoder) numbers(typ uint32, buf []byte) ([]float64, error) {
	var size int
	switch typ {
	case miINT8, miUINT8:
		size = 1
	case miINT16, miUINT16, miUTF16:
		size = 2
	case miINT32, miUINT32, miSINGLE, miUTF32:
		size = 4
	case miDOUBLE, miINT64, miUINT64:
		size = 8
	default:
		return nil, errors.Wrapf(ErrUnsupported, "data type %d", typ)
	}
	if len(buf)%size != 0 {
		return nil, errors.Wrapf(ErrCorrupt, "%d bytes of type %d", len(buf), typ)
	}

	out := make([]float64, len(buf)/size)
	for i := range out {
		b := buf[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(b)))
		case miUINT16, miUTF16:
			out[i] = float64(d.order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(b)))
		case miUINT32, miUTF32:
			out[i] = float64(d.order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(b)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(b))
		}
	}
	return out, nil
}

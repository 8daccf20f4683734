package matfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"
	"github.com/pkg/errors"
)

// rawMAT hand-assembles a file holding a 2x2 double named "m", using small
// data elements for the flags-free fields the way MATLAB does.
func rawMAT(order binary.ByteOrder) []byte {
	var buf bytes.Buffer
	header := make([]byte, headerLen)
	copy(header, "MATLAB 5.0 MAT-file")
	order.PutUint16(header[124:], 0x0100)
	if order == binary.ByteOrder(binary.LittleEndian) {
		copy(header[126:], "IM")
	} else {
		copy(header[126:], "MI")
	}
	buf.Write(header)

	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		order.PutUint32(b, v)
		return b
	}

	var body bytes.Buffer
	// array flags
	body.Write(u32(miUINT32))
	body.Write(u32(8))
	body.Write(u32(uint32(ClassDouble)))
	body.Write(u32(0))
	// dimensions
	body.Write(u32(miINT32))
	body.Write(u32(8))
	body.Write(u32(2))
	body.Write(u32(2))
	// name as a small element
	body.Write(u32(1<<16 | miINT8))
	body.Write([]byte{'m', 0, 0, 0})
	// real part
	body.Write(u32(miDOUBLE))
	body.Write(u32(32))
	for _, v := range []float64{1, 2, 3, 4} {
		b := make([]byte, 8)
		order.PutUint64(b, math.Float64bits(v))
		body.Write(b)
	}

	buf.Write(u32(miMATRIX))
	buf.Write(u32(uint32(body.Len())))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func TestDecode_ByteOrders(t *testing.T) {
	c := quicktest.New(t)

	for name, order := range map[string]binary.ByteOrder{
		"little endian": binary.LittleEndian,
		"big endian":    binary.BigEndian,
	} {
		c.Run(name, func(c *quicktest.C) {
			vars, err := Decode(bytes.NewReader(rawMAT(order)))
			c.Assert(err, quicktest.IsNil)

			m := vars["m"]
			c.Assert(m, quicktest.Not(quicktest.IsNil))
			c.Check(m.Class, quicktest.Equals, ClassDouble)
			c.Check(m.Dims, quicktest.DeepEquals, []int{2, 2})
			c.Check(m.Real, quicktest.DeepEquals, []float64{1, 2, 3, 4})
			// column-major: (row 1, col 0) is the second stored value
			c.Check(m.At(1, 0), quicktest.Equals, 2.0)
			c.Check(m.At(0, 1), quicktest.Equals, 3.0)
		})
	}
}

func TestDecode_NotMAT(t *testing.T) {
	c := quicktest.New(t)

	_, err := Decode(bytes.NewReader([]byte("hello")))
	c.Check(errors.Is(err, ErrNotMAT), quicktest.IsTrue)

	bad := rawMAT(binary.LittleEndian)
	copy(bad[126:], "XX")
	_, err = Decode(bytes.NewReader(bad))
	c.Check(errors.Is(err, ErrNotMAT), quicktest.IsTrue)
}

func TestDecode_Truncated(t *testing.T) {
	c := quicktest.New(t)

	data := rawMAT(binary.LittleEndian)
	_, err := Decode(bytes.NewReader(data[:len(data)-10]))
	c.Check(errors.Is(err, ErrCorrupt), quicktest.IsTrue)
}

func nestedActors() *Array {
	pose := &Array{Class: ClassDouble, Dims: []int{2, 3}, Real: []float64{1, 2, 3, 4, 5, 6}}
	empty := &Array{Class: ClassDouble, Dims: []int{0, 0}}
	frames := &Array{Class: ClassCell, Dims: []int{2, 1}, Cells: []*Array{pose, empty}}
	return &Array{Name: "actor3D", Class: ClassCell, Dims: []int{1, 1}, Cells: []*Array{frames}}
}

func TestEncodeDecode(t *testing.T) {
	c := quicktest.New(t)

	label := &Array{Name: "label", Class: ClassChar, Dims: []int{1, 5}, Text: "shelf"}
	meta := &Array{
		Name:       "meta",
		Class:      ClassStruct,
		Dims:       []int{1, 1},
		FieldNames: []string{"fps", "name"},
		Fields: map[string][]*Array{
			"fps":  {{Class: ClassDouble, Dims: []int{1, 1}, Real: []float64{25}}},
			"name": {{Class: ClassChar, Dims: []int{1, 3}, Text: "cam"}},
		},
	}

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		c.Assert(Encode(&buf, compress, nestedActors(), label, meta), quicktest.IsNil)

		vars, err := Decode(&buf)
		c.Assert(err, quicktest.IsNil)
		c.Assert(vars, quicktest.HasLen, 3)

		actors := vars["actor3D"]
		c.Assert(actors.Cells, quicktest.HasLen, 1)
		frames := actors.Cells[0]
		c.Assert(frames.Cells, quicktest.HasLen, 2)
		c.Check(frames.Cells[0].Dims, quicktest.DeepEquals, []int{2, 3})
		c.Check(frames.Cells[0].Real, quicktest.DeepEquals, []float64{1, 2, 3, 4, 5, 6})
		c.Check(frames.Cells[1].Empty(), quicktest.IsTrue)

		c.Check(vars["label"].Text, quicktest.Equals, "shelf")
		c.Check(vars["meta"].FieldNames, quicktest.DeepEquals, []string{"fps", "name"})
		c.Check(vars["meta"].Fields["fps"][0].Real, quicktest.DeepEquals, []float64{25})
		c.Check(vars["meta"].Fields["name"][0].Text, quicktest.Equals, "cam")
	}
}

func TestReadVariable(t *testing.T) {
	c := quicktest.New(t)

	path := filepath.Join(t.TempDir(), "actorsGT.mat")
	f, err := os.Create(path)
	c.Assert(err, quicktest.IsNil)
	c.Assert(Encode(f, true, nestedActors()), quicktest.IsNil)
	c.Assert(f.Close(), quicktest.IsNil)

	v, err := ReadVariable(path, "actor3D")
	c.Assert(err, quicktest.IsNil)
	c.Check(v.Class, quicktest.Equals, ClassCell)

	_, err = ReadVariable(path, "missing")
	c.Check(errors.Is(err, ErrNoVariable), quicktest.IsTrue)

	_, err = ReadVariable(filepath.Join(t.TempDir(), "absent.mat"), "actor3D")
	c.Check(err, quicktest.Not(quicktest.IsNil))
}

// rawCell hand-assembles a little endian file holding an empty-bodied cell
// variable "c" with the given dimensions.
func rawCell(dims ...int32) []byte {
	order := binary.LittleEndian
	var buf bytes.Buffer
	header := make([]byte, headerLen)
	copy(header, "MATLAB 5.0 MAT-file")
	order.PutUint16(header[124:], 0x0100)
	copy(header[126:], "IM")
	buf.Write(header)

	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		order.PutUint32(b, v)
		return b
	}

	var body bytes.Buffer
	body.Write(u32(miUINT32))
	body.Write(u32(8))
	body.Write(u32(uint32(ClassCell)))
	body.Write(u32(0))
	body.Write(u32(miINT32))
	body.Write(u32(uint32(4 * len(dims))))
	for _, d := range dims {
		body.Write(u32(uint32(d)))
	}
	if len(dims)%2 == 1 {
		body.Write(u32(0))
	}
	body.Write(u32(1<<16 | miINT8))
	body.Write([]byte{'c', 0, 0, 0})

	buf.Write(u32(miMATRIX))
	buf.Write(u32(uint32(body.Len())))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func TestDecode_BadDimensions(t *testing.T) {
	c := quicktest.New(t)

	testCases := []struct {
		name string
		dims []int32
	}{
		{name: "negative", dims: []int32{-1, 1}},
		{name: "overflowing product", dims: []int32{1 << 30, 1 << 30, 1 << 30}},
		{name: "more cells than bytes", dims: []int32{1 << 20, 1}},
	}

	for _, tc := range testCases {
		c.Run(tc.name, func(c *quicktest.C) {
			_, err := Decode(bytes.NewReader(rawCell(tc.dims...)))
			c.Assert(err, quicktest.Not(quicktest.IsNil))
			c.Check(errors.Is(err, ErrCorrupt), quicktest.IsTrue)
		})
	}
}

func TestElementCount(t *testing.T) {
	c := quicktest.New(t)

	n, ok := elementCount([]int{14, 3}, 100)
	c.Check(ok, quicktest.IsTrue)
	c.Check(n, quicktest.Equals, 42)

	n, ok = elementCount([]int{0, 1 << 30}, 0)
	c.Check(ok, quicktest.IsTrue)
	c.Check(n, quicktest.Equals, 0)

	_, ok = elementCount([]int{1 << 30, 1 << 30, 1 << 30}, math.MaxInt32)
	c.Check(ok, quicktest.IsFalse)
}

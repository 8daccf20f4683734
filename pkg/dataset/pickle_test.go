package dataset

import (
	"bytes"
	"encoding/binary"
	"math"
)

// numpyPickle encodes {key: [{"pred": <float64 array rows x cols>}]} as a
// protocol 3 pickle the way numpy.ndarray.__reduce__ writes it.
func numpyPickle(key string, rows, cols int, values []float64) []byte {
	var b bytes.Buffer
	op := func(ops ...byte) { b.Write(ops) }
	global := func(module, name string) { b.WriteString("c" + module + "\n" + name + "\n") }
	unicode := func(s string) {
		b.WriteByte('X')
		_ = binary.Write(&b, binary.LittleEndian, uint32(len(s)))
		b.WriteString(s)
	}
	shortString := func(s string) {
		op('U', byte(len(s)))
		b.WriteString(s)
	}

	op(0x80, 3, '}')
	unicode(key)
	op(']', '}')
	unicode("pred")

	global("numpy.core.multiarray", "_reconstruct")
	global("numpy", "ndarray")
	op('K', 0, 0x85, 'C', 1, 'b', 0x87, 'R')
	op('(', 'K', 1, 'K', byte(rows), 'K', byte(cols), 0x86)
	global("numpy", "dtype")
	shortString("f8")
	op(0x89, 0x88, 0x87, 'R', '(', 'K', 3)
	shortString("<")
	op('N', 'N', 'N', 'J', 0xff, 0xff, 0xff, 0xff, 'J', 0xff, 0xff, 0xff, 0xff, 'K', 0, 't', 'b')
	op(0x89)
	b.WriteByte('B')
	_ = binary.Write(&b, binary.LittleEndian, uint32(8*len(values)))
	for _, v := range values {
		_ = binary.Write(&b, binary.LittleEndian, math.Float64bits(v))
	}
	op('t', 'b')

	op('s', 'a', 's', '.')
	return b.Bytes()
}

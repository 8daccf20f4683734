package matfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const fieldNameWidth = 32

// Encode writes vars as a little endian level 5 MAT file. Numeric data is
// stored as doubles. With compress set every variable is zlib compressed the
// way MATLAB's default -v7 save does.
func Encode(w io.Writer, compress bool, vars ...*Array) error {
	header := make([]byte, headerLen)
	for i := range header[:116] {
		header[i] = ' '
	}
	copy(header, "MATLAB 5.0 MAT-file, written by shelf-eval")
	binary.LittleEndian.PutUint16(header[124:], 0x0100)
	copy(header[126:], "IM")
	if _, err := w.Write(header); err != nil {
		return err
	}

	for _, v := range vars {
		var body bytes.Buffer
		if err := encodeMatrix(&body, v); err != nil {
			return errors.Wrapf(err, "encode %s", v.Name)
		}
		var elem bytes.Buffer
		writeElement(&elem, miMATRIX, body.Bytes())

		if !compress {
			if _, err := w.Write(elem.Bytes()); err != nil {
				return err
			}
			continue
		}

		var packed bytes.Buffer
		zw := zlib.NewWriter(&packed)
		if _, err := zw.Write(elem.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		tag := make([]byte, 8)
		binary.LittleEndian.PutUint32(tag[0:], miCOMPRESSED)
		binary.LittleEndian.PutUint32(tag[4:], uint32(packed.Len()))
		if _, err := w.Write(append(tag, packed.Bytes()...)); err != nil {
			return err
		}
	}
	return nil
}

func encodeMatrix(buf *bytes.Buffer, a *Array) error {
	flags := make([]byte, 8)
	flagWord := uint32(a.Class)
	if a.Imag != nil {
		flagWord |= flagComplex
	}
	binary.LittleEndian.PutUint32(flags, flagWord)
	writeElement(buf, miUINT32, flags)

	dims := a.Dims
	if len(dims) == 0 {
		dims = []int{0, 0}
	}
	dimBuf := make([]byte, 4*len(dims))
	for i, d := range dims {
		binary.LittleEndian.PutUint32(dimBuf[4*i:], uint32(int32(d)))
	}
	writeElement(buf, miINT32, dimBuf)
	writeElement(buf, miINT8, []byte(a.Name))

	switch {
	case a.Class == ClassCell:
		if len(a.Cells) != a.Len() {
			return errors.Wrapf(ErrCorrupt, "%d cells for dims %v", len(a.Cells), a.Dims)
		}
		for _, c := range a.Cells {
			var child bytes.Buffer
			if err := encodeMatrix(&child, c); err != nil {
				return err
			}
			writeElement(buf, miMATRIX, child.Bytes())
		}
	case a.Class == ClassStruct:
		width := make([]byte, 4)
		binary.LittleEndian.PutUint32(width, fieldNameWidth)
		writeElement(buf, miINT32, width)
		names := make([]byte, fieldNameWidth*len(a.FieldNames))
		for i, f := range a.FieldNames {
			copy(names[i*fieldNameWidth:(i+1)*fieldNameWidth-1], f)
		}
		writeElement(buf, miINT8, names)
		for i := 0; i < a.Len(); i++ {
			for _, f := range a.FieldNames {
				var child bytes.Buffer
				if err := encodeMatrix(&child, a.Fields[f][i]); err != nil {
					return err
				}
				writeElement(buf, miMATRIX, child.Bytes())
			}
		}
	case a.Class == ClassChar:
		runes := []rune(a.Text)
		data := make([]byte, 2*len(runes))
		for i, r := range runes {
			binary.LittleEndian.PutUint16(data[2*i:], uint16(r))
		}
		writeElement(buf, miUINT16, data)
	case a.Class.Numeric():
		writeElement(buf, miDOUBLE, doubles(a.Real))
		if a.Imag != nil {
			writeElement(buf, miDOUBLE, doubles(a.Imag))
		}
	default:
		return errors.Wrapf(ErrUnsupported, "class %d", a.Class)
	}
	return nil
}

func doubles(v []float64) []byte {
	out := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(f))
	}
	return out
}

// writeElement writes a regular (non small) data element padded to 8 bytes.
func writeElement(buf *bytes.Buffer, typ uint32, data []byte) {
	tag := make([]byte, 8)
	binary.LittleEndian.PutUint32(tag[0:], typ)
	binary.LittleEndian.PutUint32(tag[4:], uint32(len(data)))
	buf.Write(tag)
	buf.Write(data)
	if pad := (8 - len(data)%8) % 8; pad > 0 {
		buf.Write(make([]byte, pad))
	}
}

package matfile

// Class is the MATLAB array class stored in the array flags.
type Class uint8

// MATLAB array classes
const (
	ClassCell   Class = 1
	ClassStruct Class = 2
	ClassObject Class = 3
	ClassChar   Class = 4
	ClassSparse Class = 5
	ClassDouble Class = 6
	ClassSingle Class = 7
	ClassInt8   Class = 8
	ClassUint8  Class = 9
	ClassInt16  Class = 10
	ClassUint16 Class = 11
	ClassInt32  Class = 12
	ClassUint32 Class = 13
	ClassInt64  Class = 14
	ClassUint64 Class = 15
)

// Numeric reports whether the class stores numbers.
func (c Class) Numeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// Array is a decoded MATLAB array. All element slices are in column-major
// order, as stored in the file.
type Array struct {
	Name  string
	Class Class
	Dims  []int

	// numeric classes, converted to float64
	Real []float64
	Imag []float64

	// ClassCell
	Cells []*Array

	// ClassStruct: one entry per field, each holding Len() arrays
	FieldNames []string
	Fields     map[string][]*Array

	// ClassChar
	Text string
}

// Len is the number of elements, the product of the dimensions.
func (a *Array) Len() int {
	if len(a.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// Empty reports whether the array has no elements.
func (a *Array) Empty() bool {
	return a.Len() == 0
}

// At returns the real numeric value at the given subscripts.
func (a *Array) At(sub ...int) float64 {
	idx, stride := 0, 1
	for i, s := range sub {
		idx += s * stride
		stride *= a.Dims[i]
	}
	return a.Real[idx]
}

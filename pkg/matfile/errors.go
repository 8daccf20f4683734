package matfile

import "github.com/pkg/errors"

// ErrNotMAT is returned when the input does not carry a MAT v5 header.
var ErrNotMAT = errors.New("not a MAT v5 file")

// ErrCorrupt is returned when an element overruns its container.
var ErrCorrupt = errors.New("corrupt MAT data element")

// ErrUnsupported is returned for array classes this reader does not decode.
var ErrUnsupported = errors.New("unsupported MAT array class")

// ErrNoVariable is returned when a requested variable is not in the file.
var ErrNoVariable = errors.New("variable not found")

package dataset

import "github.com/pkg/errors"

// ErrUnknownCamera is returned when a configured camera is missing from a metadata file.
var ErrUnknownCamera = errors.New("unknown camera")

// ErrIndexOutOfRange is returned by Views for a frame outside the index.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrBadGroundTruth is returned when the ground truth MAT variable has an unexpected layout.
var ErrBadGroundTruth = errors.New("bad ground truth")

// ErrJointCount is returned when the configured joint count does not match the prediction layout.
var ErrJointCount = errors.New("unsupported joint count")

// ErrUnknownMode is returned by ParseMode for anything but a known split.
var ErrUnknownMode = errors.New("unknown dataset mode")

package camera

import "github.com/pkg/errors"

// ErrMissingField is returned when a calibration field needed for projection is absent.
var ErrMissingField = errors.New("calibration field missing")

// ErrBadShape is returned when a numeric array does not have the expected shape.
var ErrBadShape = errors.New("unexpected array shape")

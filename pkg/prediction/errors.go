package prediction

import "github.com/pkg/errors"

// ErrBadPose is returned when a predicted pose does not have 17 joints of at
// least four values (x, y, z, score).
var ErrBadPose = errors.New("malformed predicted pose")

// ErrUnsupportedDType is returned for numpy dtypes that do not hold numbers.
var ErrUnsupportedDType = errors.New("unsupported numpy dtype")

package eval

import "github.com/pkg/errors"

// ErrFrameCount is returned when the prediction list does not cover the frame list.
var ErrFrameCount = errors.New("prediction and frame counts differ")

// ErrFrameOutOfRange is returned when a frame has no slot in the ground truth table.
var ErrFrameOutOfRange = errors.New("frame outside ground truth")

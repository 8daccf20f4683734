package skeleton

import (
	"github.com/golang/geo/r3"
)

// CocoPose is a predicted skeleton in the 17 keypoint COCO layout.
type CocoPose struct {
	Joints [NumCocoJoints]r3.Vector
	Scores [NumCocoJoints]float64
}

// Valid reports whether the detector kept this pose. Padding entries carry a
// negative score on the first joint.
func (p CocoPose) Valid() bool {
	return p.Scores[Nose] >= 0
}

// ShelfPose is a skeleton in the 14 joint Shelf layout.
type ShelfPose [NumShelfJoints]r3.Vector

// Scale returns the pose with every coordinate multiplied by s.
func (p ShelfPose) Scale(s float64) ShelfPose {
	var out ShelfPose
	for i, j := range p {
		out[i] = j.Mul(s)
	}
	return out
}

// MPJPE is the mean per joint position error between p and q.
func (p ShelfPose) MPJPE(q ShelfPose) float64 {
	var sum float64
	for i := range p {
		sum += p[i].Distance(q[i])
	}
	return sum / NumShelfJoints
}

// HipCenter is the midpoint of both hips.
func (p ShelfPose) HipCenter() r3.Vector {
	return p[RightHip].Add(p[LeftHip]).Mul(0.5)
}

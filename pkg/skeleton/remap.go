package skeleton

import (
	"github.com/golang/geo/r3"
)

// headBlend weights the joint-based head estimate against the purely
// geometric one built from the shoulders and ears.
const headBlend = 0.75

// CocoToShelf converts a COCO pose into the Shelf layout. Shelf has no eyes or
// ears but has two head joints, which are interpolated from the nose, the
// shoulders and the ears.
func CocoToShelf(coco CocoPose) ShelfPose {
	var shelf ShelfPose
	for i, src := range cocoToShelf {
		shelf[i] = coco.Joints[src]
	}

	nose := coco.Joints[Nose]
	midShoulder := midpoint(coco.Joints[CocoLeftShoulder], coco.Joints[CocoRightShoulder])
	headCenter := midpoint(coco.Joints[LeftEar], coco.Joints[RightEar])

	headBottom := midpoint(midShoulder, headCenter)
	headTop := headBottom.Add(headCenter.Sub(headBottom).Mul(2))

	neck := midpoint(shelf[RightShoulder], shelf[LeftShoulder])
	head := neck.Add(scale(nose.Sub(neck), r3.Vector{X: 0.75, Y: 0.75, Z: 1.5}))
	neck = neck.Add(nose.Sub(neck).Mul(0.5))

	shelf[TopHead] = head.Mul(headBlend).Add(headTop.Mul(1 - headBlend))
	shelf[BottomHead] = neck.Mul(headBlend).Add(headBottom.Mul(1 - headBlend))

	return shelf
}

func midpoint(a, b r3.Vector) r3.Vector {
	return a.Add(b).Mul(0.5)
}

// scale multiplies v by s component-wise.
func scale(v, s r3.Vector) r3.Vector {
	return r3.Vector{X: v.X * s.X, Y: v.Y * s.Y, Z: v.Z * s.Z}
}

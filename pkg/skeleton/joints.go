package skeleton

// Shelf joint indices. The ground truth files of the benchmark use this order.
const (
	RightAnkle = iota
	RightKnee
	RightHip
	LeftHip
	LeftKnee
	LeftAnkle
	RightWrist
	RightElbow
	RightShoulder
	LeftShoulder
	LeftElbow
	LeftWrist
	BottomHead
	TopHead

	NumShelfJoints
)

// COCO keypoint indices, the layout of the pose estimator output.
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	CocoLeftShoulder
	CocoRightShoulder
	CocoLeftElbow
	CocoRightElbow
	CocoLeftWrist
	CocoRightWrist
	CocoLeftHip
	CocoRightHip
	CocoLeftKnee
	CocoRightKnee
	CocoLeftAnkle
	CocoRightAnkle

	NumCocoJoints
)

// ShelfJoints names the Shelf joints in index order.
var ShelfJoints = [NumShelfJoints]string{
	"Right-Ankle",
	"Right-Knee",
	"Right-Hip",
	"Left-Hip",
	"Left-Knee",
	"Left-Ankle",
	"Right-Wrist",
	"Right-Elbow",
	"Right-Shoulder",
	"Left-Shoulder",
	"Left-Elbow",
	"Left-Wrist",
	"Bottom-Head",
	"Top-Head",
}

// CocoJoints names the COCO keypoints in index order.
var CocoJoints = [NumCocoJoints]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// Limb is a skeletal segment between two joints of the same layout.
type Limb [2]int

// ShelfLimbs is the full Shelf skeleton, used for drawing and for projecting
// bones into camera views.
var ShelfLimbs = []Limb{
	{RightAnkle, RightKnee},
	{RightKnee, RightHip},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, LeftHip},
	{RightWrist, RightElbow},
	{RightElbow, RightShoulder},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightHip, RightShoulder},
	{LeftHip, LeftShoulder},
	{RightShoulder, BottomHead},
	{LeftShoulder, BottomHead},
	{BottomHead, TopHead},
}

// EvalLimbs is the reduced limb set scored by the PCP protocol. The torso limb
// (hip centre to bottom head) is synthesized by the evaluator and scored as
// bone index len(EvalLimbs).
var EvalLimbs = []Limb{
	{RightAnkle, RightKnee},
	{RightKnee, RightHip},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightWrist, RightElbow},
	{RightElbow, RightShoulder},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{BottomHead, TopHead},
}

// cocoToShelf maps Shelf joints 0..11 to their COCO source keypoint.
var cocoToShelf = [12]int{
	CocoRightAnkle,
	CocoRightKnee,
	CocoRightHip,
	CocoLeftHip,
	CocoLeftKnee,
	CocoLeftAnkle,
	CocoRightWrist,
	CocoRightElbow,
	CocoRightShoulder,
	CocoLeftShoulder,
	CocoLeftElbow,
	CocoLeftWrist,
}

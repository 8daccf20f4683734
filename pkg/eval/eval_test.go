package eval

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/instill-ai/shelf-eval/pkg/skeleton"
)

// standingPose is a COCO pose in metres, offset along x.
func standingPose(dx float64) skeleton.CocoPose {
	pts := map[int]r3.Vector{
		skeleton.Nose:              {X: 0.04, Y: 0, Z: 1.0},
		skeleton.LeftEye:           {X: 0.03, Y: 0.02, Z: 1.02},
		skeleton.RightEye:          {X: -0.03, Y: 0.02, Z: 1.02},
		skeleton.LeftEar:           {X: 0.1, Y: 0, Z: 0.9},
		skeleton.RightEar:          {X: -0.1, Y: 0, Z: 0.9},
		skeleton.CocoLeftShoulder:  {X: 0.2, Y: 0, Z: 0.6},
		skeleton.CocoRightShoulder: {X: -0.2, Y: 0, Z: 0.6},
		skeleton.CocoLeftElbow:     {X: 0.3, Y: 0, Z: 0.4},
		skeleton.CocoRightElbow:    {X: -0.3, Y: 0, Z: 0.4},
		skeleton.CocoLeftWrist:     {X: 0.3, Y: 0.1, Z: 0.2},
		skeleton.CocoRightWrist:    {X: -0.3, Y: 0.1, Z: 0.2},
		skeleton.CocoLeftHip:       {X: 0.1, Y: 0, Z: 0},
		skeleton.CocoRightHip:      {X: -0.1, Y: 0, Z: 0},
		skeleton.CocoLeftKnee:      {X: 0.1, Y: 0, Z: -0.4},
		skeleton.CocoRightKnee:     {X: -0.1, Y: 0, Z: -0.4},
		skeleton.CocoLeftAnkle:     {X: 0.1, Y: 0, Z: -0.8},
		skeleton.CocoRightAnkle:    {X: -0.1, Y: 0, Z: -0.8},
	}
	var p skeleton.CocoPose
	for j, v := range pts {
		p.Joints[j] = v.Add(r3.Vector{X: dx})
		p.Scores[j] = 1
	}
	return p
}

// inMillimetres is what the detector reports for a pose given in metres.
func inMillimetres(p skeleton.CocoPose) skeleton.CocoPose {
	for j := range p.Joints {
		p.Joints[j] = p.Joints[j].Mul(1000)
	}
	return p
}

func truthOf(p skeleton.CocoPose) *skeleton.ShelfPose {
	s := skeleton.CocoToShelf(p)
	return &s
}

func TestEvaluate_ExactPrediction(t *testing.T) {
	actor := standingPose(0)
	gt := ActorTable{{truthOf(actor)}}
	preds := [][]skeleton.CocoPose{{inMillimetres(actor)}}

	res, err := Evaluate(context.Background(), gt, []int{0}, preds, DefaultOptions())
	require.NoError(t, err)

	require.InDelta(t, 1.0, res.ActorPCP[0], 1e-6)
	require.InDelta(t, 1.0, res.AvgPCP, 1e-6)
	require.InDelta(t, 1.0, res.Recall, 1e-6)
	require.Equal(t, 1, res.MatchedGT)
	require.Equal(t, float64(numBones), res.CorrectParts[0])
	for _, g := range res.BonePCP {
		require.InDelta(t, 1.0, g.PerActor[0], 1e-6, g.Name)
	}
}

func TestEvaluate_TwoActorsTwoFrames(t *testing.T) {
	a0, a1 := standingPose(0), standingPose(5)

	// in frame 1 the detector misplaces actor 0's right wrist by one metre,
	// more than the 0.22 m forearm
	a0Off := inMillimetres(a0)
	a0Off.Joints[skeleton.CocoRightWrist] = a0Off.Joints[skeleton.CocoRightWrist].Add(r3.Vector{X: 1000})

	gt := ActorTable{
		{truthOf(a0), truthOf(a0)},
		{nil, truthOf(a1)},
	}
	preds := [][]skeleton.CocoPose{
		{inMillimetres(a0)},
		{inMillimetres(a1), a0Off},
	}

	var progress []int
	opts := DefaultOptions()
	opts.Progress = func(done, total int) {
		require.Equal(t, 2, total)
		progress = append(progress, done)
	}

	res, err := Evaluate(context.Background(), gt, []int{0, 1}, preds, opts)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, progress)

	require.Equal(t, []float64{19, 10}, res.CorrectParts)
	require.Equal(t, []float64{20, 10}, res.TotalParts)
	require.InDelta(t, 0.95, res.ActorPCP[0], 1e-6)
	require.InDelta(t, 1.0, res.ActorPCP[1], 1e-6)
	require.InDelta(t, 0.975, res.AvgPCP, 1e-6)

	// the misplaced wrist costs 1000/14 mm of MPJPE, still a detection
	require.Equal(t, 3, res.TotalGT)
	require.Equal(t, 3, res.MatchedGT)
	require.InDelta(t, 1.0, res.Recall, 1e-6)

	lower, ok := res.Bone("Lower arms")
	require.True(t, ok)
	require.InDelta(t, 0.75, lower[0], 1e-6)
	require.InDelta(t, 1.0, lower[1], 1e-6)

	head, _ := res.Bone("Head")
	require.InDelta(t, 1.0, head[0], 1e-6)

	_, ok = res.Bone("Tail")
	require.False(t, ok)
}

func TestEvaluate_EmptyGroundTruthIsSkipped(t *testing.T) {
	actor := standingPose(0)
	gt := ActorTable{
		{truthOf(actor)},
		{nil},
	}
	preds := [][]skeleton.CocoPose{{inMillimetres(actor)}}

	res, err := Evaluate(context.Background(), gt, []int{0}, preds, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, res.TotalGT)
	require.Equal(t, 0.0, res.TotalParts[1])
	require.Equal(t, 0.0, res.CorrectParts[1])
	require.Equal(t, 0.0, res.ActorPCP[1])
	require.False(t, math.IsNaN(res.ActorPCP[1]))
	// average over the two available actors
	require.InDelta(t, 0.5, res.AvgPCP, 1e-6)
	for _, g := range res.BonePCP {
		require.Equal(t, 0.0, g.PerActor[1])
	}
}

func TestEvaluate_NothingDetected(t *testing.T) {
	actor := standingPose(0)
	invalid := inMillimetres(actor)
	invalid.Scores[skeleton.Nose] = -1

	gt := ActorTable{{truthOf(actor)}}
	res, err := Evaluate(context.Background(), gt, []int{0}, [][]skeleton.CocoPose{{invalid}}, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, res.TotalGT)
	require.Equal(t, 0, res.MatchedGT)
	require.Equal(t, float64(numBones), res.TotalParts[0])
	require.Equal(t, 0.0, res.ActorPCP[0])
	require.InDelta(t, 0.0, res.Recall, 1e-9)
}

func TestEvaluate_RecallThreshold(t *testing.T) {
	actor := standingPose(0)
	shifted := inMillimetres(standingPose(0.6))

	gt := ActorTable{{truthOf(actor)}}
	opts := DefaultOptions()

	res, err := Evaluate(context.Background(), gt, []int{0}, [][]skeleton.CocoPose{{shifted}}, opts)
	require.NoError(t, err)
	require.Equal(t, 0, res.MatchedGT)

	opts.RecallThreshold = 700
	res, err = Evaluate(context.Background(), gt, []int{0}, [][]skeleton.CocoPose{{shifted}}, opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.MatchedGT)
}

func TestEvaluate_Errors(t *testing.T) {
	actor := standingPose(0)
	gt := ActorTable{{truthOf(actor)}}

	_, err := Evaluate(context.Background(), gt, []int{0, 1}, [][]skeleton.CocoPose{{}}, DefaultOptions())
	require.True(t, errors.Is(err, ErrFrameCount))

	_, err = Evaluate(context.Background(), gt, []int{3}, [][]skeleton.CocoPose{{}}, DefaultOptions())
	require.True(t, errors.Is(err, ErrFrameOutOfRange))
}

func TestActorTable_NumFrames(t *testing.T) {
	require.Equal(t, 0, ActorTable{}.NumFrames())
	require.Equal(t, 3, ActorTable{make([]*skeleton.ShelfPose, 2), make([]*skeleton.ShelfPose, 3)}.NumFrames())
}

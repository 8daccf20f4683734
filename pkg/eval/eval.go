package eval

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/instill-ai/shelf-eval/pkg/skeleton"
)

// eps keeps ratios finite when nothing was counted.
const eps = 1e-8

// numBones is the number of scored limbs per actor and frame: the evaluation
// limbs plus the synthesized hip to head limb.
var numBones = len(skeleton.EvalLimbs) + 1

var torsoBone = len(skeleton.EvalLimbs)

// ActorTable holds ground truth poses by actor, then by absolute frame index.
// A nil entry marks a frame where the actor is not annotated.
type ActorTable [][]*skeleton.ShelfPose

// NumFrames is the length of the longest actor track.
func (t ActorTable) NumFrames() int {
	n := 0
	for _, frames := range t {
		if len(frames) > n {
			n = len(frames)
		}
	}
	return n
}

// Options tune the PCP protocol.
type Options struct {
	// RecallThreshold is the largest MPJPE, in millimetres, that counts as a detection.
	RecallThreshold float64
	// Alpha scales the ground truth limb length into the error tolerance.
	Alpha float64
	// NumScoredActors is how many leading actors enter the average PCP.
	NumScoredActors int
	// GTScale converts ground truth units into prediction units.
	GTScale float64
	// Progress, when set, is called after each frame.
	Progress func(done, total int)
}

// DefaultOptions is the published Shelf protocol.
func DefaultOptions() Options {
	return Options{
		RecallThreshold: 500,
		Alpha:           0.5,
		NumScoredActors: 3,
		GTScale:         1000,
	}
}

// BoneGroup names a set of scored bone indices.
type BoneGroup struct {
	Name  string
	Bones []int
}

// BoneGroups are reported in this order.
var BoneGroups = []BoneGroup{
	{Name: "Head", Bones: []int{8}},
	{Name: "Torso", Bones: []int{9}},
	{Name: "Upper arms", Bones: []int{5, 6}},
	{Name: "Lower arms", Bones: []int{4, 7}},
	{Name: "Upper legs", Bones: []int{1, 2}},
	{Name: "Lower legs", Bones: []int{0, 3}},
}

// GroupPCP is the per actor PCP of one bone group.
type GroupPCP struct {
	Name     string
	PerActor []float64
}

// Result is the outcome of an evaluation.
type Result struct {
	ActorPCP []float64
	AvgPCP   float64
	BonePCP  []GroupPCP
	Recall   float64

	CorrectParts []float64
	TotalParts   []float64
	MatchedGT    int
	TotalGT      int
}

// Bone returns the per actor PCP of the named group.
func (r *Result) Bone(name string) ([]float64, bool) {
	for _, g := range r.BonePCP {
		if g.Name == name {
			return g.PerActor, true
		}
	}
	return nil, false
}

// Evaluate scores predictions against ground truth. preds[i] holds the
// detected poses of frames[i]. Every annotated actor is matched to the
// predicted pose with the lowest MPJPE; a pose may serve several actors.
func Evaluate(ctx context.Context, gt ActorTable, frames []int, preds [][]skeleton.CocoPose, opts Options) (*Result, error) {
	_, span := otel.Tracer("github.com/instill-ai/shelf-eval/pkg/eval").Start(ctx, "Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("frames", len(frames)),
		attribute.Int("actors", len(gt)),
	)

	if len(preds) != len(frames) {
		return nil, errors.Wrapf(ErrFrameCount, "%d predictions for %d frames", len(preds), len(frames))
	}

	numPerson := len(gt)
	correctParts := make([]float64, numPerson)
	totalParts := make([]float64, numPerson)
	boneCorrect := make([][]float64, numPerson)
	for i := range boneCorrect {
		boneCorrect[i] = make([]float64, numBones)
	}
	matchedGT, totalGT := 0, 0

	for i, fi := range frames {
		var poses []skeleton.ShelfPose
		for _, p := range preds[i] {
			if p.Valid() {
				poses = append(poses, skeleton.CocoToShelf(p))
			}
		}

		for person := 0; person < numPerson; person++ {
			if fi < 0 || fi >= len(gt[person]) {
				return nil, errors.Wrapf(ErrFrameOutOfRange, "frame %d of actor %d", fi, person)
			}
			if gt[person][fi] == nil {
				continue
			}
			truth := gt[person][fi].Scale(opts.GTScale)
			totalGT++

			best, bestErr := nearest(truth, poses)
			if best == nil {
				// nothing detected: the actor is missed and all its limbs are wrong
				totalParts[person] += float64(numBones)
				continue
			}
			if bestErr < opts.RecallThreshold {
				matchedGT++
			}

			for j, limb := range skeleton.EvalLimbs {
				totalParts[person]++
				errStart := best[limb[0]].Distance(truth[limb[0]])
				errEnd := best[limb[1]].Distance(truth[limb[1]])
				length := truth[limb[0]].Distance(truth[limb[1]])
				if (errStart+errEnd)/2 <= opts.Alpha*length {
					correctParts[person]++
					boneCorrect[person][j]++
				}
			}

			predHip, gtHip := best.HipCenter(), truth.HipCenter()
			totalParts[person]++
			errStart := predHip.Distance(gtHip)
			errEnd := best[skeleton.BottomHead].Distance(truth[skeleton.BottomHead])
			length := gtHip.Distance(truth[skeleton.BottomHead])
			if (errStart+errEnd)/2 <= opts.Alpha*length {
				correctParts[person]++
				boneCorrect[person][torsoBone]++
			}
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(frames))
		}
	}

	res := &Result{
		ActorPCP:     make([]float64, numPerson),
		CorrectParts: correctParts,
		TotalParts:   totalParts,
		MatchedGT:    matchedGT,
		TotalGT:      totalGT,
		Recall:       float64(matchedGT) / (float64(totalGT) + eps),
	}
	for a := range res.ActorPCP {
		res.ActorPCP[a] = correctParts[a] / (totalParts[a] + eps)
	}

	scored := opts.NumScoredActors
	if scored > numPerson {
		scored = numPerson
	}
	if scored > 0 {
		var sum float64
		for _, v := range res.ActorPCP[:scored] {
			sum += v
		}
		res.AvgPCP = sum / float64(scored)
	}

	for _, g := range BoneGroups {
		perActor := make([]float64, numPerson)
		for a := range perActor {
			var sum float64
			for _, b := range g.Bones {
				sum += boneCorrect[a][b]
			}
			perActor[a] = sum / (totalParts[a]/float64(numBones)*float64(len(g.Bones)) + eps)
		}
		res.BonePCP = append(res.BonePCP, GroupPCP{Name: g.Name, PerActor: perActor})
	}

	span.SetAttributes(
		attribute.Float64("avg_pcp", res.AvgPCP),
		attribute.Float64("recall", res.Recall),
	)
	return res, nil
}

// nearest returns the pose with the lowest MPJPE to truth, first wins ties.
func nearest(truth skeleton.ShelfPose, poses []skeleton.ShelfPose) (*skeleton.ShelfPose, float64) {
	var best *skeleton.ShelfPose
	bestErr := math.Inf(1)
	for i := range poses {
		if e := poses[i].MPJPE(truth); e < bestErr {
			best, bestErr = &poses[i], e
		}
	}
	return best, bestErr
}

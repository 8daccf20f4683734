package dataset

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/instill-ai/shelf-eval/pkg/eval"
	"github.com/instill-ai/shelf-eval/pkg/matfile"
	"github.com/instill-ai/shelf-eval/pkg/skeleton"
)

// LoadActors reads the ground truth cell array named variable from the MAT
// file at path. The nested cells are flattened to one track per actor; each
// track element is a 14x3 pose in metres or an empty matrix.
func LoadActors(path, variable string) (eval.ActorTable, error) {
	arr, err := matfile.ReadVariable(path, variable)
	if err != nil {
		return nil, errors.Wrap(err, "load ground truth")
	}
	return ActorsFromArray(arr)
}

// ActorsFromArray converts a decoded ground truth cell array.
func ActorsFromArray(arr *matfile.Array) (eval.ActorTable, error) {
	if arr.Class != matfile.ClassCell {
		return nil, errors.Wrapf(ErrBadGroundTruth, "%s is not a cell array", arr.Name)
	}

	var tracks []*matfile.Array
	collectTracks(arr, &tracks)

	table := make(eval.ActorTable, len(tracks))
	for a, track := range tracks {
		table[a] = make([]*skeleton.ShelfPose, len(track.Cells))
		for f, cell := range track.Cells {
			if cell == nil || cell.Empty() {
				continue
			}
			pose, err := toShelfPose(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "actor %d frame %d", a, f)
			}
			table[a][f] = pose
		}
	}
	return table, nil
}

// collectTracks walks cells in storage order and keeps the innermost ones,
// those holding no further non-empty cells.
func collectTracks(arr *matfile.Array, tracks *[]*matfile.Array) {
	leaf := true
	for _, c := range arr.Cells {
		if c != nil && c.Class == matfile.ClassCell && !c.Empty() {
			leaf = false
			break
		}
	}
	if leaf {
		*tracks = append(*tracks, arr)
		return
	}
	for _, c := range arr.Cells {
		if c != nil && c.Class == matfile.ClassCell {
			collectTracks(c, tracks)
		}
	}
}

func toShelfPose(arr *matfile.Array) (*skeleton.ShelfPose, error) {
	if !arr.Class.Numeric() {
		return nil, errors.Wrapf(ErrBadGroundTruth, "class %d is not numeric", arr.Class)
	}
	if len(arr.Dims) != 2 || arr.Dims[0] != skeleton.NumShelfJoints || arr.Dims[1] != 3 {
		return nil, errors.Wrapf(ErrBadGroundTruth, "pose has dims %v, want [%d 3]", arr.Dims, skeleton.NumShelfJoints)
	}
	var pose skeleton.ShelfPose
	for j := range pose {
		pose[j] = r3.Vector{X: arr.At(j, 0), Y: arr.At(j, 1), Z: arr.At(j, 2)}
	}
	return &pose, nil
}

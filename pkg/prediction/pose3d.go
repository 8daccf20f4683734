package prediction

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/instill-ai/shelf-eval/pkg/skeleton"
)

// LoadPose3D reads the 3D predictions to evaluate: one entry per frame, each
// a list of persons of 17 joints given as [x, y, z, score].
func LoadPose3D(path string) ([][]skeleton.CocoPose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	var raw [][][][]float64
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	frames := make([][]skeleton.CocoPose, len(raw))
	for i, persons := range raw {
		frames[i] = make([]skeleton.CocoPose, len(persons))
		for p, joints := range persons {
			pose, err := ToCocoPose(joints)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d person %d", i, p)
			}
			frames[i][p] = pose
		}
	}
	return frames, nil
}

// ToCocoPose converts 17 rows of [x, y, z, score] into a pose.
func ToCocoPose(joints [][]float64) (skeleton.CocoPose, error) {
	var pose skeleton.CocoPose
	if len(joints) != skeleton.NumCocoJoints {
		return pose, errors.Wrapf(ErrBadPose, "%d joints", len(joints))
	}
	for j, v := range joints {
		if len(v) < 4 {
			return pose, errors.Wrapf(ErrBadPose, "joint %d has %d values", j, len(v))
		}
		pose.Joints[j] = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
		pose.Scores[j] = v[3]
	}
	return pose, nil
}

package prediction

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/instill-ai/shelf-eval/pkg/skeleton"
)

func joints(score float64) [][]float64 {
	out := make([][]float64, skeleton.NumCocoJoints)
	for j := range out {
		out[j] = []float64{float64(j), float64(2 * j), float64(3 * j), score}
	}
	return out
}

func TestLoadPose3D(t *testing.T) {
	frames := [][][][]float64{
		{joints(0.9), joints(-1)},
		{},
	}
	data, err := json.Marshal(frames)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pred3d.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := LoadPose3D(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0], 2)
	require.Empty(t, got[1])

	require.True(t, got[0][0].Valid())
	require.False(t, got[0][1].Valid())
	require.Equal(t, 5.0, got[0][0].Joints[5].X)
	require.Equal(t, 10.0, got[0][0].Joints[5].Y)
	require.Equal(t, 15.0, got[0][0].Joints[5].Z)
}

func TestToCocoPose_Errors(t *testing.T) {
	_, err := ToCocoPose(joints(1)[:16])
	require.ErrorIs(t, err, ErrBadPose)

	short := joints(1)
	short[3] = []float64{1, 2, 3}
	_, err = ToCocoPose(short)
	require.ErrorIs(t, err, ErrBadPose)
}

func TestLoadPose3D_Errors(t *testing.T) {
	_, err := LoadPose3D(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "pred3d.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[[[1, 2, 3, 4]]]]`), 0o600))
	_, err = LoadPose3D(path)
	require.ErrorIs(t, err, ErrBadPose)
}

package camera

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Camera holds the calibration fields of one view, keyed by field name.
// Scalars decode to 1x1 matrices and flat lists to row vectors.
type Camera map[string]*mat.Dense

// Field returns the named calibration field.
func (c Camera) Field(name string) (*mat.Dense, error) {
	m, ok := c[name]
	if !ok {
		return nil, errors.Wrap(ErrMissingField, name)
	}
	return m, nil
}

func (c Camera) scalar(name string) (float64, error) {
	m, err := c.Field(name)
	if err != nil {
		return 0, err
	}
	return m.At(0, 0), nil
}

// vector returns the named field flattened in row-major order.
func (c Camera) vector(name string, n int) ([]float64, error) {
	m, err := c.Field(name)
	if err != nil {
		return nil, err
	}
	r, cols := m.Dims()
	if r*cols < n {
		return nil, errors.Wrapf(ErrBadShape, "%s has %d values, need %d", name, r*cols, n)
	}
	out := make([]float64, 0, r*cols)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out[:n], nil
}

// Project maps a world point to pixel coordinates with the pinhole model and
// the radial (k) and tangential (p) distortion terms when present.
func (c Camera) Project(x r3.Vector) (u, v float64, err error) {
	R, err := c.Field("R")
	if err != nil {
		return 0, 0, err
	}
	if r, cols := R.Dims(); r != 3 || cols != 3 {
		return 0, 0, errors.Wrapf(ErrBadShape, "R is %dx%d", r, cols)
	}
	T, err := c.vector("T", 3)
	if err != nil {
		return 0, 0, err
	}
	var intr [4]float64
	for i, name := range []string{"fx", "fy", "cx", "cy"} {
		if intr[i], err = c.scalar(name); err != nil {
			return 0, 0, err
		}
	}

	var cam mat.VecDense
	cam.MulVec(R, mat.NewVecDense(3, []float64{x.X - T[0], x.Y - T[1], x.Z - T[2]}))
	yx, yy := cam.AtVec(0)/cam.AtVec(2), cam.AtVec(1)/cam.AtVec(2)

	if k, kerr := c.vector("k", 3); kerr == nil {
		if p, perr := c.vector("p", 2); perr == nil {
			r2 := yx*yx + yy*yy
			radial := 1 + k[0]*r2 + k[1]*r2*r2 + k[2]*r2*r2*r2
			tan := p[0]*yy + p[1]*yx
			yx, yy = yx*(radial+tan)+p[1]*r2, yy*(radial+tan)+p[0]*r2
		}
	}

	return intr[0]*yx + intr[2], intr[1]*yy + intr[3], nil
}

// ProjectWith maps a world point to pixel coordinates with a 3x4 projection
// matrix.
func ProjectWith(P mat.Matrix, x r3.Vector) (u, v float64, err error) {
	if r, cols := P.Dims(); r != 3 || cols != 4 {
		return 0, 0, errors.Wrapf(ErrBadShape, "projection is %dx%d", r, cols)
	}
	var h mat.VecDense
	h.MulVec(P, mat.NewVecDense(4, []float64{x.X, x.Y, x.Z, 1}))
	return h.AtVec(0) / h.AtVec(2), h.AtVec(1) / h.AtVec(2), nil
}

// LoadCalibration reads the per camera calibration file.
func LoadCalibration(path string) (map[string]Camera, error) {
	var raw map[string]map[string]any
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}

	cameras := make(map[string]Camera, len(raw))
	for id, fields := range raw {
		cam := make(Camera, len(fields))
		for name, v := range fields {
			m, err := toDense(v)
			if err != nil {
				return nil, errors.Wrapf(err, "camera %s field %s", id, name)
			}
			cam[name] = m
		}
		cameras[id] = cam
	}
	return cameras, nil
}

// LoadProjections reads the per camera 3x4 projection matrices.
func LoadProjections(path string) (map[string]*mat.Dense, error) {
	var raw map[string]any
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}

	projs := make(map[string]*mat.Dense, len(raw))
	for id, v := range raw {
		m, err := toDense(v)
		if err != nil {
			return nil, errors.Wrapf(err, "projection of camera %s", id)
		}
		if r, c := m.Dims(); r != 3 || c != 4 {
			return nil, errors.Wrapf(ErrBadShape, "projection of camera %s is %dx%d", id, r, c)
		}
		projs[id] = m
	}
	return projs, nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

// toDense converts a decoded JSON number, list or list of lists.
func toDense(v any) (*mat.Dense, error) {
	switch t := v.(type) {
	case float64:
		return mat.NewDense(1, 1, []float64{t}), nil
	case []any:
		if len(t) == 0 {
			return nil, errors.Wrap(ErrBadShape, "empty array")
		}
		if _, nested := t[0].([]any); !nested {
			row, err := toFloats(t)
			if err != nil {
				return nil, err
			}
			return mat.NewDense(1, len(row), row), nil
		}
		var data []float64
		cols := -1
		for _, r := range t {
			list, ok := r.([]any)
			if !ok {
				return nil, errors.Wrap(ErrBadShape, "mixed scalars and rows")
			}
			row, err := toFloats(list)
			if err != nil {
				return nil, err
			}
			if cols >= 0 && len(row) != cols {
				return nil, errors.Wrapf(ErrBadShape, "ragged rows of %d and %d", cols, len(row))
			}
			cols = len(row)
			data = append(data, row...)
		}
		if cols == 0 {
			return nil, errors.Wrap(ErrBadShape, "empty rows")
		}
		return mat.NewDense(len(t), cols, data), nil
	default:
		return nil, errors.Wrapf(ErrBadShape, "unsupported value %T", v)
	}
}

func toFloats(list []any) ([]float64, error) {
	out := make([]float64, len(list))
	for i, e := range list {
		f, ok := e.(float64)
		if !ok {
			return nil, errors.Wrapf(ErrBadShape, "element %d is %T", i, e)
		}
		out[i] = f
	}
	return out, nil
}

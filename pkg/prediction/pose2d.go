package prediction

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/pkg/errors"

	"github.com/instill-ai/shelf-eval/pkg/utils"
)

// Pose2DSet holds the 2D detector output shipped with the dataset, keyed by
// image path.
type Pose2DSet struct {
	Entries map[string]any
}

// Len is the number of images with predictions.
func (s *Pose2DSet) Len() int {
	return len(s.Entries)
}

// Images returns the image keys in lexical order.
func (s *Pose2DSet) Images() []string {
	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keypoints returns every array stored under image whose trailing axes look
// like a keypoint list of numJoints rows of at least x and y.
func (s *Pose2DSet) Keypoints(image string, numJoints int) []*NDArray {
	var out []*NDArray
	walk(s.Entries[image], func(a *NDArray) {
		n := len(a.Shape)
		if n >= 2 && a.Shape[n-2] == numJoints && a.Shape[n-1] >= 2 {
			out = append(out, a)
		}
	})
	return out
}

// LoadPose2D reads the pickled 2D predictions.
func LoadPose2D(ctx context.Context, path string) (*Pose2DSet, error) {
	v, err := LoadPickle(ctx, path)
	if err != nil {
		return nil, err
	}
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Errorf("%s holds %T, want a dict", path, v)
	}
	return &Pose2DSet{Entries: entries}, nil
}

// LoadPickle decodes a Python pickle into native Go values: dicts become
// map[string]any, lists and tuples []any, numpy arrays *NDArray.
func LoadPickle(ctx context.Context, path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	u := pickle.NewUnpickler(bufio.NewReader(utils.NewProgressReader(ctx, f, path)))
	u.FindClass = findClass
	v, err := u.Load()
	if err != nil {
		return nil, errors.Wrapf(err, "unpickle %s", path)
	}
	return native(v), nil
}

func findClass(module, name string) (any, error) {
	switch module + "." + name {
	case "numpy.core.multiarray._reconstruct", "numpy._core.multiarray._reconstruct":
		return reconstructClass{}, nil
	case "numpy.core.multiarray.scalar", "numpy._core.multiarray.scalar":
		return scalarClass{}, nil
	case "numpy.ndarray":
		return ndarrayClass{}, nil
	case "numpy.dtype":
		return dtypeClass{}, nil
	case "_codecs.encode":
		return latin1Encoder{}, nil
	}
	return &PyClass{Module: module, Name: name}, nil
}

// PyClass is a Python class this package has no decoder for. Instances keep
// their constructor arguments and pickled state.
type PyClass struct {
	Module string
	Name   string
}

// Call builds an instance, as done by REDUCE.
func (c *PyClass) Call(args ...any) (any, error) {
	return &PyObject{Class: c, Args: args}, nil
}

// PyNew builds an instance, as done by NEWOBJ.
func (c *PyClass) PyNew(args ...any) (any, error) {
	return &PyObject{Class: c, Args: args}, nil
}

// PyObject is an instance of a PyClass.
type PyObject struct {
	Class *PyClass
	Args  []any
	State any
}

// PySetState stores the BUILD state.
func (o *PyObject) PySetState(state any) error {
	o.State = native(state)
	return nil
}

// the unpickler containers are matched by behaviour
type indexed interface {
	Len() int
	Get(i int) any
}

type keyed interface {
	Keys() []any
	Get(key any) (any, bool)
}

func native(v any) any {
	switch t := v.(type) {
	case *NDArray:
		return t
	case keyed:
		out := make(map[string]any, len(t.Keys()))
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out[fmt.Sprint(k)] = native(val)
		}
		return out
	case indexed:
		out := make([]any, t.Len())
		for i := range out {
			out[i] = native(t.Get(i))
		}
		return out
	}
	if items, ok := anySlice(v); ok {
		out := make([]any, len(items))
		for i, e := range items {
			out[i] = native(e)
		}
		return out
	}
	if entries, ok := dictEntries(v); ok {
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			out[fmt.Sprint(e[0])] = native(e[1])
		}
		return out
	}
	return v
}

// anySlice reads tuples and lists stored as named []any types.
func anySlice(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Interface {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// dictEntries reads dicts stored as a slice of {Key, Value} entries.
func dictEntries(v any) ([][2]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	et := rv.Type().Elem()
	if et.Kind() == reflect.Ptr {
		et = et.Elem()
	}
	if et.Kind() != reflect.Struct {
		return nil, false
	}
	if _, ok := et.FieldByName("Key"); !ok {
		return nil, false
	}
	if _, ok := et.FieldByName("Value"); !ok {
		return nil, false
	}
	out := make([][2]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := reflect.Indirect(rv.Index(i))
		if !e.IsValid() {
			continue
		}
		out = append(out, [2]any{e.FieldByName("Key").Interface(), e.FieldByName("Value").Interface()})
	}
	return out, true
}

// sequence unwraps tuples and lists, native or not.
func sequence(v any) ([]any, bool) {
	switch t := native(v).(type) {
	case []any:
		return t, true
	}
	return nil, false
}

func walk(v any, fn func(*NDArray)) {
	switch t := v.(type) {
	case *NDArray:
		fn(t)
		for _, o := range t.Objects {
			walk(o, fn)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			walk(t[k], fn)
		}
	case []any:
		for _, e := range t {
			walk(e, fn)
		}
	case *PyObject:
		walk(t.State, fn)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

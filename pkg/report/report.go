package report

import (
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"

	"github.com/instill-ai/shelf-eval/pkg/eval"
	"github.com/instill-ai/shelf-eval/pkg/matfile"
	"github.com/instill-ai/shelf-eval/pkg/utils"
)

// BoneGroup is the PCP of one bone group for every actor.
type BoneGroup struct {
	Name     string    `yaml:"name"`
	Key      string    `yaml:"key"`
	PerActor []float64 `yaml:"per_actor"`
	Average  float64   `yaml:"average"`
}

// Report is the serialisable outcome of one evaluation run.
type Report struct {
	ID          string         `yaml:"id"`
	CreatedAt   time.Time      `yaml:"created_at"`
	Meta        map[string]any `yaml:"meta,omitempty"`
	ScoredActor int            `yaml:"scored_actors"`

	ActorPCP []float64   `yaml:"actor_pcp"`
	AvgPCP   float64     `yaml:"avg_pcp"`
	Recall   float64     `yaml:"recall"`
	Matched  int         `yaml:"matched_gt"`
	Total    int         `yaml:"total_gt"`
	Bones    []BoneGroup `yaml:"bone_pcp"`
}

// New summarises result. Bone group averages are taken over the first
// scored actors; meta keys are stored in snake_case.
func New(result *eval.Result, scored int, meta map[string]any) (*Report, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "generate report id")
	}
	if scored > len(result.ActorPCP) {
		scored = len(result.ActorPCP)
	}

	utils.ConvertAllKeySnakeCase(meta)

	r := &Report{
		ID:          id.String(),
		CreatedAt:   time.Now().UTC(),
		Meta:        meta,
		ScoredActor: scored,
		ActorPCP:    result.ActorPCP,
		AvgPCP:      result.AvgPCP,
		Recall:      result.Recall,
		Matched:     result.MatchedGT,
		Total:       result.TotalGT,
	}
	for _, g := range result.BonePCP {
		b := BoneGroup{
			Name:     g.Name,
			Key:      strcase.ToSnake(g.Name),
			PerActor: g.PerActor,
		}
		if scored > 0 {
			for _, v := range g.PerActor[:scored] {
				b.Average += v
			}
			b.Average /= float64(scored)
		}
		r.Bones = append(r.Bones, b)
	}
	return r, nil
}

// Bone returns the group stored under the snake_case key.
func (r *Report) Bone(key string) (BoneGroup, bool) {
	for _, b := range r.Bones {
		if b.Key == key {
			return b, true
		}
	}
	return BoneGroup{}, false
}

// Marshal renders the report document.
func (r *Report) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteYAML stores the report at path.
func (r *Report) WriteYAML(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	if err := utils.WriteFile(path, data); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// MATVariable is the name of the struct WriteMAT stores.
const MATVariable = "shelf_eval"

// MAT returns the report as a 1x1 MATLAB struct with the fields actor_pcp,
// avg_pcp, recall and one field per bone group key.
func (r *Report) MAT() *matfile.Array {
	row := func(v ...float64) *matfile.Array {
		return &matfile.Array{Class: matfile.ClassDouble, Dims: []int{1, len(v)}, Real: append([]float64(nil), v...)}
	}
	st := &matfile.Array{
		Name:       MATVariable,
		Class:      matfile.ClassStruct,
		Dims:       []int{1, 1},
		FieldNames: []string{"id", "actor_pcp", "avg_pcp", "recall"},
		Fields: map[string][]*matfile.Array{
			"id":        {{Class: matfile.ClassChar, Dims: []int{1, len(r.ID)}, Text: r.ID}},
			"actor_pcp": {row(r.ActorPCP...)},
			"avg_pcp":   {row(r.AvgPCP)},
			"recall":    {row(r.Recall)},
		},
	}
	for _, b := range r.Bones {
		st.FieldNames = append(st.FieldNames, b.Key)
		st.Fields[b.Key] = []*matfile.Array{row(b.PerActor...)}
	}
	return st
}

// WriteMAT stores the report as a compressed MAT file for MATLAB tooling.
func (r *Report) WriteMAT(path string) error {
	if err := utils.ValidateFilePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := matfile.Encode(f, true, r.MAT()); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}

// Load reads a report written by WriteYAML.
func Load(data []byte) (*Report, error) {
	r := &Report{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, "unmarshal report")
	}
	return r, nil
}

// WriteChart draws the averaged bone group PCP as a bar chart. The image
// format follows the extension of path.
func (r *Report) WriteChart(path string) error {
	if len(r.Bones) == 0 {
		return errors.New("report has no bone groups")
	}
	if err := utils.ValidateFilePath(path); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "PCP per bone group"
	p.Y.Label.Text = "PCP"
	p.Y.Min, p.Y.Max = 0, 1

	values := make(plotter.Values, len(r.Bones))
	names := make([]string, len(r.Bones))
	for i, b := range r.Bones {
		values[i] = b.Average
		names[i] = b.Name
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}

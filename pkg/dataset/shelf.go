package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/instill-ai/shelf-eval/config"
	"github.com/instill-ai/shelf-eval/pkg/camera"
	"github.com/instill-ai/shelf-eval/pkg/constant"
	"github.com/instill-ai/shelf-eval/pkg/eval"
	custom_logger "github.com/instill-ai/shelf-eval/pkg/logger"
	"github.com/instill-ai/shelf-eval/pkg/prediction"
	"github.com/instill-ai/shelf-eval/pkg/skeleton"
)

var tracer = otel.Tracer("shelf-eval.dataset")

// Mode selects the dataset split.
type Mode string

// Dataset splits
const (
	ModeTrain    Mode = "train"
	ModeValidate Mode = "validate"
	ModeTest     Mode = "test"
)

// ParseMode returns the split named s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTrain, ModeValidate, ModeTest:
		return m, nil
	}
	return "", errors.Wrapf(ErrUnknownMode, "%q, want train, validate or test", s)
}

// Sample is one camera view of one frame.
type Sample struct {
	Frame    int
	CameraID string
	Image    string
	Proj     *mat.Dense
	Camera   camera.Camera
}

// Shelf is the sample index of the Shelf campus dataset.
type Shelf struct {
	root       string
	gtVariable string
	mode       Mode
	numJoints  int
	cameras    []string
	frames     []int
	db         []Sample
	pose2D     *prediction.Pose2DSet
}

// NewShelf builds the index for cfg: one Sample per frame and camera, frames
// in order and cameras in configured order within a frame.
func NewShelf(ctx context.Context, cfg config.DatasetConfig, mode Mode) (*Shelf, error) {
	ctx, span := tracer.Start(ctx, "NewShelf")
	defer span.End()

	logger, _ := custom_logger.GetZapLogger(ctx)

	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if cfg.FrameEnd < cfg.FrameStart {
		return nil, errors.Errorf("frame range [%d, %d] is empty", cfg.FrameStart, cfg.FrameEnd)
	}
	if len(cfg.Cameras) == 0 {
		return nil, errors.New("no cameras configured")
	}
	if cfg.NumJoints != skeleton.NumCocoJoints {
		return nil, errors.Wrapf(ErrJointCount, "%d configured, predictions use the %d COCO keypoints", cfg.NumJoints, skeleton.NumCocoJoints)
	}

	s := &Shelf{
		root:       cfg.Root,
		gtVariable: cfg.GTVariable,
		mode:       mode,
		numJoints:  cfg.NumJoints,
		cameras:    append([]string(nil), cfg.Cameras...),
	}
	for f := cfg.FrameStart; f <= cfg.FrameEnd; f++ {
		s.frames = append(s.frames, f)
	}

	if mode != ModeTest {
		path := filepath.Join(cfg.Root, constant.Pose2DFile)
		pose2D, err := prediction.LoadPose2D(ctx, path)
		if err != nil {
			return nil, errors.Wrapf(err, "load 2D predictions %s", path)
		}
		s.pose2D = pose2D
		logger.Info("loaded 2D predictions", zap.String("path", path), zap.Int("images", pose2D.Len()))
	}

	if err := s.build(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("mode", string(mode)),
		attribute.Int("frames", len(s.frames)),
		attribute.Int("views", len(s.cameras)),
	)
	logger.Info("built Shelf index",
		zap.String("root", cfg.Root),
		zap.String("mode", string(mode)),
		zap.Int("frames", len(s.frames)),
		zap.Int("samples", len(s.db)))

	return s, nil
}

func (s *Shelf) build() error {
	calibration, err := camera.LoadCalibration(filepath.Join(s.root, constant.CalibrationFile))
	if err != nil {
		return errors.Wrap(err, "load calibration")
	}
	projections, err := camera.LoadProjections(filepath.Join(s.root, constant.ProjectionFile))
	if err != nil {
		return errors.Wrap(err, "load projections")
	}

	for _, id := range s.cameras {
		if _, ok := projections[id]; !ok {
			return errors.Wrapf(ErrUnknownCamera, "%q not in %s", id, constant.ProjectionFile)
		}
		if _, ok := calibration[id]; !ok {
			return errors.Wrapf(ErrUnknownCamera, "%q not in %s", id, constant.CalibrationFile)
		}
	}

	s.db = make([]Sample, 0, len(s.frames)*len(s.cameras))
	for _, frame := range s.frames {
		for _, id := range s.cameras {
			s.db = append(s.db, Sample{
				Frame:    frame,
				CameraID: id,
				Image:    ImagePath(s.root, id, frame),
				Proj:     projections[id],
				Camera:   calibration[id],
			})
		}
	}
	return nil
}

// ImagePath is where the image of frame from camera id lives below root.
func ImagePath(root, id string, frame int) string {
	return filepath.Join(root, constant.CameraDirPrefix+id, fmt.Sprintf(constant.ImageNameFormat, frame))
}

// Len is the number of frames in the index.
func (s *Shelf) Len() int {
	return len(s.db) / len(s.cameras)
}

// DBSize is the number of samples in the index.
func (s *Shelf) DBSize() int {
	return len(s.db)
}

// NumViews is the number of cameras per frame.
func (s *Shelf) NumViews() int {
	return len(s.cameras)
}

// Mode returns the split the index was built for.
func (s *Shelf) Mode() Mode {
	return s.mode
}

// Frames returns the absolute frame numbers in index order.
func (s *Shelf) Frames() []int {
	return append([]int(nil), s.frames...)
}

// Sample returns the i-th sample of the flat index.
func (s *Shelf) Sample(i int) (Sample, error) {
	if i < 0 || i >= len(s.db) {
		return Sample{}, errors.Wrapf(ErrIndexOutOfRange, "sample %d of %d", i, len(s.db))
	}
	return s.db[i], nil
}

// Views returns the samples of every camera for the idx-th frame.
func (s *Shelf) Views(idx int) ([]Sample, error) {
	if idx < 0 || idx >= s.Len() {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "frame %d of %d", idx, s.Len())
	}
	n := len(s.cameras)
	return append([]Sample(nil), s.db[idx*n:(idx+1)*n]...), nil
}

// Pose2D returns the 2D predictions of the sample, or nil when the split does
// not carry them.
func (s *Shelf) Pose2D(sample Sample) []*prediction.NDArray {
	if s.pose2D == nil {
		return nil
	}
	key, err := filepath.Rel(s.root, sample.Image)
	if err != nil {
		key = sample.Image
	}
	if kps := s.pose2D.Keypoints(filepath.ToSlash(key), s.numJoints); len(kps) > 0 {
		return kps
	}
	return s.pose2D.Keypoints(sample.Image, s.numJoints)
}

// Reprojection is one world point projected into a view by the calibration
// model and by the projection matrix.
type Reprojection struct {
	CameraID    string
	Calibration r2.Point
	Matrix      r2.Point
}

// Distance is the pixel gap between both estimates.
func (r Reprojection) Distance() float64 {
	return r.Calibration.Sub(r.Matrix).Norm()
}

// Reproject projects x into every view of the idx-th frame with both camera
// models, which should agree for a consistent calibration.
func (s *Shelf) Reproject(idx int, x r3.Vector) ([]Reprojection, error) {
	views, err := s.Views(idx)
	if err != nil {
		return nil, err
	}
	out := make([]Reprojection, 0, len(views))
	for _, v := range views {
		cu, cv, err := v.Camera.Project(x)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %s calibration", v.CameraID)
		}
		pu, pv, err := camera.ProjectWith(v.Proj, x)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %s projection", v.CameraID)
		}
		out = append(out, Reprojection{
			CameraID:    v.CameraID,
			Calibration: r2.Point{X: cu, Y: cv},
			Matrix:      r2.Point{X: pu, Y: pv},
		})
	}
	return out, nil
}

// Evaluate scores preds, one list of detected people per indexed frame,
// against the ground truth shipped with the dataset.
func (s *Shelf) Evaluate(ctx context.Context, preds [][]skeleton.CocoPose, opts eval.Options) (*eval.Result, error) {
	ctx, span := tracer.Start(ctx, "Shelf.Evaluate")
	defer span.End()

	logger, _ := custom_logger.GetZapLogger(ctx)

	path := filepath.Join(s.root, constant.GroundTruthFile)
	gt, err := LoadActors(path, s.gtVariable)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded ground truth",
		zap.String("path", path),
		zap.Int("actors", len(gt)),
		zap.Int("frames", gt.NumFrames()))

	return eval.Evaluate(ctx, gt, s.frames, preds, opts)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/instill-ai/shelf-eval/config"
	"github.com/instill-ai/shelf-eval/pkg/constant"
	"github.com/instill-ai/shelf-eval/pkg/dataset"
	"github.com/instill-ai/shelf-eval/pkg/eval"
	"github.com/instill-ai/shelf-eval/pkg/prediction"
	"github.com/instill-ai/shelf-eval/pkg/report"
	"github.com/instill-ai/shelf-eval/pkg/textnum"
	"github.com/instill-ai/shelf-eval/pkg/utils"

	custom_logger "github.com/instill-ai/shelf-eval/pkg/logger"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configFile := config.ConfigFlag(fs)
	predsFile := fs.String("preds", "", "JSON file of 3D predictions, one list of people per frame")
	mode := fs.String("mode", string(dataset.ModeTest), "dataset split: train, validate or test")
	noProgress := fs.Bool("quiet", false, "disable the progress bar")
	checkPoint := fs.String("check-point", "", "world point \"x y z\" to project into every view of the first frame with both camera models")
	_ = fs.Parse(os.Args[1:])

	split, err := dataset.ParseMode(*mode)
	if err != nil {
		log.Fatal(err.Error())
	}

	if err := config.Init(*configFile); err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx, span := otel.Tracer("shelf-eval").Start(ctx, "main")
	defer span.End()

	logger, _ := custom_logger.GetZapLogger(ctx)
	defer func() {
		// can't handle the error due to https://github.com/uber-go/zap/issues/880
		_ = logger.Sync()
	}()

	shelf, err := dataset.NewShelf(ctx, config.Config.Dataset, split)
	if err != nil {
		logger.Fatal("failed to build dataset index", zap.Error(err))
	}

	if *checkPoint != "" {
		if err := checkReprojection(logger, shelf, *checkPoint); err != nil {
			logger.Fatal("reprojection check failed", zap.Error(err))
		}
	}

	if *predsFile == "" {
		logger.Info("no predictions given, index only",
			zap.Int("frames", shelf.Len()),
			zap.Int("samples", shelf.DBSize()))
		return
	}
	if err := utils.ValidateFilePath(*predsFile); err != nil {
		logger.Fatal(err.Error())
	}

	preds, err := prediction.LoadPose3D(*predsFile)
	if err != nil {
		logger.Fatal("failed to load predictions", zap.Error(err))
	}

	opts := eval.Options{
		RecallThreshold: config.Config.Evaluation.RecallThreshold,
		Alpha:           config.Config.Evaluation.Alpha,
		NumScoredActors: config.Config.Evaluation.NumScoredActors,
		GTScale:         eval.DefaultOptions().GTScale,
	}

	var bar *pb.ProgressBar
	if !*noProgress {
		bar = pb.StartNew(shelf.Len())
		opts.Progress = func(done, _ int) {
			bar.SetCurrent(int64(done))
		}
	}

	result, err := shelf.Evaluate(ctx, preds, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	for a, pcp := range result.ActorPCP {
		logger.Info(fmt.Sprintf("Actor %d PCP: %.4f", a+1, pcp))
	}
	logger.Info("Shelf evaluation",
		zap.Float64("avg_pcp", result.AvgPCP),
		zap.Float64("recall", result.Recall),
		zap.Float64("recall_threshold_mm", opts.RecallThreshold))

	rep, err := report.New(result, config.Config.Evaluation.NumScoredActors, map[string]any{
		"datasetRoot":     config.Config.Dataset.Root,
		"frameStart":      config.Config.Dataset.FrameStart,
		"frameEnd":        config.Config.Dataset.FrameEnd,
		"recallThreshold": opts.RecallThreshold,
		"predictions":     *predsFile,
	})
	if err != nil {
		logger.Fatal("failed to build report", zap.Error(err))
	}

	if err := os.MkdirAll(config.Config.Report.Dir, 0o755); err != nil {
		logger.Fatal("failed to create report dir", zap.Error(err))
	}
	reportPath := filepath.Join(config.Config.Report.Dir, constant.ReportFile)
	if err := rep.WriteYAML(reportPath); err != nil {
		logger.Fatal("failed to write report", zap.Error(err))
	}
	logger.Info("report written", zap.String("path", reportPath), zap.String("id", rep.ID))

	matPath := filepath.Join(config.Config.Report.Dir, constant.MATFile)
	if err := rep.WriteMAT(matPath); err != nil {
		logger.Fatal("failed to write MAT report", zap.Error(err))
	}
	logger.Info("MAT report written", zap.String("path", matPath))

	if config.Config.Report.Chart {
		chartPath := filepath.Join(config.Config.Report.Dir, constant.ChartFile)
		if err := rep.WriteChart(chartPath); err != nil {
			logger.Error("failed to draw chart", zap.Error(err))
			return
		}
		logger.Info("chart written", zap.String("path", chartPath))
	}
}

// checkReprojection logs where the point given as "x y z" lands in every view
// of the first frame under the calibration model and the projection matrix.
func checkReprojection(logger *zap.Logger, shelf *dataset.Shelf, point string) error {
	xyz, err := textnum.ParseFloats(point)
	if err != nil {
		return err
	}
	if len(xyz) != 3 {
		return errors.Errorf("check point has %d coordinates, want 3", len(xyz))
	}
	views, err := shelf.Reproject(0, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	if err != nil {
		return err
	}
	for _, v := range views {
		logger.Info("reprojection",
			zap.String("camera", v.CameraID),
			zap.Float64s("calibration_px", []float64{v.Calibration.X, v.Calibration.Y}),
			zap.Float64s("matrix_px", []float64{v.Matrix.X, v.Matrix.Y}),
			zap.Float64("distance_px", v.Distance()))
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/frankban/quicktest"
)

func TestLoad_Defaults(t *testing.T) {
	c := quicktest.New(t)

	cfg, err := Load("")
	c.Assert(err, quicktest.IsNil)
	c.Check(cfg.Dataset.FrameStart, quicktest.Equals, 300)
	c.Check(cfg.Dataset.FrameEnd, quicktest.Equals, 600)
	c.Check(cfg.Dataset.Cameras, quicktest.DeepEquals, []string{"0", "1", "2", "3", "4"})
	c.Check(cfg.Evaluation.RecallThreshold, quicktest.Equals, 500.0)
	c.Check(cfg.Evaluation.Alpha, quicktest.Equals, 0.5)
	c.Check(cfg.Evaluation.NumScoredActors, quicktest.Equals, 3)
	c.Check(cfg.Dataset.GTVariable, quicktest.Equals, "actor3D")
}

func TestLoad_FileAndEnv(t *testing.T) {
	c := quicktest.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  debug: true
dataset:
  root: /data/Shelf
  framestart: 10
  frameend: 12
evaluation:
  recallthreshold: 250
`), 0o600)
	c.Assert(err, quicktest.IsNil)

	t.Setenv("CFG_DATASET_ROOT", "/mnt/shelf")
	t.Setenv("CFG_DATASET_CAMERAS", "1,3")

	cfg, err := Load(path)
	c.Assert(err, quicktest.IsNil)
	c.Check(cfg.Server.Debug, quicktest.IsTrue)
	c.Check(cfg.Dataset.Root, quicktest.Equals, "/mnt/shelf")
	c.Check(cfg.Dataset.FrameStart, quicktest.Equals, 10)
	c.Check(cfg.Dataset.FrameEnd, quicktest.Equals, 12)
	c.Check(cfg.Dataset.Cameras, quicktest.DeepEquals, []string{"1", "3"})
	c.Check(cfg.Evaluation.RecallThreshold, quicktest.Equals, 250.0)
	c.Check(cfg.Evaluation.Alpha, quicktest.Equals, 0.5)
}

func TestLoad_MissingFile(t *testing.T) {
	c := quicktest.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	c.Assert(err, quicktest.ErrorMatches, "load config file .*")
}

func TestValidateConfig(t *testing.T) {
	c := quicktest.New(t)

	testCases := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*AppConfig) {},
		},
		{
			name:    "empty frame range",
			mutate:  func(cfg *AppConfig) { cfg.Dataset.FrameEnd = cfg.Dataset.FrameStart - 1 },
			wantErr: "dataset frame range .* is empty",
		},
		{
			name:    "no cameras",
			mutate:  func(cfg *AppConfig) { cfg.Dataset.Cameras = nil },
			wantErr: "dataset needs at least one camera",
		},
		{
			name:    "zero alpha",
			mutate:  func(cfg *AppConfig) { cfg.Evaluation.Alpha = 0 },
			wantErr: "evaluation alpha must be positive.*",
		},
	}

	for _, tc := range testCases {
		c.Run(tc.name, func(c *quicktest.C) {
			cfg, err := Load("")
			c.Assert(err, quicktest.IsNil)
			tc.mutate(cfg)

			err = ValidateConfig(cfg)
			if tc.wantErr == "" {
				c.Check(err, quicktest.IsNil)
				return
			}
			c.Check(err, quicktest.ErrorMatches, tc.wantErr)
		})
	}
}

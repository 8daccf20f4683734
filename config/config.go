package config

import (
	"flag"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

// ServerConfig defines process-wide settings
type ServerConfig struct {
	Debug bool `koanf:"debug"`
}

// DatasetConfig related to the Shelf dataset layout on disk
type DatasetConfig struct {
	Root       string   `koanf:"root"`
	FrameStart int      `koanf:"framestart"`
	FrameEnd   int      `koanf:"frameend"` // inclusive
	Cameras    []string `koanf:"cameras"`
	NumJoints  int      `koanf:"numjoints"`
	GTVariable string   `koanf:"gtvariable"`
}

// EvaluationConfig related to the PCP evaluation
type EvaluationConfig struct {
	RecallThreshold float64 `koanf:"recallthreshold"`
	Alpha           float64 `koanf:"alpha"`
	NumScoredActors int     `koanf:"numscoredactors"`
}

// ReportConfig related to the evaluation report output
type ReportConfig struct {
	Dir   string `koanf:"dir"`
	Chart bool   `koanf:"chart"`
}

// AppConfig defines
type AppConfig struct {
	Server     ServerConfig     `koanf:"server"`
	Dataset    DatasetConfig    `koanf:"dataset"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Report     ReportConfig     `koanf:"report"`
}

// Config - Global variable to export
var Config AppConfig

// Defaults mirror the published Shelf evaluation protocol
var Defaults = map[string]any{
	"dataset.framestart":         300,
	"dataset.frameend":           600,
	"dataset.cameras":            []string{"0", "1", "2", "3", "4"},
	"dataset.numjoints":          17,
	"dataset.gtvariable":         "actor3D",
	"evaluation.recallthreshold": 500.0,
	"evaluation.alpha":           0.5,
	"evaluation.numscoredactors": 3,
	"report.dir":                 ".",
}

// Init - Assign global config to decoded config struct
func Init(filePath string) error {
	cfg, err := Load(filePath)
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

// Load decodes the defaults, the YAML file at filePath (if any) and the CFG_
// environment overrides into a fresh AppConfig.
func Load(filePath string) (*AppConfig, error) {
	k := koanf.New(".")
	parser := yaml.Parser()

	if err := k.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "load default config")
	}

	if filePath != "" {
		if err := k.Load(file.Provider(filePath), parser); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", filePath)
		}
	}

	if err := k.Load(env.ProviderWithValue("CFG_", ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CFG_")), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return nil, err
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, ValidateConfig(cfg)
}

// ValidateConfig is for custom validation rules for the configuration
func ValidateConfig(cfg *AppConfig) error {
	if cfg.Dataset.FrameEnd < cfg.Dataset.FrameStart {
		return errors.Errorf("dataset frame range [%d, %d] is empty", cfg.Dataset.FrameStart, cfg.Dataset.FrameEnd)
	}
	if len(cfg.Dataset.Cameras) == 0 {
		return errors.New("dataset needs at least one camera")
	}
	if cfg.Evaluation.Alpha <= 0 {
		return errors.Errorf("evaluation alpha must be positive, got %v", cfg.Evaluation.Alpha)
	}
	if cfg.Evaluation.NumScoredActors <= 0 {
		return errors.Errorf("evaluation numscoredactors must be positive, got %d", cfg.Evaluation.NumScoredActors)
	}
	return nil
}

var defaultConfigPath = "config/config.yaml"

// ConfigFlag registers the -file flag on fs, which allows clients to specify
// the relative path to the file from which the configuration will be loaded.
func ConfigFlag(fs *flag.FlagSet) *string {
	return fs.String("file", defaultConfigPath, "configuration file")
}

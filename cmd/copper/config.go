package main

import (
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/copper/compare"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// Task は比較の種類
const (
	TaskClassification = "classification"
	TaskRegression     = "regression"
)

// RunConfig はYAMLの実行ファイルの内容
type RunConfig struct {
	Data        DataConfig        `yaml:"data"`
	Roles       map[string]string `yaml:"roles"`
	Types       map[string]string `yaml:"types"`
	FixNames    bool              `yaml:"fix_names"`
	FillNA      FillNAConfig      `yaml:"fill_na"`
	Task        string            `yaml:"task"`
	TrainSize   float64           `yaml:"train_size"`
	Seed        uint64            `yaml:"seed"`
	Standardize bool              `yaml:"standardize"`
	NJobs       int               `yaml:"n_jobs"`
	CVFolds     int               `yaml:"cv_folds"`
	Cutoff      float64           `yaml:"cutoff"`
	Costs       [][]float64       `yaml:"costs"`
	Models      []ModelConfig     `yaml:"models"`
	Plots       string            `yaml:"plots"`
	Log         LogConfig         `yaml:"log"`
}

// DataConfig はデータの読み込み元。SQLite.Query があればCSVより優先される。
type DataConfig struct {
	Path      string `yaml:"path"`
	Dir       string `yaml:"dir"`
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`
	SQLite    struct {
		DSN   string `yaml:"dsn"`
		Query string `yaml:"query"`
	} `yaml:"sqlite"`
}

// ModelConfig は比較に加えるモデル1つ分の設定
type ModelConfig struct {
	Name   string             `yaml:"name"`
	Kind   string             `yaml:"kind"`
	Params map[string]float64 `yaml:"params"`
}

// 欠損値の補完方法
const (
	FillMean  = "mean"
	FillValue = "value"
)

// FillNAConfig は欠損値の補完方法。Method が空なら補完しない。
// mean はNumber列を平均値、Category列を最頻値で補完し、value は Value で補完する。
type FillNAConfig struct {
	Method  string      `yaml:"method"`
	Value   interface{} `yaml:"value"`
	Columns []string    `yaml:"columns"`
}

// LogConfig はログの出力先。File が空なら標準エラー出力。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func defaultConfig() RunConfig {
	return RunConfig{
		Task:      TaskClassification,
		TrainSize: 0.7,
		Seed:      1,
		NJobs:     1,
		Log:       LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// LoadConfig はYAMLファイルを読み込み、既定値を補って検証する
func LoadConfig(path string) (*RunConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open run file %s", path)
	}
	defer file.Close()

	cfg := defaultConfig()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "decode run file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の整合性を検査する
func (c *RunConfig) Validate() error {
	if c.Data.Path == "" && c.Data.SQLite.Query == "" {
		return errors.NewValidationError("data", "either data.path or data.sqlite.query is required", nil)
	}
	if c.Data.SQLite.Query != "" && c.Data.SQLite.DSN == "" {
		return errors.NewValidationError("data.sqlite.dsn", "is required with data.sqlite.query", nil)
	}
	if len([]rune(c.Data.Delimiter)) > 1 {
		return errors.NewValidationError("data.delimiter", "must be a single character", c.Data.Delimiter)
	}
	c.Task = strings.ToLower(c.Task)
	if c.Task != TaskClassification && c.Task != TaskRegression {
		return errors.NewValidationError("task", "must be classification or regression", c.Task)
	}
	if c.TrainSize <= 0 || c.TrainSize >= 1 {
		return errors.NewValidationError("train_size", "must be in (0, 1)", c.TrainSize)
	}
	if c.Cutoff < 0 || c.Cutoff > 1 {
		return errors.NewValidationError("cutoff", "must be in [0, 1]", c.Cutoff)
	}
	if c.CVFolds == 1 || c.CVFolds < 0 {
		return errors.NewValidationError("cv_folds", "must be 0 (disabled) or at least 2", c.CVFolds)
	}
	if _, err := c.CostMatrix(); err != nil {
		return err
	}
	if _, err := log.ToLogLevel(c.Log.Level); err != nil {
		return err
	}
	for col, r := range c.Roles {
		if _, err := dataset.ParseRole(r); err != nil {
			return errors.Wrapf(err, "roles.%s", col)
		}
	}
	for col, t := range c.Types {
		if _, err := dataset.ParseType(t); err != nil {
			return errors.Wrapf(err, "types.%s", col)
		}
	}
	if err := c.FillNA.validate(); err != nil {
		return err
	}
	if len(c.Models) == 0 {
		return errors.NewValidationError("models", "at least one model is required", nil)
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return errors.NewValidationError("models.name", "must not be empty", m.Kind)
		}
		if seen[m.Name] {
			return errors.NewValidationError("models.name", "must be unique", m.Name)
		}
		seen[m.Name] = true
		if _, ok := registry[m.Kind]; !ok {
			return errors.NewUnknownModelError(m.Kind)
		}
	}
	return nil
}

func (f *FillNAConfig) validate() error {
	f.Method = strings.ToLower(f.Method)
	switch f.Method {
	case "":
		return nil
	case FillMean:
		if f.Value != nil {
			return errors.NewValidationError("fill_na.value", "is only used with method value", f.Value)
		}
		return nil
	case FillValue:
		switch f.Value.(type) {
		case string, int, float64:
			return nil
		default:
			return errors.NewValidationError("fill_na.value", "must be a string or a number", f.Value)
		}
	default:
		return errors.NewValidationError("fill_na.method", "must be mean or value", f.Method)
	}
}

// CostMatrix は costs を2×2の行列に変換する。未指定なら既定のコスト。
func (c *RunConfig) CostMatrix() ([2][2]float64, error) {
	if len(c.Costs) == 0 {
		return compare.DefaultCosts, nil
	}
	var out [2][2]float64
	if len(c.Costs) != 2 {
		return out, errors.NewValidationError("costs", "must be a 2x2 matrix", c.Costs)
	}
	for i, row := range c.Costs {
		if len(row) != 2 {
			return out, errors.NewValidationError("costs", "must be a 2x2 matrix", c.Costs)
		}
		out[i] = [2]float64{row[0], row[1]}
	}
	return out, nil
}

// LoadOptions は data セクションを dataset.Load のオプションに変換する
func (c *RunConfig) LoadOptions() []dataset.LoadOption {
	var opts []dataset.LoadOption
	if c.Data.Dir != "" {
		opts = append(opts, dataset.WithDataDir(c.Data.Dir))
	}
	if c.Data.Delimiter != "" {
		opts = append(opts, dataset.WithDelimiter([]rune(c.Data.Delimiter)[0]))
	}
	if c.Data.Encoding != "" {
		opts = append(opts, dataset.WithEncoding(c.Data.Encoding))
	}
	// Category指定だけを読み込み時に使う。Number指定は "$1,200" のような値を
	// NaN にしないよう、読み込み後に SetType と Update で変換する。
	types := make(map[string]dataset.Type, len(c.Types))
	for col, t := range c.Types {
		if typ, _ := dataset.ParseType(t); typ == dataset.Category {
			types[col] = typ
		}
	}
	if len(types) > 0 {
		opts = append(opts, dataset.WithColumnTypes(types))
	}
	return opts
}

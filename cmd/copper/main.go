// Command copper はYAMLの実行ファイルに従ってデータセットを読み込み、
// 複数のモデルを学習させて評価指標とコスト表を出力します。
//
//	copper run.yaml --plots out/
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/cheggaaa/pb/v3"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YuminosukeSato/copper/chart"
	"github.com/YuminosukeSato/copper/compare"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

type args struct {
	Config   string `arg:"positional,required" help:"YAML run file"`
	Data     string `arg:"--data" help:"CSV file to load instead of data.path"`
	Plots    string `arg:"--plots" help:"directory to write charts to"`
	LogLevel string `arg:"--log-level" help:"debug, info, warn or error"`
	Quiet    bool   `arg:"-q,--quiet" help:"do not show the progress bar"`
}

func (args) Version() string {
	return "copper 0.1.0"
}

func (args) Description() string {
	return "Fit several models on one dataset and compare their scores and costs."
}

func main() {
	var a args
	arg.MustParse(&a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, a, os.Stdout); err != nil {
		log.GetLogger().Error("copper failed", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a args, stdout io.Writer) error {
	cfg, err := LoadConfig(a.Config)
	if err != nil {
		return err
	}
	if a.Data != "" {
		cfg.Data.Path, cfg.Data.Dir, cfg.Data.SQLite.Query = a.Data, "", ""
	}
	if a.Plots != "" {
		cfg.Plots = a.Plots
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := log.GetLoggerWithName("cmd")

	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("Dataset loaded", log.SamplesKey, ds.Len(), log.ColumnsKey, len(ds.Columns()))
	fmt.Fprintln(stdout, ds)

	opts := []compare.Option{compare.WithNJobs(cfg.NJobs)}
	if cfg.Standardize {
		opts = append(opts, compare.WithStandardize())
	}
	mc := compare.New(opts...)
	if err := mc.Sample(ds, cfg.TrainSize, cfg.Seed); err != nil {
		return err
	}
	costs, _ := cfg.CostMatrix()
	mc.SetCosts(costs)
	for _, m := range cfg.Models {
		est, err := NewModel(m.Kind, m.Params)
		if err != nil {
			return err
		}
		if err := mc.Add(m.Name, est); err != nil {
			return err
		}
	}

	if err := fitAll(ctx, mc, cfg.NJobs, a.Quiet); err != nil {
		return err
	}
	if err := report(ctx, mc, cfg, stdout); err != nil {
		return err
	}
	if cfg.Plots != "" {
		return savePlots(mc, cfg, logger)
	}
	return nil
}

// setupLogging はログの出力先を設定し、終了時に呼ぶ関数を返す
func setupLogging(cfg LogConfig) (func(), error) {
	var w io.Writer = os.Stderr
	closer := func() {}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = lj
		closer = func() { _ = lj.Close() }
	}
	if err := log.SetupLogger(w, cfg.Level); err != nil {
		closer()
		return nil, err
	}
	return closer, nil
}

func loadDataset(ctx context.Context, cfg *RunConfig) (*dataset.Dataset, error) {
	var (
		ds  *dataset.Dataset
		err error
	)
	if cfg.Data.SQLite.Query != "" {
		db, openErr := sql.Open("sqlite3", cfg.Data.SQLite.DSN)
		if openErr != nil {
			return nil, errors.Wrap(openErr, "open sqlite database")
		}
		defer db.Close()
		ds, err = dataset.ReadSQL(ctx, db, cfg.Data.SQLite.Query)
	} else {
		ds, err = dataset.Load(cfg.Data.Path, cfg.LoadOptions()...)
	}
	if err != nil {
		return nil, err
	}

	if cfg.FixNames {
		if err := ds.FixNames(); err != nil {
			return nil, err
		}
	}
	for col, r := range cfg.Roles {
		role, _ := dataset.ParseRole(r)
		if err := ds.SetRole(role, col); err != nil {
			return nil, err
		}
	}
	for col, t := range cfg.Types {
		typ, _ := dataset.ParseType(t)
		if err := ds.SetType(typ, col); err != nil {
			return nil, err
		}
	}
	// 文字列のまま読み込まれたNumber列を数値に変換する
	ds.Update()

	switch cfg.FillNA.Method {
	case FillMean:
		err = ds.FillNA(cfg.FillNA.Columns...)
	case FillValue:
		err = ds.FillNAValue(cfg.FillNA.Value, cfg.FillNA.Columns...)
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// fitAll は n_jobs が1ならモデルを1つずつ学習して進捗バーを進め、
// 2以上なら Comparison.Fit に並列学習を任せる
func fitAll(ctx context.Context, mc *compare.Comparison, nJobs int, quiet bool) error {
	names := mc.Models()
	bar := pb.New(len(names)).SetWriter(os.Stderr)
	if !quiet {
		bar.Start()
		defer bar.Finish()
	}
	if nJobs > 1 {
		err := mc.Fit(ctx)
		bar.SetCurrent(int64(len(names)))
		return err
	}
	for _, name := range names {
		if err := mc.FitModel(ctx, name); err != nil {
			return err
		}
		bar.Increment()
	}
	return nil
}

func report(ctx context.Context, mc *compare.Comparison, cfg *RunConfig, w io.Writer) error {
	if cfg.Task == TaskRegression {
		for _, metric := range []func(...string) (dataset.Summary, error){mc.MSE, mc.RMSE, mc.MAE, mc.R2} {
			s, err := metric()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, s)
		}
		if rmsle, err := mc.RMSLE(); err == nil {
			fmt.Fprintln(w, rmsle)
		} else {
			log.GetLogger().Warn("RMSLE skipped", log.ErrAttrKey, err)
		}
		return nil
	}

	acc, err := mc.Accuracy()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, acc)
	if cfg.CVFolds > 0 {
		cv, err := mc.CVAccuracy(ctx, cfg.CVFolds)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, cv)
	}
	table, err := mc.CMTable()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)

	if !isBinary(mc) {
		return nil
	}
	auc, err := mc.AUC()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, auc)
	profit, err := mc.Profit("")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, profit)
	opp, err := mc.OpportunityCost()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, opp)
	noML, err := mc.CostNoML()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, noML)

	if cfg.Cutoff > 0 && auc.Len() > 0 {
		cut, err := mc.CutoffPredict(1, cfg.Cutoff, nil, auc.Labels...)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Positive predictions at cutoff %.2f\n", cfg.Cutoff)
		fmt.Fprintln(w, cut.Describe())
	}
	return nil
}

// isBinary reports whether the confusion matrices have exactly two labels.
func isBinary(mc *compare.Comparison) bool {
	_, labels, err := mc.ConfusionMatrices()
	return err == nil && len(labels) == 2
}

func savePlots(mc *compare.Comparison, cfg *RunConfig, logger log.Logger) error {
	if err := os.MkdirAll(cfg.Plots, 0o755); err != nil {
		return errors.Wrap(err, "create plot directory")
	}
	if cfg.Task == TaskRegression {
		return savePredictionScatter(mc, cfg, logger)
	}
	for _, name := range mc.Models() {
		p, err := mc.PlotConfusionMatrix(name)
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.Plots, "confusion_"+name+".png")
		if err := chart.Save(p, path, 0); err != nil {
			return err
		}
		logger.Info("Chart written", log.ModelNameKey, name, "path", path)
	}
	if !isBinary(mc) {
		return nil
	}
	p, err := mc.ROC()
	if err != nil {
		return err
	}
	return chart.Save(p, filepath.Join(cfg.Plots, "roc.png"), 0)
}

// savePredictionScatter は回帰モデルごとに正解と予測の散布図を保存する
func savePredictionScatter(mc *compare.Comparison, cfg *RunConfig, logger log.Logger) error {
	target, err := mc.Test().Target()
	if err != nil {
		return err
	}
	pred, err := mc.Predict(nil)
	if err != nil {
		return err
	}
	for _, name := range mc.Models() {
		p, err := chart.Scatter(name, "actual", "predicted", target.Float(), pred.Col(name).Float())
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.Plots, "predictions_"+name+".png")
		if err := chart.Save(p, path, 0); err != nil {
			return err
		}
		logger.Info("Chart written", log.ModelNameKey, name, "path", path)
	}
	return nil
}

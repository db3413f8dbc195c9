package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// DefaultNaNValues は読み込み時に欠損値として扱う文字列
var DefaultNaNValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}

type loadConfig struct {
	dataDir   string
	delimiter rune
	encoding  string
	nanValues []string
	types     map[string]Type
}

// LoadOption は Load と ReadCSV の設定オプション
type LoadOption func(*loadConfig)

// WithDataDir は相対パスの基準ディレクトリを設定する
func WithDataDir(dir string) LoadOption {
	return func(c *loadConfig) { c.dataDir = dir }
}

// WithDelimiter は区切り文字を設定する（デフォルト: ','）
func WithDelimiter(r rune) LoadOption {
	return func(c *loadConfig) { c.delimiter = r }
}

// WithEncoding はファイルの文字コードをWHATWGの名前（"latin1", "shift_jis" など）で指定する
func WithEncoding(name string) LoadOption {
	return func(c *loadConfig) { c.encoding = name }
}

// WithNaNValues は欠損値として扱う文字列を置き換える
func WithNaNValues(values ...string) LoadOption {
	return func(c *loadConfig) { c.nanValues = values }
}

// WithColumnTypes は型推論の代わりに使う列ごとの型を設定する
func WithColumnTypes(types map[string]Type) LoadOption {
	return func(c *loadConfig) { c.types = types }
}

func newLoadConfig(opts []LoadOption) *loadConfig {
	c := &loadConfig{delimiter: ',', nanValues: DefaultNaNValues}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load はCSVファイルを読み込む。相対パスは WithDataDir の基準ディレクトリから解決される。
func Load(path string, opts ...LoadOption) (*Dataset, error) {
	cfg := newLoadConfig(opts)
	if !filepath.IsAbs(path) && cfg.dataDir != "" {
		path = filepath.Join(cfg.dataDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.Load %s", path)
	}
	defer f.Close()

	ds, err := readCSV(f, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.Load %s", path)
	}
	ds.logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, path,
		log.SamplesKey, ds.Len(),
		log.ColumnsKey, len(ds.Columns()),
	)
	return ds, nil
}

// ReadCSV はヘッダ付きCSVを読み込む
func ReadCSV(r io.Reader, opts ...LoadOption) (*Dataset, error) {
	return readCSV(r, newLoadConfig(opts))
}

func readCSV(r io.Reader, cfg *loadConfig) (*Dataset, error) {
	if cfg.encoding != "" {
		enc, err := htmlindex.Get(cfg.encoding)
		if err != nil {
			return nil, errors.NewValidationError("encoding", "unknown character encoding", cfg.encoding)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	options := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithDelimiter(cfg.delimiter),
		dataframe.NaNValues(cfg.nanValues),
	}
	if len(cfg.types) > 0 {
		types := make(map[string]series.Type, len(cfg.types))
		for col, t := range cfg.types {
			types[col] = seriesType(t)
		}
		options = append(options, dataframe.WithTypes(types))
	}
	return New(dataframe.ReadCSV(r, options...))
}

// ReadSQL はクエリ結果からデータセットを作成する。NULLは欠損値になる。
func ReadSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*Dataset, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.ReadSQL")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "dataset.ReadSQL")
	}

	records := [][]string{cols}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "dataset.ReadSQL")
		}
		record := make([]string, len(cols))
		for i, v := range raw {
			record[i] = sqlString(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "dataset.ReadSQL")
	}
	if len(records) == 1 {
		return nil, errors.ErrEmptyData
	}

	ds, err := New(dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues([]string{"NaN"}),
	))
	if err != nil {
		return nil, err
	}
	ds.logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, "sql",
		log.SamplesKey, ds.Len(),
		log.ColumnsKey, len(cols),
	)
	return ds, nil
}

func sqlString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NaN"
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

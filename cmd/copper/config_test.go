package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalRun = `
data:
  path: loans.csv
models:
  - name: logistic
    kind: logistic_regression
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.yaml", minimalRun)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, TaskClassification, cfg.Task)
	assert.Equal(t, 0.7, cfg.TrainSize)
	assert.Equal(t, 1, cfg.NJobs)
	assert.Equal(t, "info", cfg.Log.Level)
	costs, err := cfg.CostMatrix()
	require.NoError(t, err)
	assert.Equal(t, [2][2]float64{{1, -1}, {-1, 1}}, costs)
}

func TestLoadConfigFull(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.yaml", `
data:
  path: loans.csv
  dir: data
  delimiter: ";"
  encoding: latin1
roles:
  zip: reject
types:
  code: category
task: Regression
train_size: 0.8
seed: 7
n_jobs: 4
cv_folds: 3
cutoff: 0.4
costs: [[0, -2], [-1, 5]]
models:
  - name: ols
    kind: linear_regression
    params: {fit_intercept: 1}
  - name: pa
    kind: passive_aggressive_regressor
    params: {c: 0.5, max_iter: 50}
log:
  level: debug
  file: copper.log
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, TaskRegression, cfg.Task)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, map[string]float64{"c": 0.5, "max_iter": 50}, cfg.Models[1].Params)
	costs, err := cfg.CostMatrix()
	require.NoError(t, err)
	assert.Equal(t, [2][2]float64{{0, -2}, {-1, 5}}, costs)
	assert.Len(t, cfg.LoadOptions(), 4)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB, "defaults survive partial sections")
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		param string
	}{
		{name: "no data", yaml: "models: [{name: a, kind: linear_regression}]", param: "data"},
		{name: "sqlite without dsn", yaml: "data: {sqlite: {query: select 1}}\nmodels: [{name: a, kind: linear_regression}]", param: "data.sqlite.dsn"},
		{name: "train size", yaml: "data: {path: x.csv}\ntrain_size: 1.5\nmodels: [{name: a, kind: linear_regression}]", param: "train_size"},
		{name: "task", yaml: "data: {path: x.csv}\ntask: clustering\nmodels: [{name: a, kind: linear_regression}]", param: "task"},
		{name: "cv folds", yaml: "data: {path: x.csv}\ncv_folds: 1\nmodels: [{name: a, kind: linear_regression}]", param: "cv_folds"},
		{name: "costs", yaml: "data: {path: x.csv}\ncosts: [[1, 2, 3]]\nmodels: [{name: a, kind: linear_regression}]", param: "costs"},
		{name: "no models", yaml: "data: {path: x.csv}", param: "models"},
		{name: "duplicate", yaml: "data: {path: x.csv}\nmodels: [{name: a, kind: linear_regression}, {name: a, kind: logistic_regression}]", param: "models.name"},
		{name: "role", yaml: "data: {path: x.csv}\nroles: {a: Bogus}\nmodels: [{name: a, kind: linear_regression}]", param: "role"},
		{name: "fill method", yaml: "data: {path: x.csv}\nfill_na: {method: median}\nmodels: [{name: a, kind: linear_regression}]", param: "fill_na.method"},
		{name: "fill value", yaml: "data: {path: x.csv}\nfill_na: {method: value}\nmodels: [{name: a, kind: linear_regression}]", param: "fill_na.value"},
		{name: "log level", yaml: "data: {path: x.csv}\nlog: {level: loud}\nmodels: [{name: a, kind: linear_regression}]", param: "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "run.yaml", tt.yaml)
			_, err := LoadConfig(path)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}

	path := writeFile(t, t.TempDir(), "run.yaml", "data: {path: x.csv}\nmodels: [{name: a, kind: random_forest}]")
	_, err := LoadConfig(path)
	var unknown *errors.UnknownModelError
	assert.True(t, errors.As(err, &unknown))
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"linear_regression", "logistic_regression", "passive_aggressive", "passive_aggressive_regressor"}, Kinds())
	for _, k := range Kinds() {
		m, err := NewModel(k, map[string]float64{"c": 1, "max_iter": 10})
		require.NoError(t, err, k)
		assert.NotNil(t, m)
	}
	_, err := NewModel("svm", nil)
	var unknown *errors.UnknownModelError
	assert.True(t, errors.As(err, &unknown))
}

func TestLoadDatasetFromSQLite(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "loans.db")
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE loans (id INTEGER, amount REAL, grade TEXT, price TEXT, target INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO loans VALUES (1, 100, 'A', '$1,000', 0), (2, NULL, 'B', '$2,500', 1), (3, 300, NULL, '$40', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := defaultConfig()
	cfg.Data.SQLite.DSN = dsn
	cfg.Data.SQLite.Query = "SELECT id, amount, grade, price, target FROM loans ORDER BY id"
	cfg.Types = map[string]string{"grade": "Category", "price": "Number"}
	cfg.Roles = map[string]string{"grade": "Reject"}
	cfg.FillNA = FillNAConfig{Method: FillMean}

	ds, err := loadDataset(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	role, _ := ds.Role("grade")
	assert.Equal(t, dataset.Reject, role)
	amount, err := ds.Col("amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300}, amount.Float())
	price, err := ds.Col("price")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 2500, 40}, price.Float())
}

func TestLoadDatasetTypeOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "loans.csv", "id,income,zip,city,target\n1,\"$1,200\",100,tokyo,0\n2,\"$3,400\",200,,1\n3,\"$5,000\",100,osaka,1\n")

	cfg := defaultConfig()
	cfg.Data.Path = "loans.csv"
	cfg.Data.Dir = dir
	cfg.Types = map[string]string{"income": "number", "zip": "category"}
	cfg.FillNA = FillNAConfig{Method: FillValue, Value: "unknown"}

	ds, err := loadDataset(context.Background(), &cfg)
	require.NoError(t, err)

	income, err := ds.Col("income")
	require.NoError(t, err)
	assert.Equal(t, []float64{1200, 3400, 5000}, income.Float())
	role, _ := ds.Role("income")
	assert.Equal(t, dataset.Input, role)
	typ, _ := ds.Type("zip")
	assert.Equal(t, dataset.Category, typ)
	assert.Equal(t, []string{"100", "200", "100"}, ds.Frame().Col("zip").Records())

	city, err := ds.Col("city")
	require.NoError(t, err)
	assert.Equal(t, []string{"tokyo", "unknown", "osaka"}, city.Records())
}

func TestRun(t *testing.T) {
	prev := log.GetLogger()
	t.Cleanup(func() { log.SetLogger(prev) })

	dir := t.TempDir()
	var csv strings.Builder
	csv.WriteString("id,income,city,target\n")
	for i := 0; i < 40; i++ {
		city := []string{"tokyo", "osaka"}[i%2]
		target := 0
		if i >= 20 {
			target = 1
		}
		fmt.Fprintf(&csv, "%d,%d,%s,%d\n", i, i*10, city, target)
	}
	writeFile(t, dir, "loans.csv", csv.String())
	logFile := filepath.Join(dir, "copper.log")
	path := writeFile(t, dir, "run.yaml", fmt.Sprintf(`
data:
  path: loans.csv
  dir: %s
standardize: true
train_size: 0.75
seed: 3
cutoff: 0.5
cv_folds: 3
models:
  - name: logistic
    kind: logistic_regression
    params: {max_iter: 200, random_state: 1}
  - name: pa
    kind: passive_aggressive
log:
  level: debug
  file: %s
`, dir, logFile))

	var out bytes.Buffer
	err := run(context.Background(), args{Config: path, Plots: filepath.Join(dir, "plots"), Quiet: true}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Accuracy")
	assert.Contains(t, out.String(), "CV Accuracy")
	assert.Contains(t, out.String(), "Profit")
	assert.FileExists(t, logFile)
	assert.FileExists(t, filepath.Join(dir, "plots", "roc.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "confusion_pa.png"))
}

func TestRunRegression(t *testing.T) {
	prev := log.GetLogger()
	t.Cleanup(func() { log.SetLogger(prev) })

	dir := t.TempDir()
	var csv strings.Builder
	csv.WriteString("id,x,target\n")
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&csv, "%d,%d,%d\n", i, i, 2*i+1)
	}
	writeFile(t, dir, "sales.csv", csv.String())
	path := writeFile(t, dir, "run.yaml", fmt.Sprintf(`
data:
  path: sales.csv
  dir: %s
task: regression
standardize: true
models:
  - name: ols
    kind: linear_regression
log:
  level: error
  file: %s
`, dir, filepath.Join(dir, "copper.log")))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), args{Config: path, Quiet: true}, &out))
	for _, metric := range []string{"MSE", "RMSE", "MAE", "R2"} {
		assert.Contains(t, out.String(), metric)
	}
}

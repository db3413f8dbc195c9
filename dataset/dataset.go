// Package dataset は表形式データの各列にロール（ID / Input / Target / Reject）と
// 型（Number / Category）を付与するデータセット抽象を提供します。
//
// フレームの保持と読み込みはgotaの dataframe.DataFrame に委譲し、このパッケージは
// メタデータの推論・フィルタリング・欠損値補完を担当します。
//
// 使用例:
//
//	ds, err := dataset.Load("loans.csv", dataset.WithDataDir("data"))
//	if err != nil {
//	    return err
//	}
//	_ = ds.SetRole(dataset.Reject, "zip_code")
//	_ = ds.FillNA()
//	fmt.Println(ds)
package dataset

import (
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// MaxMissingRatio を超える割合の欠損値を持つ列はRejectとして推論される
const MaxMissingRatio = 0.5

var (
	// ErrNoColumns はフィルタに一致する列が存在しない場合のエラーです。
	ErrNoColumns = errors.New("no columns match the filter")
)

// Dataset は1つのフレームと、列ごとのロールと型を保持する。
// ロールと型のキー集合は常にフレームの列集合と一致する。
type Dataset struct {
	frame  dataframe.DataFrame
	roles  map[string]Role
	types  map[string]Type
	logger log.Logger
}

// New はフレームからデータセットを作成し、メタデータを推論する
func New(frame dataframe.DataFrame) (*Dataset, error) {
	d := &Dataset{logger: log.GetLoggerWithName("dataset")}
	if err := d.SetFrame(frame); err != nil {
		return nil, err
	}
	return d, nil
}

// SetFrame はフレームを置き換え、全列のメタデータを推論し直す。
//
// 推論規則:
//   - 名前が id（大文字小文字を区別しない）の列はID
//   - 名前が target の最初の列はTarget、2列目以降はReject
//   - 欠損値の割合が MaxMissingRatio を超える列はReject（上の規則より優先）
//   - それ以外はInput
//   - int/float列はNumber、それ以外はCategory
func (d *Dataset) SetFrame(frame dataframe.DataFrame) error {
	if frame.Err != nil {
		return errors.Wrap(frame.Err, "dataset.SetFrame")
	}
	d.frame = frame
	d.roles = make(map[string]Role, frame.Ncol())
	d.types = make(map[string]Type, frame.Ncol())

	hasTarget := false
	for _, name := range frame.Names() {
		d.inferColumn(name, &hasTarget)
	}
	d.logger.Debug("Metadata inferred",
		log.OperationKey, "set_frame",
		log.ColumnsKey, frame.Ncol(),
		log.SamplesKey, frame.Nrow(),
	)
	return nil
}

func (d *Dataset) inferColumn(name string, hasTarget *bool) {
	s := d.frame.Col(name)
	d.types[name] = inferType(s)

	role := Input
	switch {
	case strings.EqualFold(name, "id"):
		role = ID
	case strings.EqualFold(name, "target"):
		if *hasTarget {
			role = Reject
		} else {
			role = Target
			*hasTarget = true
		}
	}
	if n := s.Len(); n > 0 && float64(countMissing(s))/float64(n) > MaxMissingRatio {
		role = Reject
	}
	d.roles[name] = role
}

// Frame は保持しているフレームを返す
func (d *Dataset) Frame() dataframe.DataFrame { return d.frame }

// Columns はフレームの列名を順番通りに返す
func (d *Dataset) Columns() []string { return d.frame.Names() }

// Len は行数を返す
func (d *Dataset) Len() int { return d.frame.Nrow() }

// Col は列を返す。存在しない列の場合はColumnError。
func (d *Dataset) Col(name string) (series.Series, error) {
	if err := d.requireColumns("Dataset.Col", name); err != nil {
		return series.Series{}, err
	}
	return d.frame.Col(name), nil
}

// SetCol は列を追加または置き換える。追加された列のメタデータは推論される。
func (d *Dataset) SetCol(s series.Series) error {
	if s.Err != nil {
		return errors.Wrap(s.Err, "dataset.SetCol")
	}
	if s.Len() != d.Len() {
		return errors.NewDimensionError("Dataset.SetCol", d.Len(), s.Len(), 0)
	}
	frame := d.frame.Mutate(s)
	if frame.Err != nil {
		return errors.Wrap(frame.Err, "dataset.SetCol")
	}
	d.frame = frame
	if _, ok := d.roles[s.Name]; !ok {
		hasTarget := len(d.Filter(Filter{Roles: []Role{Target}})) > 0
		d.inferColumn(s.Name, &hasTarget)
	}
	return nil
}

// Head は先頭 n 行を返す
func (d *Dataset) Head(n int) dataframe.DataFrame {
	return d.window(0, n)
}

// Tail は末尾 n 行を返す
func (d *Dataset) Tail(n int) dataframe.DataFrame {
	return d.window(d.Len()-n, d.Len())
}

func (d *Dataset) window(start, end int) dataframe.DataFrame {
	if start < 0 {
		start = 0
	}
	if end > d.Len() {
		end = d.Len()
	}
	if start >= end {
		return d.frame
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return d.frame.Subset(idx)
}

// Describe はgotaの要約統計を返す
func (d *Dataset) Describe() dataframe.DataFrame { return d.frame.Describe() }

// Values はNumber列を行列として返す。欠損値はNaN。
func (d *Dataset) Values() (*mat.Dense, []string, error) {
	cols := d.Filter(Filter{Types: []Type{Number}})
	if len(cols) == 0 {
		return nil, nil, ErrNoColumns
	}
	return d.matrix(cols), cols, nil
}

func (d *Dataset) matrix(cols []string) *mat.Dense {
	m := mat.NewDense(d.Len(), len(cols), nil)
	for j, c := range cols {
		m.SetCol(j, d.frame.Col(c).Float())
	}
	return m
}

// Role は列のロールを返す
func (d *Dataset) Role(col string) (Role, error) {
	r, ok := d.roles[col]
	if !ok {
		return "", errors.NewColumnError("Dataset.Role", col)
	}
	return r, nil
}

// Type は列の型を返す
func (d *Dataset) Type(col string) (Type, error) {
	t, ok := d.types[col]
	if !ok {
		return "", errors.NewColumnError("Dataset.Type", col)
	}
	return t, nil
}

// SetRole は指定した列のロールを変更する。存在しない列が含まれる場合は何も変更しない。
func (d *Dataset) SetRole(role Role, cols ...string) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if err := d.requireColumns("Dataset.SetRole", cols...); err != nil {
		return err
	}
	for _, c := range cols {
		d.roles[c] = role
	}
	return nil
}

// SetType は指定した列の型を変更する。値の変換は Update で行う。
func (d *Dataset) SetType(t Type, cols ...string) error {
	if _, err := ParseType(string(t)); err != nil {
		return err
	}
	if err := d.requireColumns("Dataset.SetType", cols...); err != nil {
		return err
	}
	for _, c := range cols {
		d.types[c] = t
	}
	return nil
}

// Filter はフィルタに一致する列名をフレームの順番で返す
func (d *Dataset) Filter(f Filter) []string {
	var out []string
	for _, c := range d.frame.Names() {
		if f.Match(d.roles[c], d.types[c]) {
			out = append(out, c)
		}
	}
	return out
}

// FilterFrame はフィルタに一致する列だけのフレームを返す。一致する列がなければ ErrNoColumns。
func (d *Dataset) FilterFrame(f Filter) (dataframe.DataFrame, error) {
	cols := d.Filter(f)
	if len(cols) == 0 {
		return dataframe.DataFrame{}, ErrNoColumns
	}
	return d.frame.Select(cols), nil
}

// Subset はフィルタに一致する列だけを持ち、このデータセットのメタデータを引き継いだ新しいデータセットを返す
func (d *Dataset) Subset(f Filter) (*Dataset, error) {
	frame, err := d.FilterFrame(f)
	if err != nil {
		return nil, err
	}
	return d.derive(frame), nil
}

// Rows は指定した行だけを持つ新しいデータセットを返す。メタデータは引き継がれる。
func (d *Dataset) Rows(indices []int) (*Dataset, error) {
	if len(indices) == 0 {
		return nil, errors.ErrEmptyData
	}
	for _, i := range indices {
		if i < 0 || i >= d.Len() {
			return nil, errors.NewValidationError("indices", "row index out of range", i)
		}
	}
	frame := d.frame.Subset(indices)
	if frame.Err != nil {
		return nil, errors.Wrap(frame.Err, "dataset.Rows")
	}
	return d.derive(frame), nil
}

// derive wraps frame with the metadata of d for every column it shares with d.
func (d *Dataset) derive(frame dataframe.DataFrame) *Dataset {
	out := &Dataset{
		frame:  frame,
		roles:  make(map[string]Role, frame.Ncol()),
		types:  make(map[string]Type, frame.Ncol()),
		logger: d.logger,
	}
	hasTarget := false
	for _, c := range frame.Names() {
		if r, ok := d.roles[c]; ok {
			out.roles[c] = r
			out.types[c] = d.types[c]
			hasTarget = hasTarget || r == Target
		}
	}
	for _, c := range frame.Names() {
		if _, ok := out.roles[c]; !ok {
			out.inferColumn(c, &hasTarget)
		}
	}
	return out
}

// Copy はフレームとメタデータを複製する
func (d *Dataset) Copy() *Dataset {
	return d.derive(d.frame.Copy())
}

// Inputs はInput列のフレームを返す
func (d *Dataset) Inputs() (dataframe.DataFrame, error) {
	frame, err := d.FilterFrame(Filter{Roles: []Role{Input}})
	if err != nil {
		return frame, errors.ErrNoInputs
	}
	return frame, nil
}

// TargetName は最初のTarget列の名前を返す
func (d *Dataset) TargetName() (string, error) {
	cols := d.Filter(Filter{Roles: []Role{Target}})
	if len(cols) == 0 {
		return "", errors.ErrNoTarget
	}
	return cols[0], nil
}

// Target は最初のTarget列を返す
func (d *Dataset) Target() (series.Series, error) {
	name, err := d.TargetName()
	if err != nil {
		return series.Series{}, err
	}
	return d.frame.Col(name), nil
}

// Numerical はNumber列のフレームを返す
func (d *Dataset) Numerical() (dataframe.DataFrame, error) {
	return d.FilterFrame(Filter{Types: []Type{Number}})
}

// Categorical はCategory列のフレームを返す
func (d *Dataset) Categorical() (dataframe.DataFrame, error) {
	return d.FilterFrame(Filter{Types: []Type{Category}})
}

// Metadata は列ごとのロール・型・gotaの型を表すフレームを返す
func (d *Dataset) Metadata() dataframe.DataFrame {
	names := d.frame.Names()
	roles := make([]string, len(names))
	types := make([]string, len(names))
	dtypes := make([]string, len(names))
	for i, c := range names {
		roles[i] = string(d.roles[c])
		types[i] = string(d.types[c])
		dtypes[i] = string(d.frame.Col(c).Type())
	}
	return dataframe.New(
		series.New(names, series.String, "Column"),
		series.New(roles, series.String, "Role"),
		series.New(types, series.String, "Type"),
		series.New(dtypes, series.String, "dtype"),
	)
}

// String はメタデータの表を返す
func (d *Dataset) String() string {
	if d.frame.Ncol() == 0 {
		return "Dataset(empty)"
	}
	return d.Metadata().String()
}

func (d *Dataset) requireColumns(op string, cols ...string) error {
	var unknown []string
	for _, c := range cols {
		if _, ok := d.roles[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	if len(unknown) > 0 {
		return errors.NewColumnError(op, unknown...)
	}
	return nil
}

// resolve returns cols after checking they exist, or the columns matching def when cols is empty.
func (d *Dataset) resolve(op string, cols []string, def Filter) ([]string, error) {
	if len(cols) == 0 {
		return d.Filter(def), nil
	}
	if err := d.requireColumns(op, cols...); err != nil {
		return nil, err
	}
	return cols, nil
}

// MissingMask は s の各要素が欠損値かどうかを返す。
// gotaのNA要素とfloat列のNaNの両方を欠損値とみなす。
func MissingMask(s series.Series) []bool {
	return missingMask(s)
}

// missingMask reports which elements of s are missing.
func missingMask(s series.Series) []bool {
	mask := make([]bool, s.Len())
	for i := range mask {
		e := s.Elem(i)
		mask[i] = e.IsNA() || (s.Type() == series.Float && math.IsNaN(e.Float()))
	}
	return mask
}

func countMissing(s series.Series) int {
	n := 0
	for _, m := range missingMask(s) {
		if m {
			n++
		}
	}
	return n
}

package dataset

import (
	"math"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/copper/core/parallel"
	"github.com/YuminosukeSato/copper/pkg/errors"
)

// DefaultOutlierWidth は OutlierCount に0以下の幅を渡した場合に使う標準偏差の倍数
const DefaultOutlierWidth = 1.5

// 列数がこれを超えると列ごとの統計量を並列に計算する
const parallelColumnThreshold = 32

func pick(f []Filter, def Filter) Filter {
	if len(f) > 0 {
		return f[0]
	}
	return def
}

func (d *Dataset) columnSummary(name string, cols []string, fn func(s series.Series) float64) Summary {
	values := make([]float64, len(cols))
	parallel.ParallelizeWithThreshold(len(cols), parallelColumnThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			values[i] = fn(d.frame.Col(cols[i]))
		}
	})
	return Summary{Name: name, Labels: cols, Values: values}
}

// present returns the non-missing values of s as floats.
func present(s series.Series) []float64 {
	mask := missingMask(s)
	values := s.Float()
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if !mask[i] && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// UniqueValues は列ごとの（欠損値を除く）異なる値の数を返す。デフォルトはすべての列。
func (d *Dataset) UniqueValues(f ...Filter) Summary {
	return d.columnSummary("UniqueValues", d.Filter(pick(f, Filter{})), func(s series.Series) float64 {
		mask := missingMask(s)
		seen := make(map[string]struct{})
		for i, r := range s.Records() {
			if !mask[i] {
				seen[r] = struct{}{}
			}
		}
		return float64(len(seen))
	})
}

// PercentMissing は列ごとの欠損値の割合（%）を返す。デフォルトはすべての列。
func (d *Dataset) PercentMissing(f ...Filter) Summary {
	return d.columnSummary("PercentMissing", d.Filter(pick(f, Filter{})), func(s series.Series) float64 {
		if s.Len() == 0 {
			return 0
		}
		return 100 * float64(countMissing(s)) / float64(s.Len())
	})
}

// Skew は列ごとの歪度（不偏推定量）を返す。デフォルトはNumber列。
func (d *Dataset) Skew(f ...Filter) Summary {
	cols := d.numberOnly(d.Filter(pick(f, Filter{Types: []Type{Number}})))
	return d.columnSummary("Skew", cols, func(s series.Series) float64 {
		x := present(s)
		if len(x) < 3 {
			return math.NaN()
		}
		return stat.Skew(x, nil)
	})
}

// OutlierCount は平均 ± width·標準偏差 の範囲外にある値の数を返す。デフォルトはNumberのInput列。
func (d *Dataset) OutlierCount(width float64, f ...Filter) Summary {
	if width <= 0 {
		width = DefaultOutlierWidth
	}
	cols := d.numberOnly(d.Filter(pick(f, Filter{Roles: []Role{Input}, Types: []Type{Number}})))
	return d.columnSummary("OutlierCount", cols, func(s series.Series) float64 {
		x := present(s)
		if len(x) < 2 {
			return 0
		}
		mean, std := stat.MeanStdDev(x, nil)
		lo, hi := mean-width*std, mean+width*std
		n := 0
		for _, v := range x {
			if v < lo || v > hi {
				n++
			}
		}
		return float64(n)
	})
}

func (d *Dataset) numberOnly(cols []string) []string {
	var out []string
	for _, c := range cols {
		if d.types[c] == Number {
			out = append(out, c)
		}
	}
	return out
}

// CorrOptions は Corr の設定
type CorrOptions struct {
	// Limit が0より大きい場合、相関係数が Limit 以上の列だけを返す
	Limit float64
	// TwoTails が真の場合は相関係数の絶対値で Limit と比較する
	TwoTails bool
	// Filter が nil の場合はNumberのInput列
	Filter *Filter
}

// Corr は各Number列とTarget列の相関係数を降順で返す。Target列自身は含まれない。
func (d *Dataset) Corr(opts CorrOptions) (Summary, error) {
	targetName, err := d.TargetName()
	if err != nil {
		return Summary{}, err
	}
	if d.types[targetName] != Number {
		return Summary{}, errors.NewValueError("Dataset.Corr", "target column '"+targetName+"' is not a Number")
	}

	f := Filter{Roles: []Role{Input}, Types: []Type{Number}}
	if opts.Filter != nil {
		f = *opts.Filter
	}
	var cols []string
	for _, c := range d.numberOnly(d.Filter(f)) {
		if c != targetName {
			cols = append(cols, c)
		}
	}

	target := d.frame.Col(targetName)
	summary := d.columnSummary("Corr", cols, func(s series.Series) float64 {
		return pairwiseCorrelation(s, target)
	})
	if opts.Limit > 0 {
		summary = summary.Where(func(_ string, v float64) bool {
			if opts.TwoTails {
				return math.Abs(v) >= opts.Limit
			}
			return v >= opts.Limit
		})
	}
	return summary.Sorted(true), nil
}

// CorrMatrix はNumber列どうしの相関行列を返す。欠損値はペアごとに除外される。
func (d *Dataset) CorrMatrix(f ...Filter) (*mat.SymDense, []string, error) {
	cols := d.numberOnly(d.Filter(pick(f, Filter{Types: []Type{Number}})))
	if len(cols) == 0 {
		return nil, nil, ErrNoColumns
	}
	m := mat.NewSymDense(len(cols), nil)
	for i := range cols {
		si := d.frame.Col(cols[i])
		m.SetSym(i, i, 1)
		for j := i + 1; j < len(cols); j++ {
			m.SetSym(i, j, pairwiseCorrelation(si, d.frame.Col(cols[j])))
		}
	}
	return m, cols, nil
}

func pairwiseCorrelation(a, b series.Series) float64 {
	ma, mb := missingMask(a), missingMask(b)
	fa, fb := a.Float(), b.Float()
	var x, y []float64
	for i := range fa {
		if ma[i] || mb[i] || math.IsNaN(fa[i]) || math.IsNaN(fb[i]) {
			continue
		}
		x = append(x, fa[i])
		y = append(y, fb[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

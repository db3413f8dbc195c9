package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Summary はラベル付きの数値列です。列ごとの統計量とモデルごとのスコアの両方に使います。
type Summary struct {
	Name   string
	Labels []string
	Values []float64
}

// Len returns the number of entries.
func (s Summary) Len() int { return len(s.Labels) }

// Value はラベルに対応する値を返す
func (s Summary) Value(label string) (float64, bool) {
	for i, l := range s.Labels {
		if l == label {
			return s.Values[i], true
		}
	}
	return 0, false
}

// Sorted は値で並べ替えたコピーを返す。NaNは常に末尾に置かれる。
func (s Summary) Sorted(descending bool) Summary {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := s.Values[idx[a]], s.Values[idx[b]]
		switch {
		case math.IsNaN(va):
			return false
		case math.IsNaN(vb):
			return true
		case descending:
			return va > vb
		default:
			return va < vb
		}
	})

	out := Summary{Name: s.Name, Labels: make([]string, len(idx)), Values: make([]float64, len(idx))}
	for i, j := range idx {
		out.Labels[i] = s.Labels[j]
		out.Values[i] = s.Values[j]
	}
	return out
}

// Where は keep が真を返すエントリだけを残したコピーを返す
func (s Summary) Where(keep func(label string, v float64) bool) Summary {
	out := Summary{Name: s.Name}
	for i, l := range s.Labels {
		if keep(l, s.Values[i]) {
			out.Labels = append(out.Labels, l)
			out.Values = append(out.Values, s.Values[i])
		}
	}
	return out
}

// Frame はラベル列と値列の2列のフレームを返す
func (s Summary) Frame(labelName string) dataframe.DataFrame {
	return dataframe.New(
		series.New(s.Labels, series.String, labelName),
		series.New(s.Values, series.Float, s.Name),
	)
}

func (s Summary) String() string {
	width := 0
	for _, l := range s.Labels {
		if len(l) > width {
			width = len(l)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Name)
	for i, l := range s.Labels {
		fmt.Fprintf(&b, "%-*s  %.6g\n", width, l, s.Values[i])
	}
	return b.String()
}

package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// ToNumber は数字・符号・小数点・指数以外の文字（通貨記号や桁区切りなど）を取り除いてから数値に変換する。
// 変換できない場合はNaN。
func ToNumber(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
			return r
		default:
			return -1
		}
	}, s)
	if cleaned == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Update はNumber型なのに文字列として保持されている列を ToNumber で数値列に変換する
func (d *Dataset) Update() {
	for _, c := range d.Filter(Filter{Types: []Type{Number}}) {
		s := d.frame.Col(c)
		if s.Type() != series.String {
			continue
		}
		mask := missingMask(s)
		records := s.Records()
		values := make([]float64, len(records))
		for i, rec := range records {
			if mask[i] {
				values[i] = math.NaN()
				continue
			}
			values[i] = ToNumber(rec)
		}
		d.frame = d.frame.Mutate(series.New(values, series.Float, c))
	}
}

// FillNA はInput列の欠損値を、Number列では平均値、Category列では最頻値で補完する。
// cols を省略するとすべてのInput列が対象になる。Input以外の列は指定されても変更しない。
// 最頻値が複数ある場合は辞書順で最小の値を使う。
func (d *Dataset) FillNA(cols ...string) error {
	cols, err := d.resolve("Dataset.FillNA", cols, Filter{Roles: []Role{Input}})
	if err != nil {
		return err
	}

	filled := 0
	for _, c := range cols {
		if d.roles[c] != Input {
			continue
		}
		s := d.frame.Col(c)
		mask := missingMask(s)
		if !anyTrue(mask) {
			continue
		}

		switch d.types[c] {
		case Number:
			values := s.Float()
			mean, ok := meanIgnoringMissing(values, mask)
			if !ok {
				d.logger.Warn("Column has no values to compute a mean from", log.ColumnKey, c)
				continue
			}
			d.setFloats(c, values, mask, mean)
		case Category:
			mode, ok := modeIgnoringMissing(s.Records(), mask)
			if !ok {
				d.logger.Warn("Column has no values to compute a mode from", log.ColumnKey, c)
				continue
			}
			d.setStrings(c, s.Records(), mask, mode)
		}
		filled++
	}
	d.logger.Debug("Missing values filled", log.OperationKey, log.OperationFillNA, log.ColumnsKey, filled)
	return nil
}

// FillNAValue は欠損値を固定値で補完する。
// 文字列の値はCategory列を、数値の値はNumber列を補完する。Reject列は変更しない。
// cols を省略すると値の種類に合う型のすべての列が対象になる。
func (d *Dataset) FillNAValue(value any, cols ...string) error {
	var (
		kind   Type
		number float64
		text   string
	)
	switch v := value.(type) {
	case string:
		kind, text = Category, v
	case float64:
		kind, number = Number, v
	case float32:
		kind, number = Number, float64(v)
	case int:
		kind, number = Number, float64(v)
	case int64:
		kind, number = Number, float64(v)
	case int32:
		kind, number = Number, float64(v)
	default:
		return errors.NewValidationError("value", "must be a string or a number", value)
	}

	cols, err := d.resolve("Dataset.FillNAValue", cols, Filter{Types: []Type{kind}})
	if err != nil {
		return err
	}
	for _, c := range cols {
		if d.roles[c] == Reject || d.types[c] != kind {
			continue
		}
		s := d.frame.Col(c)
		mask := missingMask(s)
		if !anyTrue(mask) {
			continue
		}
		if kind == Number {
			d.setFloats(c, s.Float(), mask, number)
		} else {
			d.setStrings(c, s.Records(), mask, text)
		}
	}
	return nil
}

func (d *Dataset) setFloats(col string, values []float64, mask []bool, fill float64) {
	for i, m := range mask {
		if m {
			values[i] = fill
		}
	}
	d.frame = d.frame.Mutate(series.New(values, series.Float, col))
}

func (d *Dataset) setStrings(col string, records []string, mask []bool, fill string) {
	for i, m := range mask {
		if m {
			records[i] = fill
		}
	}
	d.frame = d.frame.Mutate(series.New(records, series.String, col))
}

func anyTrue(mask []bool) bool {
	for _, m := range mask {
		if m {
			return true
		}
	}
	return false
}

func meanIgnoringMissing(values []float64, mask []bool) (float64, bool) {
	var sum float64
	n := 0
	for i, v := range values {
		if !mask[i] && !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func modeIgnoringMissing(records []string, mask []bool) (string, bool) {
	counts := make(map[string]int)
	for i, r := range records {
		if !mask[i] {
			counts[r]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}

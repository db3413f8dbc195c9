package dataset

import (
	"strings"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/YuminosukeSato/copper/pkg/errors"
)

// JoinType は結合方法
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinOuter JoinType = "outer"
)

// Match はすべての列をRejectにしたあと、other に存在する列のロールと型を other からコピーする。
// テストデータのメタデータを訓練データに揃えるために使う。
func (d *Dataset) Match(other *Dataset) {
	for _, c := range d.frame.Names() {
		d.roles[c] = Reject
		if r, ok := other.roles[c]; ok {
			d.roles[c] = r
			d.types[c] = other.types[c]
		}
	}
}

// Join は other と結合した新しいデータセットを返す。
// keys を省略すると行の位置で横に連結する（行数が一致している必要がある）。
// how が空なら外部結合。キー以外で列名が重複する場合はエラー。メタデータは d、other の順にコピーされ、後のものが優先される。
func (d *Dataset) Join(other *Dataset, how JoinType, keys ...string) (*Dataset, error) {
	if err := d.requireColumns("Dataset.Join", keys...); err != nil {
		return nil, err
	}
	if err := other.requireColumns("Dataset.Join", keys...); err != nil {
		return nil, err
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var overlap []string
	for _, c := range other.frame.Names() {
		if _, ok := d.roles[c]; ok && !isKey[c] {
			overlap = append(overlap, c)
		}
	}
	if len(overlap) > 0 {
		return nil, errors.NewValueError("Dataset.Join", "columns overlap: "+strings.Join(overlap, ", "))
	}

	var frame dataframe.DataFrame
	if len(keys) == 0 {
		if d.Len() != other.Len() {
			return nil, errors.NewDimensionError("Dataset.Join", d.Len(), other.Len(), 0)
		}
		frame = d.frame.CBind(other.frame)
	} else {
		switch how {
		case JoinInner:
			frame = d.frame.InnerJoin(other.frame, keys...)
		case JoinLeft:
			frame = d.frame.LeftJoin(other.frame, keys...)
		case JoinOuter, "":
			frame = d.frame.OuterJoin(other.frame, keys...)
		default:
			return nil, errors.NewValidationError("how", "must be one of inner, left, outer", how)
		}
	}
	if frame.Err != nil {
		return nil, errors.Wrap(frame.Err, "dataset.Join")
	}

	out := &Dataset{
		frame:  frame,
		roles:  make(map[string]Role, frame.Ncol()),
		types:  make(map[string]Type, frame.Ncol()),
		logger: d.logger,
	}
	for _, src := range []*Dataset{d, other} {
		for c, r := range src.roles {
			out.roles[c] = r
			out.types[c] = src.types[c]
		}
	}
	return out, nil
}

// JoinAll は datasets を順番に結合する
func JoinAll(how JoinType, datasets []*Dataset, keys ...string) (*Dataset, error) {
	if len(datasets) == 0 {
		return nil, errors.ErrEmptyData
	}
	out := datasets[0]
	for _, next := range datasets[1:] {
		joined, err := out.Join(next, how, keys...)
		if err != nil {
			return nil, err
		}
		out = joined
	}
	return out, nil
}

var nameReplacer = strings.NewReplacer(" ", "", ".", "", "-", "")

// FixName は列名から空白・ドット・ハイフンを取り除き、アクセント記号を落とす
func FixName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return nameReplacer.Replace(folded)
}

// FixNames はすべての列名に FixName を適用する。メタデータも名前に追従する。
// 変換後の名前が空になる、または重複する場合は何も変更せずエラーを返す。
func (d *Dataset) FixNames() error {
	old := d.frame.Names()
	fixed := make([]string, len(old))
	seen := make(map[string]bool, len(old))
	for i, c := range old {
		fixed[i] = FixName(c)
		if fixed[i] == "" {
			return errors.NewValueError("Dataset.FixNames", "column '"+c+"' has an empty name after fixing")
		}
		if seen[fixed[i]] {
			return errors.NewValueError("Dataset.FixNames", "duplicate column name '"+fixed[i]+"' after fixing")
		}
		seen[fixed[i]] = true
	}

	frame := d.frame.Copy()
	if err := frame.SetNames(fixed...); err != nil {
		return errors.Wrap(err, "dataset.FixNames")
	}
	roles := make(map[string]Role, len(old))
	types := make(map[string]Type, len(old))
	for i, c := range old {
		roles[fixed[i]] = d.roles[c]
		types[fixed[i]] = d.types[c]
	}
	d.frame, d.roles, d.types = frame, roles, types
	return nil
}

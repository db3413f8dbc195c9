package dataset

import (
	"strings"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/copper/pkg/errors"
)

// Role は列がモデリングで果たす役割
type Role string

const (
	ID     Role = "ID"
	Input  Role = "Input"
	Target Role = "Target"
	Reject Role = "Reject"
)

// Type は列の論理的な型
type Type string

const (
	Number   Type = "Number"
	Category Type = "Category"
)

// ParseRole は設定ファイルなどで使う大文字小文字を区別しない名前からRoleを返す
func ParseRole(s string) (Role, error) {
	for _, r := range []Role{ID, Input, Target, Reject} {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", errors.NewValidationError("role", "must be one of ID, Input, Target, Reject", s)
}

// ParseType は大文字小文字を区別しない名前からTypeを返す
func ParseType(s string) (Type, error) {
	for _, t := range []Type{Number, Category} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", errors.NewValidationError("type", "must be one of Number, Category", s)
}

// Filter はロールと型で列を選択する。空のスライスは「すべて」を意味する。
type Filter struct {
	Roles []Role
	Types []Type
}

// Match reports whether a column with role r and type t passes the filter.
func (f Filter) Match(r Role, t Type) bool {
	return (len(f.Roles) == 0 || containsRole(f.Roles, r)) &&
		(len(f.Types) == 0 || containsType(f.Types, t))
}

func containsRole(rs []Role, r Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

func containsType(ts []Type, t Type) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

// inferType maps a gota column type onto the logical type.
func inferType(s series.Series) Type {
	switch s.Type() {
	case series.Int, series.Float:
		return Number
	default:
		return Category
	}
}

func seriesType(t Type) series.Type {
	if t == Number {
		return series.Float
	}
	return series.String
}

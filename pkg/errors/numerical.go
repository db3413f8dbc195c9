package errors

import (
	"fmt"
	"math"
)

// MissingValueError は機械学習用の行列に欠損値（NaN）が残っている場合のエラーです。
type MissingValueError struct {
	Op     string
	Column string
	Row    int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("copper: %s: missing value in column '%s' at row %d; call FillNA first", e.Op, e.Column, e.Row)
}

// NewMissingValueError は新しいMissingValueErrorを作成し、スタックトレースを付与します。
func NewMissingValueError(op, column string, row int) error {
	return WithStack(&MissingValueError{Op: op, Column: column, Row: row})
}

// CheckMatrix は行列の全要素を走査し、NaNまたはInfを含む最初の要素をエラーとして返します。
// columns は列番号からエラーメッセージ用の列名への対応です。
func CheckMatrix(op string, matrix interface{ At(int, int) float64 }, rows, cols int, columns []string) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				name := ""
				if j < len(columns) {
					name = columns[j]
				}
				return NewMissingValueError(op, name, i)
			}
		}
	}
	return nil
}

// SafeDivide は分母が0の場合にNaNを返す除算です。
// 0件のクラスに対する正解率のように、値が定義できないことを呼び出し側に伝えるために使います。
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return math.NaN()
	}
	return numerator / denominator
}

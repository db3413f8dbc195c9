package main

import (
	"sort"

	"github.com/YuminosukeSato/scigo/sklearn/linear_model"

	"github.com/YuminosukeSato/copper/core/model"
	"github.com/YuminosukeSato/copper/pkg/errors"
)

type factory func(params map[string]float64) model.Model

// registry は実行ファイルの models[].kind から推定器を作る関数への対応
var registry = map[string]factory{
	"logistic_regression": func(p map[string]float64) model.Model {
		var opts []linear_model.LogisticRegressionOption
		if v, ok := p["c"]; ok {
			opts = append(opts, linear_model.WithLRC(v))
		}
		if v, ok := p["max_iter"]; ok {
			opts = append(opts, linear_model.WithLRMaxIter(int(v)))
		}
		if v, ok := p["tol"]; ok {
			opts = append(opts, linear_model.WithLRTol(v))
		}
		if v, ok := p["random_state"]; ok {
			opts = append(opts, linear_model.WithLRRandomState(int64(v)))
		}
		return linear_model.NewLogisticRegression(opts...)
	},
	"passive_aggressive": func(p map[string]float64) model.Model {
		return linear_model.NewPassiveAggressiveClassifier(paOptions(p)...)
	},
	"passive_aggressive_regressor": func(p map[string]float64) model.Model {
		return linear_model.NewPassiveAggressiveRegressor(paOptions(p)...)
	},
	"linear_regression": func(p map[string]float64) model.Model {
		var opts []linear_model.LinearRegressionOption
		if v, ok := p["fit_intercept"]; ok {
			opts = append(opts, linear_model.WithLRFitIntercept(v != 0))
		}
		return linear_model.NewLinearRegression(opts...)
	},
}

func paOptions(p map[string]float64) []linear_model.PassiveAggressiveOption {
	var opts []linear_model.PassiveAggressiveOption
	if v, ok := p["c"]; ok {
		opts = append(opts, linear_model.WithPAC(v))
	}
	if v, ok := p["max_iter"]; ok {
		opts = append(opts, linear_model.WithPAMaxIter(int(v)))
	}
	if v, ok := p["fit_intercept"]; ok {
		opts = append(opts, linear_model.WithPAFitIntercept(v != 0))
	}
	return opts
}

// NewModel は kind の推定器を params で作成する
func NewModel(kind string, params map[string]float64) (model.Model, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, errors.NewUnknownModelError(kind)
	}
	return f(params), nil
}

// Kinds は登録されている推定器の種類を昇順で返す
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

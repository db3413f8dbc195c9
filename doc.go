// Package copper は表形式データに列のロールと型を付与し、複数の予測モデルを
// 同じ訓練・テストデータで学習させて比較するためのライブラリです。
//
// モデルそのものは実装せず、gonumの mat.Matrix を受け付ける外部の推定器
// （scigoの linear_model など）をそのまま登録して使います。
//
// # Packages
//
//   - dataset: ロール（ID / Input / Target / Reject）と型（Number / Category）付きのデータセット。
//     CSV・SQLからの読み込み、欠損値補完、結合、列の統計量
//   - transform: データセットと行列の変換（one-hot、ラベルエンコード、標準化、PCA）
//   - compare: モデル比較のハーネス。評価指標、混同行列、コスト表、ROC
//   - metrics: Accuracy、混同行列、MSE、RMSLE、ROC/AUC など
//   - chart: gonum/plot によるヒストグラム、散布図、ROC、混同行列
//   - preprocessing: StandardScaler、MinMaxScaler
//   - core/model: 比較対象のモデルが満たすインターフェース
//   - core/parallel: 並列実行のユーティリティ
//   - pkg/errors, pkg/log: 構造化エラーとzerologによる構造化ログ
//
// # Quick Start
//
//	ds, err := dataset.Load("loans.csv", dataset.WithDataDir("data"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = ds.SetRole(dataset.Reject, "zip_code")
//	_ = ds.FillNA()
//
//	mc := compare.New(compare.WithStandardize())
//	if err := mc.Sample(ds, 0.7, 42); err != nil {
//	    log.Fatal(err)
//	}
//	_ = mc.Add("logistic", linear_model.NewLogisticRegression())
//	_ = mc.Add("pa", linear_model.NewPassiveAggressiveClassifier())
//	if err := mc.Fit(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	acc, _ := mc.Accuracy()
//	fmt.Println(acc)
//	profit, _ := mc.Profit(compare.ColProfit)
//	fmt.Println(profit)
//
// コマンドラインからは cmd/copper がYAMLの実行ファイルで同じ流れを実行します。
package copper

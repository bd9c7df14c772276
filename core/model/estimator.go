// Package model は推定器・変換器の共通インターフェースと学習状態の管理を提供します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習と予測ができ、学習状態を報告できるモデル
type Estimator interface {
	Fitter
	Predictor
	IsFitted() bool
}

// Scorer はスコアを計算できるモデル
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// ParameterGetter はハイパーパラメータを公開するモデル。
// レポートの "Model Parameters" セクションはこの戻り値から作られる。
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// Classifier は分類器のインターフェース
type Classifier interface {
	Estimator
	Scorer
	ParameterGetter

	// PredictProba は各クラスの確率を (n_samples, n_classes) で返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に見たクラスラベルを昇順で返す
	Classes() []float64
}

// FeatureImportancer は不純度減少に基づく特徴量重要度を返すモデル
type FeatureImportancer interface {
	FeatureImportances() ([]float64, error)
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	Estimator
	Scorer

	// Coefficients は学習された係数を返す
	Coefficients() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
}

// Package linear は最小二乗法による線形回帰と、回帰式から計画行列を組み立てる機能を提供します。
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/core/model"
	"github.com/YuminosukeSato/forestfire/core/parallel"
	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool

	weights   *mat.VecDense // 重み（係数）
	intercept float64       // 切片
}

var _ model.LinearModel = (*LinearRegression)(nil)

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// IsFitted reports whether Fit has completed.
func (lr *LinearRegression) IsFitted() bool { return lr.state.IsFitted() }

// Fit はモデルを訓練データで学習させる。
// 計画行列 [1, X] に対する最小二乗問題をQR分解で解く。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	if c+offset == 0 {
		return errors.NewValueError("LinearRegression.Fit", "no regressors and no intercept")
	}
	if r < c+offset {
		return errors.NewModelError("LinearRegression.Fit",
			fmt.Sprintf("underdetermined system (%d rows, %d parameters)", r, c+offset), errors.ErrSingularMatrix)
	}

	design := mat.NewDense(r, c+offset, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	if err := errors.CheckMatrix("LinearRegression.Fit", design, r, c+offset); err != nil {
		return err
	}

	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, yVec); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix",
			errors.Wrap(errors.ErrSingularMatrix, err.Error()))
	}

	lr.intercept = 0
	if offset == 1 {
		lr.intercept = beta.AtVec(0)
	}
	lr.weights = &mat.VecDense{}
	if c > 0 {
		lr.weights = mat.NewVecDense(c, nil)
		for j := 0; j < c; j++ {
			lr.weights.SetVec(j, beta.AtVec(j+offset))
		}
	}

	lr.state.SetFitted(c, r)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.state.CheckFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	// 予測: y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Coefficients は学習された重み（係数）を返す
func (lr *LinearRegression) Coefficients() []float64 {
	if lr.weights == nil {
		return nil
	}
	out := make([]float64, lr.weights.Len())
	for i := range out {
		out[i] = lr.weights.AtVec(i)
	}
	return out
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := columnOf(y)
	if err != nil {
		return 0, err
	}
	p, _ := columnOf(yPred)
	return metrics.R2Score(yTrue, p)
}

// GetParams returns the hyperparameters in scikit-learn naming.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": lr.fitIntercept}
}

func columnOf(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError("LinearRegression.Score", "y must be a column vector")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

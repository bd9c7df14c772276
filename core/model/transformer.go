package model

import "gonum.org/v1/gonum/mat"

// Transformer は列ごとの統計量を学習して適用する変換器
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
	IsFitted() bool
}

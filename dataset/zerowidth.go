package dataset

import "gonum.org/v1/gonum/mat"

// ZeroWidth is a matrix with rows and no columns. gonum's Dense cannot have
// a zero dimension, but estimators fitted on a table without feature
// columns still need to know how many rows they see.
type ZeroWidth int

// Dims implements mat.Matrix.
func (z ZeroWidth) Dims() (int, int) { return int(z), 0 }

// At implements mat.Matrix. There are no elements, so every index is out
// of range.
func (z ZeroWidth) At(i, j int) float64 { panic(mat.ErrIndexOutOfRange) }

// T implements mat.Matrix.
func (z ZeroWidth) T() mat.Matrix { return mat.Transpose{Matrix: z} }

// FeatureMatrix is Matrix, but returns ZeroWidth instead of nil when cols
// is empty.
func (t *Table) FeatureMatrix(cols []string) (mat.Matrix, error) {
	if len(cols) == 0 {
		if t.nrows == 0 {
			return nil, errEmpty()
		}
		return ZeroWidth(t.nrows), nil
	}
	return t.Matrix(cols)
}

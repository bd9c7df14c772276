// Package model_selection provides deterministic train/test splitting and
// k-fold cross-validation splitters.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// Split holds row indices of one train/test partition.
type Split struct {
	TrainIndices []int
	TestIndices  []int
}

// newRand returns the PCG source used by every splitter for a given seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// TestCount returns ceil(testSize * n), the number of held-out rows.
func TestCount(n int, testSize float64) int {
	return int(math.Ceil(testSize * float64(n)))
}

// TrainTestSplit permutes [0, n) with a PCG seeded by seed and holds out
// the first ceil(testSize*n) positions. The same (n, testSize, seed) always
// yields the same split.
func TrainTestSplit(n int, testSize float64, seed uint64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := TestCount(n, testSize)
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return Split{}, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%v the resulting train set would be empty", n, testSize))
	}

	perm := newRand(seed).Perm(n)
	return Split{
		TestIndices:  perm[:nTest],
		TrainIndices: perm[nTest:],
	}, nil
}

// Rows copies the given rows of X into a new matrix. A zero-width X
// yields a zero-width result.
func Rows(X mat.Matrix, indices []int) mat.Matrix {
	_, c := X.Dims()
	if c == 0 {
		return dataset.ZeroWidth(len(indices))
	}
	if len(indices) == 0 {
		return nil
	}
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

// Values picks y[indices] into a new slice.
func Values(y []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}

package model_selection

import (
	"sort"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// KFold splits [0, n) into NSplits consecutive folds, optionally after a
// seeded shuffle. The first n%NSplits folds get one extra row.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter. nSplits below 2 defaults to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// Split returns one Split per fold.
func (kf *KFold) Split(n int) ([]Split, error) {
	if n < kf.NSplits {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", kf.NSplits)
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := newRand(kf.RandomSeed)
		r.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	folds := make([]Split, kf.NSplits)
	foldSize, remainder := n/kf.NSplits, n%kf.NSplits
	start := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		test := append([]int(nil), indices[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[start+size:]...)
		sort.Ints(test)
		sort.Ints(train)
		folds[i] = Split{TrainIndices: train, TestIndices: test}
		start += size
	}
	return folds, nil
}

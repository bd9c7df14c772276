package workflow

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/ledger"
	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/model_selection"
	"github.com/YuminosukeSato/forestfire/observability"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
	"github.com/YuminosukeSato/forestfire/pkg/log"
	"github.com/YuminosukeSato/forestfire/report"
	"github.com/YuminosukeSato/forestfire/sklearn/ensemble"
)

// ModelFeatures returns the numeric columns of t except the label and the
// excluded names, in table order.
func ModelFeatures(t *dataset.Table, label string, exclude []string) []string {
	var out []string
	for _, name := range t.NumericColumns() {
		if name == label || slices.Contains(exclude, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Model splits the data at in, fits the random forest on the training rows,
// evaluates it on the test rows and writes the text report to reportPath
// plus its JSON record next to it. With cv_folds >= 2 it also cross-validates
// on the training rows; with ledger_path set it records the run.
func (r *Runner) Model(ctx context.Context, in, reportPath string) (*report.Report, error) {
	var rep *report.Report
	err := r.run(ctx, StageModel, func(logger log.Logger, runID string) error {
		t, err := r.load(StageModel, in, logger)
		if err != nil {
			return err
		}
		label := r.cfg.Label
		if !t.Has(label) {
			return errors.NewColumnError("Model", label)
		}
		y, err := t.Floats(label)
		if err != nil {
			return err
		}
		if err := errors.CheckNumericalStability("Model: label "+label, y); err != nil {
			return err
		}

		logger.Info("Preparing data for modeling")
		features := ModelFeatures(t, label, r.cfg.ExcludeColumns)
		logger.Info("Using features", log.ColumnsKey, features)
		X, err := t.FeatureMatrix(features)
		if err != nil {
			return err
		}

		split, err := model_selection.TrainTestSplit(t.NRows(), r.cfg.TestSize, r.cfg.RandomSeed)
		if err != nil {
			return err
		}
		Xtr := model_selection.Rows(X, split.TrainIndices)
		Xte := model_selection.Rows(X, split.TestIndices)
		ytr := model_selection.Values(y, split.TrainIndices)
		yte := model_selection.Values(y, split.TestIndices)
		logger.Info("Split data",
			"train_size", len(ytr), "train_classes", classBalance(ytr),
			"test_size", len(yte), "test_classes", classBalance(yte),
		)

		logger.Info("Training Random Forest model")
		forest := r.newForest(logger)
		if err := forest.Fit(Xtr, column(ytr)); err != nil {
			return err
		}
		shape := forestShape(forest)
		logger.Debug("Forest grown",
			log.TreesKey, shape.Trees, log.NodesKey, shape.Nodes, log.DepthKey, shape.MaxDepth)

		logger.Info("Evaluating model")
		pred, err := forest.Predict(Xte)
		if err != nil {
			return err
		}
		yPred := mat.Col(nil, 0, pred)
		cr, err := metrics.NewClassificationReport(yte, yPred)
		if err != nil {
			return err
		}
		cm, err := metrics.NewConfusionMatrix(yte, yPred)
		if err != nil {
			return err
		}
		logger.Info("Test accuracy", log.AccuracyKey, cr.Accuracy)
		r.metrics.ModelAccuracy.Set(cr.Accuracy)

		rocAUC, logLoss, err := binaryScores(forest, Xte, ytr, yte)
		if err != nil {
			return err
		}
		if rocAUC != nil {
			logger.Info("Test ROC AUC", log.AUCKey, *rocAUC, log.LogLossKey, *logLoss)
			r.metrics.ModelAUC.Set(*rocAUC)
		}

		logger.Info("Analyzing feature importance")
		imps, err := forest.FeatureImportances()
		if err != nil {
			return err
		}

		rep = &report.Report{
			Version:         report.RecordVersion,
			RunID:           runID,
			CreatedAt:       observability.Now().UTC(),
			Input:           in,
			Label:           label,
			Classification:  cr,
			ConfusionMatrix: cm,
			ROCAUC:          rocAUC,
			LogLoss:         logLoss,
			Importances:     report.SortImportances(features, imps),
			Params:          forest.GetParams(),
			Forest:          shape,
			TrainSize:       len(ytr),
			TestSize:        len(yte),
			Features:        features,
		}

		if k := r.cfg.CVFolds; k >= 2 {
			cv, err := r.crossValidate(Xtr, ytr, k, logger)
			if err != nil {
				return err
			}
			rep.CrossValidation = cv
			r.metrics.CVAccuracy.Set(cv.Mean)
		}

		if err := report.WriteTextFile(reportPath, rep); err != nil {
			return err
		}
		recPath := report.RecordPath(reportPath)
		if err := report.WriteRecord(recPath, rep); err != nil {
			return err
		}
		logger.Info("Results saved", log.PathKey, reportPath, "record", recPath)

		if r.cfg.LedgerPath != "" {
			if err := r.recordRun(ctx, ledger.FromReport(rep, reportPath)); err != nil {
				return err
			}
			logger.Info("Run recorded", log.PathKey, r.cfg.LedgerPath)
		}
		return nil
	})
	return rep, err
}

func (r *Runner) newForest(logger log.Logger) *ensemble.RandomForestClassifier {
	return ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(r.cfg.NEstimators),
		ensemble.WithMaxDepth(r.cfg.MaxDepth),
		ensemble.WithRandomState(r.cfg.RandomSeed),
		ensemble.WithNJobs(r.cfg.NJobs),
		ensemble.WithBootstrap(r.cfg.Bootstrap),
		ensemble.WithLogger(logger),
	)
}

func forestShape(f *ensemble.RandomForestClassifier) *report.ForestShape {
	shape := &report.ForestShape{}
	for _, est := range f.Estimators() {
		shape.Trees++
		shape.Nodes += est.GetNodeCount()
		shape.Leaves += est.GetNLeaves()
		if d := est.GetDepth(); d > shape.MaxDepth {
			shape.MaxDepth = d
		}
	}
	return shape
}

// crossValidate scores a fresh forest on each shuffled fold of the
// training rows. Std is the population standard deviation.
func (r *Runner) crossValidate(X mat.Matrix, y []float64, k int, logger log.Logger) (*report.CrossValidation, error) {
	folds, err := model_selection.NewKFold(k, true, r.cfg.RandomSeed).Split(len(y))
	if err != nil {
		return nil, err
	}
	cv := &report.CrossValidation{Folds: k, Scores: make([]float64, len(folds))}
	for i, fold := range folds {
		f := r.newForest(logger)
		if err := f.Fit(model_selection.Rows(X, fold.TrainIndices), column(model_selection.Values(y, fold.TrainIndices))); err != nil {
			return nil, errors.Wrapf(err, "fold %d", i+1)
		}
		score, err := f.Score(model_selection.Rows(X, fold.TestIndices), column(model_selection.Values(y, fold.TestIndices)))
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i+1)
		}
		cv.Scores[i] = score
		logger.Debug("Cross-validation fold", "fold", i+1, log.AccuracyKey, score)
	}
	cv.Mean, cv.Std = stat.PopMeanStdDev(cv.Scores, nil)
	logger.Info("Cross-validation", "folds", k, "mean", cv.Mean, "std", cv.Std)
	return cv, nil
}

// binaryScores returns the test ROC AUC and log loss when the labels seen in
// training and test are exactly two classes, scoring the larger class as
// positive. Both are nil otherwise.
func binaryScores(f *ensemble.RandomForestClassifier, Xte mat.Matrix, ytr, yte []float64) (auc, logLoss *float64, err error) {
	classes := f.Classes()
	seen := map[float64]bool{}
	for _, v := range append(append([]float64(nil), ytr...), yte...) {
		seen[v] = true
	}
	if len(classes) != 2 || len(seen) != 2 {
		return nil, nil, nil
	}
	proba, err := f.PredictProba(Xte)
	if err != nil {
		return nil, nil, err
	}
	n := len(yte)
	yTrue := mat.NewVecDense(n, nil)
	yScore := mat.NewVecDense(n, nil)
	for i, v := range yte {
		if v == classes[1] {
			yTrue.SetVec(i, 1)
		}
		yScore.SetVec(i, proba.At(i, 1))
	}
	a, err := metrics.AUC(yTrue, yScore)
	if err != nil {
		return nil, nil, err
	}
	ll, err := metrics.BinaryLogLoss(yTrue, yScore)
	if err != nil {
		return nil, nil, err
	}
	return &a, &ll, nil
}

func (r *Runner) recordRun(ctx context.Context, run ledger.Run) error {
	l, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()
	return l.Record(ctx, run)
}

func (r *Runner) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	path := r.cfg.LedgerPath
	if path == "" {
		return nil, errors.NewValidationError("ledger_path", "no run ledger configured", path)
	}
	return ledger.Open(ctx, path)
}

// Runs lists the most recent runs recorded in the configured ledger.
func (r *Runner) Runs(ctx context.Context, limit int) ([]ledger.Run, error) {
	l, err := r.openLedger(ctx)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.List(ctx, limit)
}

// LookupRun returns one recorded run by id.
func (r *Runner) LookupRun(ctx context.Context, id string) (*ledger.Run, error) {
	l, err := r.openLedger(ctx)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Get(ctx, id)
}

func column(y []float64) *mat.Dense {
	return mat.NewDense(len(y), 1, append([]float64(nil), y...))
}

// classBalance renders per-class counts as "0:12 1:8".
func classBalance(y []float64) string {
	counts := map[float64]int{}
	for _, v := range y {
		counts[v]++
	}
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", dataset.FormatFloat(k), counts[k])
	}
	return strings.Join(parts, " ")
}

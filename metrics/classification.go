package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// logLossEps はlog(0)を避けるためのクリップ幅
const logLossEps = 1e-15

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, fmt.Sprintf("labels must be 0 or 1, got %v at index %d", v, i))
		}
	}
	return nil
}

// AUC はROC曲線下面積をランク統計量から計算する。
// 同順位のスコアには平均順位を割り当てる。正例または負例が存在しない場合は 0.5 を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var nPos, rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
			rankSum += ranks[i]
		}
	}
	nNeg := float64(n) - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// BinaryLogLoss は二値分類の交差エントロピー損失を計算する
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}
	var loss float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yProb.AtVec(i), logLossEps), 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

func checkLabels(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty labels")
	}
	if len(yTrue) != len(yPred) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// uniqueLabels returns the sorted union of labels in ys.
func uniqueLabels(ys ...[]float64) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, y := range ys {
		for _, v := range y {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Float64s(out)
	return out
}

// ConfusionMatrix holds counts indexed by [true][predicted] over Labels.
type ConfusionMatrix struct {
	Labels []float64 `json:"labels"`
	Counts [][]int   `json:"counts"`
}

// NewConfusionMatrix は真のラベルと予測ラベルから混同行列を作る
func NewConfusionMatrix(yTrue, yPred []float64) (*ConfusionMatrix, error) {
	if err := checkLabels("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, err
	}
	labels := uniqueLabels(yTrue, yPred)
	pos := make(map[float64]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[pos[yTrue[i]]][pos[yPred[i]]]++
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// String renders the matrix the way numpy prints an integer array:
// elements right-aligned to the widest value, rows bracketed.
func (cm *ConfusionMatrix) String() string {
	width := 1
	for _, row := range cm.Counts {
		for _, c := range row {
			if w := len(fmt.Sprint(c)); w > width {
				width = w
			}
		}
	}
	var b strings.Builder
	b.WriteString("[")
	for i, row := range cm.Counts {
		if i > 0 {
			b.WriteString("\n ")
		}
		b.WriteString("[")
		for j, c := range row {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%*d", width, c)
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}

// ClassScores are the per-class precision, recall, F1 and support.
type ClassScores struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// PrecisionRecallFscoreSupport はクラスごとの適合率・再現率・F1値・サポート数を返す。
// 分母がゼロになる指標は 0 とし、UndefinedMetricWarning を発行する。
func PrecisionRecallFscoreSupport(yTrue, yPred []float64) ([]ClassScores, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	k := len(cm.Labels)
	out := make([]ClassScores, k)
	var undefPrecision, undefRecall bool
	for c := 0; c < k; c++ {
		tp := float64(cm.Counts[c][c])
		var predicted, actual float64
		for r := 0; r < k; r++ {
			predicted += float64(cm.Counts[r][c])
			actual += float64(cm.Counts[c][r])
		}
		s := ClassScores{Label: dataset.FormatFloat(cm.Labels[c]), Support: int(actual)}
		if predicted == 0 {
			undefPrecision = true
		} else {
			s.Precision = tp / predicted
		}
		if actual == 0 {
			undefRecall = true
		} else {
			s.Recall = tp / actual
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		out[c] = s
	}
	if undefPrecision {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples for some labels", 0))
	}
	if undefRecall {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples for some labels", 0))
	}
	return out, nil
}

// ClassificationReport は分類レポートの構造化表現
type ClassificationReport struct {
	Classes     []ClassScores `json:"classes"`
	Accuracy    float64       `json:"accuracy"`
	MacroAvg    ClassScores   `json:"macro_avg"`
	WeightedAvg ClassScores   `json:"weighted_avg"`
	Support     int           `json:"support"`
}

// NewClassificationReport computes per-class scores, accuracy and the macro
// and support-weighted averages.
func NewClassificationReport(yTrue, yPred []float64) (*ClassificationReport, error) {
	classes, err := PrecisionRecallFscoreSupport(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	n := len(yTrue)
	acc, err := Accuracy(mat.NewVecDense(n, append([]float64(nil), yTrue...)), mat.NewVecDense(n, append([]float64(nil), yPred...)))
	if err != nil {
		return nil, err
	}

	k := len(classes)
	p, r, f, w := make([]float64, k), make([]float64, k), make([]float64, k), make([]float64, k)
	for i, c := range classes {
		p[i], r[i], f[i], w[i] = c.Precision, c.Recall, c.F1, float64(c.Support)
	}
	total := floats.Sum(w)
	weighted := func(x []float64) float64 {
		if total == 0 {
			return 0
		}
		return floats.Dot(x, w) / total
	}
	return &ClassificationReport{
		Classes:  classes,
		Accuracy: acc,
		MacroAvg: ClassScores{
			Label:     "macro avg",
			Precision: floats.Sum(p) / float64(k),
			Recall:    floats.Sum(r) / float64(k),
			F1:        floats.Sum(f) / float64(k),
			Support:   n,
		},
		WeightedAvg: ClassScores{
			Label:     "weighted avg",
			Precision: weighted(p),
			Recall:    weighted(r),
			F1:        weighted(f),
			Support:   n,
		},
		Support: n,
	}, nil
}

// String renders the report in the familiar two-decimal tabular layout.
func (cr *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, c := range cr.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(s ClassScores) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, s.Label, s.Precision, s.Recall, s.F1, s.Support)
	}
	for _, c := range cr.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", cr.Accuracy, cr.Support)
	row(cr.MacroAvg)
	row(cr.WeightedAvg)
	return b.String()
}

// Package report はモデル段の結果を、テキストレポートと構造化されたJSONレコードの
// 2つの形式で読み書きします。
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// RecordVersion is the schema version written to every JSON record.
const RecordVersion = 1

// Importance is one feature's mean decrease in impurity.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// SortImportances orders importances descending. Ties keep their original
// (column) order.
func SortImportances(features []string, values []float64) []Importance {
	out := make([]Importance, len(features))
	for i, f := range features {
		out[i] = Importance{Feature: f, Importance: values[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// CrossValidation summarizes k-fold accuracy on the training split.
type CrossValidation struct {
	Folds  int       `json:"folds"`
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// ForestShape は学習済みの木の大きさ
type ForestShape struct {
	Trees    int `json:"trees"`
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	MaxDepth int `json:"max_depth"`
}

// Report はモデル段の成果物
type Report struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Input     string    `json:"input,omitempty"`
	Label     string    `json:"label"`

	Classification  *metrics.ClassificationReport `json:"classification"`
	ConfusionMatrix *metrics.ConfusionMatrix      `json:"confusion_matrix"`
	ROCAUC          *float64                      `json:"roc_auc,omitempty"`
	LogLoss         *float64                      `json:"log_loss,omitempty"`
	CrossValidation *CrossValidation              `json:"cross_validation,omitempty"`

	Importances []Importance           `json:"feature_importances"`
	Params      map[string]interface{} `json:"params"`
	Forest      *ForestShape           `json:"forest,omitempty"`

	TrainSize int      `json:"train_size"`
	TestSize  int      `json:"test_size"`
	Features  []string `json:"features"`
}

// RecordPath returns the JSON record path that accompanies a text report:
// the report path with its extension replaced by ".json".
func RecordPath(reportPath string) string {
	p := strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + ".json"
	if p == reportPath {
		p += ".json"
	}
	return p
}

// WriteRecord は JSON レコードをファイルに書き出す
func WriteRecord(path string, r *Report) error {
	if r.Version == 0 {
		r.Version = RecordVersion
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report record")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write report record %s", path)
	}
	return nil
}

// ReadRecord は JSON レコードを読み込む。未知のバージョンはエラー。
func ReadRecord(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read report record %s", path)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedReport, "decode %s: %v", path, err)
	}
	if r.Version != RecordVersion {
		return nil, errors.NewValidationError("version", "unsupported report record version", r.Version)
	}
	return &r, nil
}

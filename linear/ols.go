package linear

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/forestfire/dataset"
	"github.com/YuminosukeSato/forestfire/metrics"
	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

// OLSResult は回帰式によるOLS推定の結果
type OLSResult struct {
	Formula     string    `json:"formula"`
	Names       []string  `json:"names"`
	Params      []float64 `json:"params"`
	NObs        int       `json:"n_obs"`
	RSquared    float64   `json:"r_squared"`
	AdjRSquared float64   `json:"adj_r_squared"`
	MSE         float64   `json:"mse"`
	RMSE        float64   `json:"rmse"`
	MAE         float64   `json:"mae"`
}

// FitFormula parses formula, builds its design matrix from t and fits an
// ordinary least squares model. Params are ordered like Names; the
// intercept, when present, comes first.
func FitFormula(formula string, t *dataset.Table) (*OLSResult, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}
	d, err := f.Design(t)
	if err != nil {
		return nil, err
	}

	lr := NewLinearRegression(WithFitIntercept(f.Intercept))
	X := d.Matrix()
	if err := lr.Fit(X, d.Y); err != nil {
		return nil, errors.Wrapf(err, "fit %q", f.String())
	}
	pred, err := lr.Predict(X)
	if err != nil {
		return nil, err
	}

	n := len(d.Rows)
	res := &OLSResult{Formula: f.String(), NObs: n}
	if f.Intercept {
		res.Names = append(res.Names, "Intercept")
		res.Params = append(res.Params, lr.Intercept())
	}
	res.Names = append(res.Names, d.Names...)
	res.Params = append(res.Params, lr.Coefficients()...)

	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, d.Y.At(i, 0))
		yPred.SetVec(i, pred.At(i, 0))
	}
	if res.MSE, err = metrics.MSE(yTrue, yPred); err != nil {
		return nil, err
	}
	if res.RMSE, err = metrics.RMSE(yTrue, yPred); err != nil {
		return nil, err
	}
	if res.MAE, err = metrics.MAE(yTrue, yPred); err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		// 応答に分散がない場合、決定係数は定義されない
		errors.Warn(errors.NewUndefinedMetricWarning("r_squared", "constant response", 0))
	}
	res.RSquared = r2
	if dof := n - len(res.Params); dof > 0 && f.Intercept {
		res.AdjRSquared = 1 - (1-r2)*float64(n-1)/float64(dof)
	} else {
		res.AdjRSquared = r2
	}
	return res, nil
}

// Param returns the estimate for the named regressor.
func (r *OLSResult) Param(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Params[i], true
		}
	}
	return 0, false
}

// String renders the estimates one per line followed by fit statistics.
func (r *OLSResult) String() string {
	width := 0
	for _, n := range r.Names {
		width = max(width, len(n))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Formula)
	for i, n := range r.Names {
		fmt.Fprintf(&b, "%-*s  %12.6f\n", width, n, r.Params[i])
	}
	fmt.Fprintf(&b, "No. Observations: %d\n", r.NObs)
	fmt.Fprintf(&b, "R-squared: %.4f\n", r.RSquared)
	fmt.Fprintf(&b, "Adj. R-squared: %.4f\n", r.AdjRSquared)
	fmt.Fprintf(&b, "MSE: %.6f\n", r.MSE)
	fmt.Fprintf(&b, "RMSE: %.6f\n", r.RMSE)
	fmt.Fprintf(&b, "MAE: %.6f\n", r.MAE)
	return b.String()
}

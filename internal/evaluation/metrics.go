// Package evaluation computes regression quality metrics for demand
// forecasts.
package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes forecast quality on one evaluation set
type Metrics struct {
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
	Bias float64 `json:"bias"`

	Samples int `json:"samples"`
}

// Evaluate computes all metrics for a prediction set
func Evaluate(yTrue, yPred []float64) (*Metrics, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("cannot evaluate an empty prediction set")
	}
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("length mismatch: %d true values, %d predictions", len(yTrue), len(yPred))
	}

	return &Metrics{
		RMSE:    RMSE(yTrue, yPred),
		MAPE:    MAPE(yTrue, yPred),
		MAE:     MAE(yTrue, yPred),
		R2:      R2(yTrue, yPred),
		Bias:    Bias(yTrue, yPred),
		Samples: len(yTrue),
	}, nil
}

// RMSE is the root mean squared error
func RMSE(yTrue, yPred []float64) float64 {
	sum := 0.0
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(yTrue)))
}

// MAPE is the mean absolute percentage error. Rows with a zero true
// value are skipped since the ratio is undefined there; all-zero
// targets yield NaN.
func MAPE(yTrue, yPred []float64) float64 {
	sum := 0.0
	count := 0
	for i := range yTrue {
		if yTrue[i] == 0 {
			continue
		}
		sum += math.Abs((yPred[i] - yTrue[i]) / yTrue[i])
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count) * 100
}

// MAE is the mean absolute error
func MAE(yTrue, yPred []float64) float64 {
	sum := 0.0
	for i := range yTrue {
		sum += math.Abs(yPred[i] - yTrue[i])
	}
	return sum / float64(len(yTrue))
}

// R2 is the coefficient of determination
func R2(yTrue, yPred []float64) float64 {
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

// Bias is the mean signed error. Positive bias means the forecast runs
// high on average.
func Bias(yTrue, yPred []float64) float64 {
	sum := 0.0
	for i := range yTrue {
		sum += yPred[i] - yTrue[i]
	}
	return sum / float64(len(yTrue))
}

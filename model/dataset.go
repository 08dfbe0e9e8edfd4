package model

import (
	"go-ml.dev/pkg/selene/samplers"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
	"math"
)

/*
Dataset is a fixed set of batches to evaluate hungry models on
*/
type Dataset struct {
	Batches []*samplers.Batch
}

/*
Performance is loss and per-feature ROC AUC of the model on a dataset
*/
type Performance struct {
	Loss float64
	// AUC is NaN for features having only one class in the dataset
	AUC []float64
}

/*
MeanAUC averages defined AUC values, it's NaN if none is defined
*/
func (p *Performance) MeanAUC() float64 {
	var a []float64
	for _, x := range p.AUC {
		if !math.IsNaN(x) {
			a = append(a, x)
		}
	}
	if len(a) == 0 {
		return math.NaN()
	}
	return stat.Mean(a, nil)
}

func (d Dataset) Len() (n int) {
	for _, b := range d.Batches {
		n += b.Len()
	}
	return
}

/*
Evaluate predicts all batches, loss is averaged by examples
*/
func (d Dataset) Evaluate(m Model, c Criterion) (*Performance, error) {
	var pred, targets [][]float64
	loss := 0.
	for _, b := range d.Batches {
		p, err := m.Predict(b.Sequences)
		if err != nil {
			return nil, err
		}
		l, _ := c.Loss(p, b.Targets)
		loss += l * float64(b.Len())
		pred = append(pred, p...)
		targets = append(targets, b.Targets...)
	}
	if n := d.Len(); n > 0 {
		loss /= float64(n)
	}
	return &Performance{Loss: loss, AUC: AUC(pred, targets, m.NClasses())}, nil
}

/*
AUC calculates ROC AUC for every class column
*/
func AUC(pred, targets [][]float64, nClasses int) []float64 {
	auc := make([]float64, nClasses)
	for j := 0; j < nClasses; j++ {
		y := make([]float64, len(pred))
		classes := make([]bool, len(pred))
		pos := 0
		for i := range pred {
			y[i] = pred[i][j]
			classes[i] = targets[i][j] > .5
			if classes[i] {
				pos++
			}
		}
		if pos == 0 || pos == len(pred) {
			auc[j] = math.NaN()
			continue
		}
		stat.SortWeightedLabeled(y, classes, nil)
		tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
		auc[j] = integrate.Trapezoidal(fpr, tpr)
	}
	return auc
}

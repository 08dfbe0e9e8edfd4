/*
Package model defines capabilities of sequence models, loads model units and trains models
*/
package model

import (
	"go-ml.dev/pkg/zorros"
	"reflect"
)

/*
Model predicts per-class probabilities for flat row-major L×4 one-hot encoded sequences
*/
type Model interface {
	Predict(x [][]float64) ([][]float64, error)
	// Weights returns the live parameters vector, changing it changes the model
	Weights() []float64
	SequenceLength() int
	NClasses() int
}

/*
Differentiable is a model able to be trained by gradient optimizers
*/
type Differentiable interface {
	Model
	// Backward returns gradient of the loss by weights given gradient of the loss by predictions
	Backward(x, dPred [][]float64) ([]float64, error)
}

/*
Criterion is a loss function returning loss value and its gradient by predictions
*/
type Criterion interface {
	Loss(pred, target [][]float64) (float64, [][]float64)
}

/*
Optimizer updates weights in place
*/
type Optimizer interface {
	Step(weights, grads []float64)
}

/*
OptimizerClass creates optimizer with the given arguments
*/
type OptimizerClass func(args Params) (Optimizer, error)

/*
ModelClass creates a model for the sequence length and classes count, seed initializes weights
*/
type ModelClass func(sequenceLength, nClasses int, seed int64) (Model, error)

/*
Params is a set of named float arguments, learning rate, momentum and so on
*/
type Params map[string]float64

/*
Get value of the parameter by name if exists and dflt value otherwise
*/
func (p Params) Get(name string, dflt float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return dflt
}

/*
Copy returns independent copy of parameters
*/
func (p Params) Copy() Params {
	r := Params{}
	for k, v := range p {
		r[k] = v
	}
	return r
}

/*
Apply sets fields referenced by pointers in m, m must have all parameter names
*/
func (p Params) Apply(m map[string]reflect.Value) error {
	for k, v := range p {
		ref, ok := m[k]
		if !ok {
			return zorros.Errorf("optimizer does not have parameter `%v`", k)
		}
		ref.Elem().Set(reflect.ValueOf(v).Convert(ref.Type().Elem()))
	}
	return nil
}

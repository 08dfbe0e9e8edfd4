package model

import (
	"go-ml.dev/pkg/selene/sequences"
	"go-ml.dev/pkg/zorros"
)

const (
	MeanStrands = "mean"
	MaxStrands  = "max"
)

type combiner func(f, r float64) (v, df, dr float64)

func strandCombiner(mode string) (combiner, error) {
	switch mode {
	case MeanStrands:
		return func(f, r float64) (float64, float64, float64) { return (f + r) / 2, .5, .5 }, nil
	case MaxStrands:
		return func(f, r float64) (float64, float64, float64) {
			if f >= r {
				return f, 1, 0
			}
			return r, 0, 1
		}, nil
	}
	return nil, zorros.Errorf("unknown non strand specific mode `%v`, must be %v or %v", mode, MeanStrands, MaxStrands)
}

/*
NonStrandSpecific predicts on the forward and the reverse complement sequences and combines predictions
*/
type NonStrandSpecific struct {
	Model
	Mode    string
	combine combiner
}

func NewNonStrandSpecific(m Model, mode string) (*NonStrandSpecific, error) {
	c, err := strandCombiner(mode)
	if err != nil {
		return nil, err
	}
	return &NonStrandSpecific{Model: m, Mode: mode, combine: c}, nil
}

func reverse(x [][]float64) [][]float64 {
	r := make([][]float64, len(x))
	for i, e := range x {
		r[i] = sequences.ReverseComplementEncoding(e)
	}
	return r
}

func (m *NonStrandSpecific) both(x [][]float64) (rx, f, r [][]float64, err error) {
	rx = reverse(x)
	if f, err = m.Model.Predict(x); err != nil {
		return
	}
	r, err = m.Model.Predict(rx)
	return
}

func (m *NonStrandSpecific) Predict(x [][]float64) ([][]float64, error) {
	_, f, r, err := m.both(x)
	if err != nil {
		return nil, err
	}
	p := make([][]float64, len(f))
	for i := range f {
		p[i] = make([]float64, len(f[i]))
		for j := range f[i] {
			p[i][j], _, _ = m.combine(f[i][j], r[i][j])
		}
	}
	return p, nil
}

/*
Backward routes gradient to both strands, max mode routes it to the winning strand only
*/
func (m *NonStrandSpecific) Backward(x, dPred [][]float64) ([]float64, error) {
	d, ok := m.Model.(Differentiable)
	if !ok {
		return nil, zorros.Errorf("model %T is not differentiable", m.Model)
	}
	rx, f, r, err := m.both(x)
	if err != nil {
		return nil, err
	}
	df := make([][]float64, len(f))
	dr := make([][]float64, len(f))
	for i := range f {
		df[i] = make([]float64, len(f[i]))
		dr[i] = make([]float64, len(f[i]))
		for j := range f[i] {
			_, a, b := m.combine(f[i][j], r[i][j])
			df[i][j] = dPred[i][j] * a
			dr[i][j] = dPred[i][j] * b
		}
	}
	gf, err := d.Backward(x, df)
	if err != nil {
		return nil, err
	}
	gr, err := d.Backward(rx, dr)
	if err != nil {
		return nil, err
	}
	for i := range gf {
		gf[i] += gr[i]
	}
	return gf, nil
}

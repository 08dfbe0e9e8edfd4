/*
Package builtin registers the `builtin` model unit: logistic regression over one-hot encoded sequence,
binary cross-entropy loss and SGD optimizer
*/
package builtin

import (
	"go-ml.dev/pkg/selene/model"
	"go-ml.dev/pkg/zorros"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"math"
	"reflect"
)

const Name = "builtin"

const DefaultLR = 0.01

func init() {
	model.RegisterUnit(Name, &model.Unit{
		Classes:   map[string]model.ModelClass{"Logistic": NewLogistic},
		Criterion: func() model.Criterion { return BCE{} },
		Optimizer: func(lr *float64) (model.OptimizerClass, model.Params) {
			p := model.Params{"lr": DefaultLR, "momentum": 0, "weight_decay": 0}
			if lr != nil {
				p["lr"] = *lr
			}
			return NewSGD, p
		},
	})
}

/*
Logistic is an independent logistic regression for every class
*/
type Logistic struct {
	length, classes int
	// classes rows of length*4 weights followed by classes biases
	w []float64
}

func NewLogistic(sequenceLength, nClasses int, seed int64) (model.Model, error) {
	if sequenceLength <= 0 || nClasses <= 0 {
		return nil, zorros.Errorf("sequence length and classes count must be positive, got %d and %d", sequenceLength, nClasses)
	}
	m := &Logistic{length: sequenceLength, classes: nClasses}
	n := sequenceLength * 4
	m.w = make([]float64, nClasses*n+nClasses)
	nd := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(n)), Src: rand.NewSource(uint64(seed))}
	for i := 0; i < nClasses*n; i++ {
		m.w[i] = nd.Rand()
	}
	return m, nil
}

func (m *Logistic) SequenceLength() int {
	return m.length
}

func (m *Logistic) NClasses() int {
	return m.classes
}

func (m *Logistic) Weights() []float64 {
	return m.w
}

func (m *Logistic) row(j int) []float64 {
	n := m.length * 4
	return m.w[j*n : (j+1)*n]
}

func (m *Logistic) bias(j int) *float64 {
	return &m.w[m.classes*m.length*4+j]
}

func (m *Logistic) check(x [][]float64) error {
	for i, e := range x {
		if len(e) != m.length*4 {
			return zorros.Errorf("sequence %d has encoding length %d, model expects %d", i, len(e), m.length*4)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func (m *Logistic) Predict(x [][]float64) ([][]float64, error) {
	if err := m.check(x); err != nil {
		return nil, err
	}
	p := make([][]float64, len(x))
	for i, e := range x {
		p[i] = make([]float64, m.classes)
		for j := range p[i] {
			p[i][j] = sigmoid(floats.Dot(m.row(j), e) + *m.bias(j))
		}
	}
	return p, nil
}

func (m *Logistic) Backward(x, dPred [][]float64) ([]float64, error) {
	p, err := m.Predict(x)
	if err != nil {
		return nil, err
	}
	g := make([]float64, len(m.w))
	n := m.length * 4
	for i, e := range x {
		for j := 0; j < m.classes; j++ {
			dz := dPred[i][j] * p[i][j] * (1 - p[i][j])
			floats.AddScaled(g[j*n:(j+1)*n], dz, e)
			g[m.classes*n+j] += dz
		}
	}
	return g, nil
}

const epsilon = 1e-7

/*
BCE is the binary cross-entropy averaged over examples and classes
*/
type BCE struct{}

func (BCE) Loss(pred, target [][]float64) (float64, [][]float64) {
	loss, count := 0., 0
	for i := range pred {
		count += len(pred[i])
	}
	d := make([][]float64, len(pred))
	for i := range pred {
		d[i] = make([]float64, len(pred[i]))
		for j, p := range pred[i] {
			p = math.Min(math.Max(p, epsilon), 1-epsilon)
			t := target[i][j]
			loss -= t*math.Log(p) + (1-t)*math.Log(1-p)
			d[i][j] = (p - t) / (p * (1 - p)) / float64(count)
		}
	}
	if count == 0 {
		return 0, d
	}
	return loss / float64(count), d
}

/*
SGD is the stochastic gradient descent with momentum and weight decay
*/
type SGD struct {
	LR          float64
	Momentum    float64
	WeightDecay float64
	velocity    []float64
}

func NewSGD(args model.Params) (model.Optimizer, error) {
	o := &SGD{LR: DefaultLR}
	err := args.Apply(map[string]reflect.Value{
		"lr":           reflect.ValueOf(&o.LR),
		"momentum":     reflect.ValueOf(&o.Momentum),
		"weight_decay": reflect.ValueOf(&o.WeightDecay),
	})
	if err != nil {
		return nil, err
	}
	if o.LR <= 0 {
		return nil, zorros.Errorf("learning rate must be positive, got %v", o.LR)
	}
	return o, nil
}

func (o *SGD) Step(weights, grads []float64) {
	if o.velocity == nil {
		o.velocity = make([]float64, len(weights))
	}
	if o.WeightDecay != 0 {
		floats.AddScaled(grads, o.WeightDecay, weights)
	}
	floats.Scale(o.Momentum, o.velocity)
	floats.AddScaled(o.velocity, -o.LR, grads)
	floats.Add(weights, o.velocity)
}

package model

import (
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/zorros"
	"plugin"
	"sort"
	"strings"
	"sync"
)

/*
Unit is a named set of model classes with a loss criterion and an optimizer factory
*/
type Unit struct {
	Classes   map[string]ModelClass
	Criterion func() Criterion
	// Optimizer returns optimizer class and its default arguments, lr overrides the default learning rate
	Optimizer func(lr *float64) (OptimizerClass, Params)
}

var units = struct {
	sync.Mutex
	m map[string]*Unit
}{m: map[string]*Unit{}}

/*
RegisterUnit makes model unit available by name, it panics if the name is already registered
*/
func RegisterUnit(name string, u *Unit) {
	units.Lock()
	defer units.Unlock()
	if u == nil {
		panic(zorros.Panic(zorros.Errorf("model unit `%v` is nil", name)))
	}
	if _, ok := units.m[name]; ok {
		panic(zorros.Panic(zorros.Errorf("model unit `%v` is already registered", name)))
	}
	units.m[name] = u
}

/*
Units returns sorted names of registered units
*/
func Units() []string {
	units.Lock()
	defer units.Unlock()
	r := make([]string, 0, len(units.m))
	for k := range units.m {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

/*
LookupUnit returns registered unit or opens Go plugin when the name ends with .so.
The plugin must export `Unit` variable of type *model.Unit or model.Unit.
*/
func LookupUnit(name string) (*Unit, error) {
	units.Lock()
	u, ok := units.m[name]
	units.Unlock()
	if ok {
		return u, nil
	}
	if !strings.HasSuffix(name, ".so") {
		return nil, zorros.Errorf("model unit `%v` is not registered, known units are %v", name, Units())
	}
	p, err := plugin.Open(name)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to open model plugin %v: %v", name, err.Error())
	}
	sym, err := p.Lookup("Unit")
	if err != nil {
		return nil, zorros.Wrapf(err, "model plugin %v does not export `Unit`: %v", name, err.Error())
	}
	switch x := sym.(type) {
	case **Unit:
		u = *x
	case *Unit:
		u = x
	}
	if u == nil {
		return nil, zorros.Errorf("model plugin %v exports `Unit` of unexpected type %T", name, sym)
	}
	return u, nil
}

/*
ModelSpec describes which model to load and how to wrap it
*/
type ModelSpec struct {
	File              string
	Class             string
	SequenceLength    int
	NClasses          int
	NonStrandSpecific bool
	Mode              string
}

/*
ParseModelSpec reads the model section of configuration
*/
func ParseModelSpec(t *config.Tree) (ModelSpec, error) {
	a := t.Args()
	ms := ModelSpec{}
	var err error
	if ms.File, err = a.String("file"); err != nil {
		return ms, err
	}
	if ms.Class, err = a.String("class"); err != nil {
		return ms, err
	}
	if ms.SequenceLength, err = a.Int("sequence_length"); err != nil {
		return ms, err
	}
	if ms.NClasses, err = a.Int("n_classes_to_predict"); err != nil {
		return ms, err
	}
	if ms.SequenceLength <= 0 || ms.NClasses <= 0 {
		return ms, zorros.Errorf("model sequence_length and n_classes_to_predict must be positive, got %d and %d", ms.SequenceLength, ms.NClasses)
	}
	if nss, ok := t.Tree("non_strand_specific"); ok {
		na := nss.Args()
		if ms.NonStrandSpecific, err = na.BoolOr("use_module", false); err != nil {
			return ms, err
		}
		if ms.Mode, err = na.StringOr("mode", MeanStrands); err != nil {
			return ms, err
		}
		if ms.NonStrandSpecific {
			if _, err = strandCombiner(ms.Mode); err != nil {
				return ms, err
			}
		}
	}
	return ms, nil
}

/*
Loaded is the result of model loading, training collaborators are set only in train mode
*/
type Loaded struct {
	Model          Model
	Criterion      Criterion
	OptimizerClass OptimizerClass
	OptimizerArgs  Params
}

/*
Load constructs model of the spec. In train mode it also gets criterion and optimizer factory
from the same unit, lr if not nil overrides the default learning rate.
*/
func Load(spec ModelSpec, train bool, lr *float64, seed int64) (*Loaded, error) {
	u, err := LookupUnit(spec.File)
	if err != nil {
		return nil, err
	}
	class, ok := u.Classes[spec.Class]
	if !ok || class == nil {
		return nil, zorros.Errorf("model unit `%v` does not have class `%v`", spec.File, spec.Class)
	}
	m, err := class(spec.SequenceLength, spec.NClasses, seed)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to create model %v.%v: %v", spec.File, spec.Class, err.Error())
	}
	if spec.NonStrandSpecific {
		if m, err = NewNonStrandSpecific(m, spec.Mode); err != nil {
			return nil, err
		}
	}
	r := &Loaded{Model: m}
	if !train {
		return r, nil
	}
	if u.Criterion == nil {
		return nil, zorros.Errorf("model unit `%v` does not have loss criterion", spec.File)
	}
	if u.Optimizer == nil {
		return nil, zorros.Errorf("model unit `%v` does not have optimizer", spec.File)
	}
	if r.Criterion = u.Criterion(); r.Criterion == nil {
		return nil, zorros.Errorf("model unit `%v` returned nil loss criterion", spec.File)
	}
	r.OptimizerClass, r.OptimizerArgs = u.Optimizer(lr)
	if r.OptimizerClass == nil {
		return nil, zorros.Errorf("model unit `%v` returned nil optimizer class", spec.File)
	}
	r.OptimizerArgs = r.OptimizerArgs.Copy()
	if lr != nil {
		r.OptimizerArgs["lr"] = *lr
	}
	return r, nil
}

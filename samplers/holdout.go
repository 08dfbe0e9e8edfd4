package samplers

import (
	"fmt"
	"go-ml.dev/pkg/selene/config"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

/*
Holdout is the partitioning rule, either ByChromosome or ByProportion
*/
type Holdout interface {
	// Modes returns train, validate and test if the test holdout is configured
	Modes() []Mode
	holdout()
}

/*
ByChromosome assigns whole chromosomes to validation and test partitions,
all other chromosomes are used for training
*/
type ByChromosome struct {
	Validation []string
	Test       []string
}

/*
ByProportion assigns every draw to validate or test with the given probabilities
and to train otherwise
*/
type ByProportion struct {
	Validation float64
	Test       float64
}

func (ByChromosome) holdout() {}
func (ByProportion) holdout() {}

func (h ByChromosome) Modes() []Mode {
	if len(h.Test) > 0 {
		return []Mode{Train, Validate, Test}
	}
	return []Mode{Train, Validate}
}

func (h ByProportion) Modes() []Mode {
	if h.Test > 0 {
		return []Mode{Train, Validate, Test}
	}
	return []Mode{Train, Validate}
}

/*
Mode returns partition of the chromosome
*/
func (h ByChromosome) Mode(chrom string) Mode {
	for _, c := range h.Test {
		if c == chrom {
			return Test
		}
	}
	for _, c := range h.Validation {
		if c == chrom {
			return Validate
		}
	}
	return Train
}

var proportionModes = [3]Mode{Train, Validate, Test}

/*
Assigner returns categorical distribution over train, validate and test indices of proportionModes
*/
func (h ByProportion) Assigner(src rand.Source) distuv.Categorical {
	return distuv.NewCategorical([]float64{1 - h.Validation - h.Test, h.Validation, h.Test}, src)
}

/*
Assign draws partition for one sample
*/
func (h ByProportion) Assign(c distuv.Categorical) Mode {
	return proportionModes[int(c.Rand())]
}

/*
ParseHoldout builds holdout from configuration values: lists of chromosome names or proportions.
Empty or nil test means there is no test partition.
*/
func ParseHoldout(validation, test interface{}) (Holdout, error) {
	vl, vlist := chromosomes(validation)
	vf, vprop := proportion(validation)
	if !vlist && !vprop {
		return nil, &ConfigError{"validation holdout", validation, "must be a list of chromosomes or a proportion"}
	}
	if isEmpty(test) {
		if vlist {
			return chromosomeHoldout(vl, nil)
		}
		return proportionHoldout(vf, 0)
	}
	tl, tlist := chromosomes(test)
	tf, tprop := proportion(test)
	switch {
	case vlist && tlist:
		return chromosomeHoldout(vl, tl)
	case vprop && tprop:
		return proportionHoldout(vf, tf)
	}
	return nil, &ConfigError{"holdout", fmt.Sprintf("%v/%v", validation, test),
		fmt.Sprintf("validation holdout and test holdout must have the same type (list or float) but validation was %T and test was %T", validation, test)}
}

func chromosomeHoldout(validation, test []string) (Holdout, error) {
	if len(validation) == 0 {
		return nil, &ConfigError{"validation holdout", validation, "must not be empty"}
	}
	seen := map[string]bool{}
	for _, c := range validation {
		seen[c] = true
	}
	for _, c := range test {
		if seen[c] {
			return nil, &ConfigError{"test holdout", test, fmt.Sprintf("chromosome %v is also in the validation holdout", c)}
		}
	}
	return ByChromosome{Validation: validation, Test: test}, nil
}

func proportionHoldout(validation, test float64) (Holdout, error) {
	if validation <= 0 || validation >= 1 {
		return nil, &ConfigError{"validation holdout", validation, "proportion must be in (0,1)"}
	}
	if test < 0 || test >= 1 {
		return nil, &ConfigError{"test holdout", test, "proportion must be in [0,1)"}
	}
	if validation+test >= 1 {
		return nil, &ConfigError{"holdout", fmt.Sprintf("%v/%v", validation, test), "nothing is left for training"}
	}
	return ByProportion{Validation: validation, Test: test}, nil
}

func isEmpty(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []string:
		return len(x) == 0
	case config.List:
		return len(x) == 0
	case []interface{}:
		return len(x) == 0
	case float64:
		return x == 0
	case int:
		return x == 0
	}
	return false
}

func chromosomes(v interface{}) ([]string, bool) {
	var l []interface{}
	switch x := v.(type) {
	case []string:
		return x, true
	case config.List:
		l = x
	case []interface{}:
		l = x
	default:
		return nil, false
	}
	r := make([]string, len(l))
	for i, e := range l {
		switch e.(type) {
		case string, int:
			r[i] = fmt.Sprint(e)
		default:
			return nil, false
		}
	}
	return r, true
}

func proportion(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

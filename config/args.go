package config

import (
	"fmt"
	"go-ml.dev/pkg/zorros"
	"math"
)

/*
Args is a set of resolved keyword arguments passed to a constructor
*/
type Args map[string]interface{}

func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a Args) Value(key string) interface{} {
	return a[key]
}

func (a Args) missing(key string) error {
	return zorros.Errorf("missing required argument `%v`", key)
}

func (a Args) mismatch(key, kind string) error {
	return zorros.Errorf("argument `%v` must be %v, got %v (%T)", key, kind, a[key], a[key])
}

func (a Args) String(key string) (string, error) {
	if !a.Has(key) {
		return "", a.missing(key)
	}
	s, ok := a[key].(string)
	if !ok {
		return "", a.mismatch(key, "a string")
	}
	return s, nil
}

func (a Args) StringOr(key string, dflt string) (string, error) {
	if !a.Has(key) {
		return dflt, nil
	}
	return a.String(key)
}

func (a Args) Int(key string) (int, error) {
	if !a.Has(key) {
		return 0, a.missing(key)
	}
	switch x := a[key].(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, a.mismatch(key, "an integer")
}

func (a Args) IntOr(key string, dflt int) (int, error) {
	if !a.Has(key) {
		return dflt, nil
	}
	return a.Int(key)
}

func (a Args) Float(key string) (float64, error) {
	if !a.Has(key) {
		return 0, a.missing(key)
	}
	switch x := a[key].(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, a.mismatch(key, "a number")
}

func (a Args) FloatOr(key string, dflt float64) (float64, error) {
	if !a.Has(key) {
		return dflt, nil
	}
	return a.Float(key)
}

func (a Args) Bool(key string) (bool, error) {
	if !a.Has(key) {
		return false, a.missing(key)
	}
	b, ok := a[key].(bool)
	if !ok {
		return false, a.mismatch(key, "a boolean")
	}
	return b, nil
}

func (a Args) BoolOr(key string, dflt bool) (bool, error) {
	if !a.Has(key) {
		return dflt, nil
	}
	return a.Bool(key)
}

/*
Strings returns list argument with scalar items converted to strings
*/
func (a Args) Strings(key string) ([]string, error) {
	if !a.Has(key) {
		return nil, a.missing(key)
	}
	switch x := a[key].(type) {
	case []string:
		return x, nil
	case string:
		return []string{x}, nil
	case List:
		return scalars(key, x)
	case []interface{}:
		return scalars(key, x)
	}
	return nil, a.mismatch(key, "a list")
}

func (a Args) StringsOr(key string, dflt []string) ([]string, error) {
	if !a.Has(key) {
		return dflt, nil
	}
	return a.Strings(key)
}

func scalars(key string, l []interface{}) ([]string, error) {
	r := make([]string, len(l))
	for i, e := range l {
		switch e.(type) {
		case string, int, int64, float64, bool:
			r[i] = fmt.Sprint(e)
		default:
			return nil, zorros.Errorf("item %d of argument `%v` must be a scalar, got %T", i, key, e)
		}
	}
	return r, nil
}

/*
Without returns a copy of arguments without given keys
*/
func (a Args) Without(keys ...string) Args {
	r := Args{}
	for k, v := range a {
		r[k] = v
	}
	for _, k := range keys {
		delete(r, k)
	}
	return r
}

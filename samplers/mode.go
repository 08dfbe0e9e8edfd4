package samplers

import (
	"fmt"
	"go-ml.dev/pkg/selene/sequences"
)

/*
Mode is a data partition the sampler draws from
*/
type Mode string

const (
	Train    Mode = "train"
	Validate Mode = "validate"
	Test     Mode = "test"
)

const (
	Forward = sequences.Forward
	Reverse = sequences.Reverse
)

var strands = [2]string{Forward, Reverse}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Train, Validate, Test:
		return m, nil
	}
	return "", &ConfigError{Field: "mode", Value: s, Reason: "must be one of train, validate, test"}
}

func hasMode(modes []Mode, m Mode) bool {
	for _, x := range modes {
		if x == m {
			return true
		}
	}
	return false
}

/*
ConfigError is an invalid sampler configuration detected at construction time
*/
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %v `%v`: %v", e.Field, e.Value, e.Reason)
}

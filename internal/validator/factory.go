package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrValidatorNotFound = errors.New("validator not found")

// Factory holds built validators by name for single-validator execution.
type Factory struct {
	validators map[string]Validator
}

func NewFactory(validators []Validator) *Factory {
	byName := make(map[string]Validator, len(validators))
	for _, v := range validators {
		byName[v.Name()] = v
	}

	return &Factory{
		validators: byName,
	}
}

func (f *Factory) Get(name string) (Validator, error) {
	v, exist := f.validators[name]
	if !exist {
		return nil, fmt.Errorf("%w: %s (known validators: %s)", ErrValidatorNotFound, name, strings.Join(f.Names(), ", "))
	}

	return v, nil
}

// Names lists the registered validators, sorted.
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.validators))
	for name := range f.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

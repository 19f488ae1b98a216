package config

import (
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// ProcessStep configures one value post-processing operation, e.g.
// {Method: "replace", Params: {"find": "^NOU", "replace": "NOUN"}}.
type ProcessStep struct {
	Method string            `json:"method" yaml:"method"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// processMethods lists the known methods and their required parameters.
var processMethods = map[string][]string{
	"replace":   {"find"},
	"split":     nil,
	"trim":      nil,
	"default":   {"value"},
	"append":    nil,
	"lowercase": nil,
	"uppercase": nil,
	"map":       {"table"},
	"unique":    nil,
	"tag":       {"command"},
}

// KnownProcessMethod reports whether method names a supported process step
func KnownProcessMethod(method string) bool {
	_, ok := processMethods[method]
	return ok
}

// Param returns a parameter value, or def when it is not set
func (p ProcessStep) Param(name, def string) string {
	if v, ok := p.Params[name]; ok {
		return v
	}
	return def
}

// Validate checks that the method exists and its required parameters are present
func (p ProcessStep) Validate() error {
	if p.Method == "" {
		return errors.NewMissingAttributeError("processStep", "", "method")
	}
	required, ok := processMethods[p.Method]
	if !ok {
		return errors.NewConfigurationError("processStep", p.Method, "method", "unknown process method")
	}
	for _, param := range required {
		if _, present := p.Params[param]; !present {
			return errors.NewMissingAttributeError("processStep", p.Method, param)
		}
	}
	return nil
}

// Copy returns a deep copy of the step
func (p ProcessStep) Copy() ProcessStep {
	out := ProcessStep{Method: p.Method}
	if p.Params != nil {
		out.Params = make(map[string]string, len(p.Params))
		for k, v := range p.Params {
			out.Params[k] = v
		}
	}
	return out
}

func copySteps(steps []ProcessStep) []ProcessStep {
	if steps == nil {
		return nil
	}
	out := make([]ProcessStep, len(steps))
	for i, s := range steps {
		out[i] = s.Copy()
	}
	return out
}

func validateSteps(steps []ProcessStep) error {
	for _, step := range steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}

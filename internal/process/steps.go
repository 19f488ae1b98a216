// Package process implements the value post-processing steps of an input format.
package process

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// Step transforms the values extracted for one token position.
type Step interface {
	Apply(values []string) ([]string, error)
}

// StepFunc adapts a function to the Step interface
type StepFunc func(values []string) ([]string, error)

// Apply calls f
func (f StepFunc) Apply(values []string) ([]string, error) { return f(values) }

// Build creates the step configured by cfg
func Build(cfg config.ProcessStep) (Step, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case "replace":
		return newReplace(cfg)
	case "split":
		return newSplit(cfg)
	case "trim":
		return mapEach(strings.TrimSpace), nil
	case "default":
		return newDefault(cfg), nil
	case "append":
		prefix, suffix := cfg.Param("prefix", ""), cfg.Param("suffix", "")
		return mapEach(func(v string) string { return prefix + v + suffix }), nil
	case "lowercase":
		return mapEach(strings.ToLower), nil
	case "uppercase":
		return mapEach(strings.ToUpper), nil
	case "map":
		return newMap(cfg)
	case "unique":
		return StepFunc(unique), nil
	case "tag":
		return nil, errors.NewConfigurationError("processStep", cfg.Method, "method",
			"tagging runs on whole documents and cannot be used as a value step")
	}
	return nil, errors.NewConfigurationError("processStep", cfg.Method, "method", "unknown process method")
}

func mapEach(fn func(string) string) Step {
	return StepFunc(func(values []string) ([]string, error) {
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = fn(v)
		}
		return out, nil
	})
}

func newReplace(cfg config.ProcessStep) (Step, error) {
	re, err := regexp.Compile(cfg.Params["find"])
	if err != nil {
		return nil, errors.NewConfigurationError("processStep", cfg.Method, "find", err.Error())
	}
	replacement := cfg.Param("replace", "")
	return mapEach(func(v string) string { return re.ReplaceAllString(v, replacement) }), nil
}

// newSplit splits every value on separator (default ";"). keep selects all parts, the first,
// the last or the 1-based n-th part.
func newSplit(cfg config.ProcessStep) (Step, error) {
	separator := cfg.Param("separator", ";")
	keep := cfg.Param("keep", "all")
	index := 0
	switch keep {
	case "all", "first", "last":
	default:
		n, err := strconv.Atoi(keep)
		if err != nil || n < 1 {
			return nil, errors.NewConfigurationError("processStep", cfg.Method, "keep",
				fmt.Sprintf("expected all, first, last or a positive number, got '%s'", keep))
		}
		index = n - 1
	}
	return StepFunc(func(values []string) ([]string, error) {
		var out []string
		for _, v := range values {
			parts := strings.Split(v, separator)
			switch keep {
			case "all":
				out = append(out, parts...)
			case "first":
				out = append(out, parts[0])
			case "last":
				out = append(out, parts[len(parts)-1])
			default:
				if index < len(parts) {
					out = append(out, parts[index])
				} else {
					out = append(out, "")
				}
			}
		}
		return out, nil
	}), nil
}

func newDefault(cfg config.ProcessStep) Step {
	def := cfg.Params["value"]
	return StepFunc(func(values []string) ([]string, error) {
		for _, v := range values {
			if v != "" {
				return values, nil
			}
		}
		if len(values) <= 1 {
			return []string{def}, nil
		}
		out := make([]string, len(values))
		for i := range out {
			out[i] = def
		}
		return out, nil
	})
}

// newMap parses a "key=value;key=value" table; unmapped values become the default
// parameter when it is set and are kept otherwise.
func newMap(cfg config.ProcessStep) (Step, error) {
	table := make(map[string]string)
	for _, entry := range strings.Split(cfg.Params["table"], ";") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errors.NewConfigurationError("processStep", cfg.Method, "table",
				fmt.Sprintf("entry '%s' is not of the form key=value", entry))
		}
		table[k] = v
	}
	def, hasDefault := cfg.Params["default"]
	return mapEach(func(v string) string {
		if mapped, ok := table[v]; ok {
			return mapped
		}
		if hasDefault {
			return def
		}
		return v
	}), nil
}

func unique(values []string) ([]string, error) {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// Pipeline applies steps in order.
type Pipeline []Step

// NewPipeline builds the steps of a value spec or metadata field
func NewPipeline(steps []config.ProcessStep) (Pipeline, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	p := make(Pipeline, 0, len(steps))
	for _, cfg := range steps {
		step, err := Build(cfg)
		if err != nil {
			return nil, err
		}
		p = append(p, step)
	}
	return p, nil
}

// Apply runs values through every step
func (p Pipeline) Apply(values []string) ([]string, error) {
	var err error
	for _, step := range p {
		if values, err = step.Apply(values); err != nil {
			return nil, err
		}
	}
	return values, nil
}

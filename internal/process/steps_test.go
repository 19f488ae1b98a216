package process

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

func step(method string, params map[string]string) config.ProcessStep {
	return config.ProcessStep{Method: method, Params: params}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		step config.ProcessStep
		in   []string
		want []string
	}{
		{"replace", step("replace", map[string]string{"find": "^NOU.*", "replace": "NOUN"}), []string{"NOU(sg)", "VRB"}, []string{"NOUN", "VRB"}},
		{"replace without replacement deletes", step("replace", map[string]string{"find": `\d`}), []string{"a1b2"}, []string{"ab"}},
		{"split all", step("split", map[string]string{"separator": "|"}), []string{"a|b", "c"}, []string{"a", "b", "c"}},
		{"split default separator", step("split", nil), []string{"x;y"}, []string{"x", "y"}},
		{"split first", step("split", map[string]string{"keep": "first"}), []string{"x;y;z"}, []string{"x"}},
		{"split last", step("split", map[string]string{"keep": "last"}), []string{"x;y;z"}, []string{"z"}},
		{"split nth", step("split", map[string]string{"keep": "2"}), []string{"x;y;z"}, []string{"y"}},
		{"split nth out of range", step("split", map[string]string{"keep": "5"}), []string{"x;y"}, []string{""}},
		{"trim", step("trim", nil), []string{"  a ", "b\n"}, []string{"a", "b"}},
		{"default on empty", step("default", map[string]string{"value": "_"}), []string{""}, []string{"_"}},
		{"default keeps values", step("default", map[string]string{"value": "_"}), []string{"", "a"}, []string{"", "a"}},
		{"default on no values", step("default", map[string]string{"value": "_"}), nil, []string{"_"}},
		{"append", step("append", map[string]string{"prefix": "<", "suffix": ">"}), []string{"a"}, []string{"<a>"}},
		{"lowercase", step("lowercase", nil), []string{"ÉCOLE"}, []string{"école"}},
		{"uppercase", step("uppercase", nil), []string{"nou"}, []string{"NOU"}},
		{"map with default", step("map", map[string]string{"table": "N=NOUN;V=VERB", "default": "X"}), []string{"N", "V", "Q"}, []string{"NOUN", "VERB", "X"}},
		{"map keeps unmapped", step("map", map[string]string{"table": "N=NOUN"}), []string{"Q"}, []string{"Q"}},
		{"unique", step("unique", nil), []string{"a", "b", "a"}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(tt.step)
			require.NoError(t, err)
			got, err := s.Apply(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildInvalid(t *testing.T) {
	tests := []struct {
		name      string
		step      config.ProcessStep
		attribute string
	}{
		{"unknown method", step("reverse", nil), "method"},
		{"missing find", step("replace", nil), "find"},
		{"bad regex", step("replace", map[string]string{"find": "("}), "find"},
		{"bad keep", step("split", map[string]string{"keep": "0"}), "keep"},
		{"bad table", step("map", map[string]string{"table": "N"}), "table"},
		{"tag is not a value step", step("tag", map[string]string{"command": "cat"}), "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.step)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfiguration)
			var cfgErr *errors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.attribute, cfgErr.Attribute)
		})
	}
}

func TestPipeline(t *testing.T) {
	p, err := NewPipeline([]config.ProcessStep{
		step("split", map[string]string{"separator": ","}),
		step("trim", nil),
		step("lowercase", nil),
		step("unique", nil),
	})
	require.NoError(t, err)

	got, err := p.Apply([]string{"Noun, noun ,VERB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"noun", "verb"}, got)

	empty, err := NewPipeline(nil)
	require.NoError(t, err)
	got, err = empty.Apply([]string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}

func TestExecTagger(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	tagger, err := NewExecTagger(step("tag", map[string]string{"command": "cat", "timeout": "10s"}))
	require.NoError(t, err)

	out, err := tagger.Tag(context.Background(), []byte("<doc/>"))
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", string(out))

	_, err = NewExecTagger(step("tag", map[string]string{"command": "cat", "timeout": "soon"}))
	assert.ErrorIs(t, err, errors.ErrConfiguration)

	failing := &ExecTagger{Command: "/nonexistent/tagger"}
	_, err = failing.Tag(context.Background(), nil)
	assert.Error(t, err)
}

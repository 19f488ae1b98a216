package extraction

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/xmlpath"
	"github.com/gcbaptista/go-corpus-engine/model"
	"github.com/gcbaptista/go-corpus-engine/services"
)

const corpus = `<corpus>
  <doc>
    <meta><title>First</title><pid>A1</pid></meta>
    <body>
      <w lemma="the" a="x" b="y"><pos class="DET" head="D"/>The</w>
      <w lemma="cat"><pos class="NOU" head="N"/><f name="num" v="pl"/><f name="gen" v="m"/>Cats</w>
      <w lemma="sit"><pos class="VRB" head="V"/>sat</w>
    </body>
  </doc>
  <doc>
    <body><w>a</w><w>b</w><w>c</w></body>
  </doc>
</corpus>`

func newEvaluator(t *testing.T) *xmlpath.Evaluator {
	t.Helper()
	e, err := xmlpath.NewEvaluator(64)
	require.NoError(t, err)
	return e
}

func wordFormat() *config.InputFormat {
	f := config.NewInputFormat("simple")
	f.DocumentPath = "//doc"
	field := config.NewAnnotatedField("contents", ".//w")
	field.AddAnnotation(config.NewAnnotation("word", "."))
	f.AddAnnotatedField(field)
	return f
}

func richFormat() *config.InputFormat {
	f := config.NewInputFormat("rich")
	f.DocumentPath = "//doc"
	f.SetMetadataPath("meta")
	f.AddMetadataField(&config.MetadataField{Name: "title", ValuePath: "title"})
	f.AddMetadataField(&config.MetadataField{Name: PIDField, ValuePath: "pid"})

	field := config.NewAnnotatedField("contents", ".//w")
	field.AddAnnotation(config.NewAnnotation("word", "."))
	field.AddAnnotation(config.NewAnnotation("lemma", "@lemma"))
	pos := config.NewAnnotation("pos", "@class")
	pos.BasePath = "pos"
	pos.AddSubAnnotation(config.NewSubAnnotation("head", "@head"))
	pos.AddSubAnnotation(config.NewForEachTemplate("../f", "@name", "@v"))
	field.AddAnnotation(pos)
	f.AddAnnotatedField(field)
	return f
}

func TestExtractDocumentsRecords(t *testing.T) {
	ex, err := New(wordFormat(), newEvaluator(t))
	require.NoError(t, err)

	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var records []model.Record
	for _, d := range docs {
		records = append(records, d.Records()...)
	}
	require.Len(t, records, 6)
	assert.Equal(t, model.Record{Field: "contents", Annotation: "word", Position: 1, Value: "Cats"}, records[1])
	assert.Equal(t, model.Record{Field: "contents", Annotation: "word", Position: 2, Value: "c"}, records[5])
	assert.Equal(t, map[string]int{"contents": 3}, docs[1].TokenCounts())
}

func TestExtractAnnotations(t *testing.T) {
	ex, err := New(richFormat(), newEvaluator(t))
	require.NoError(t, err)

	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	first := docs[0]
	assert.Equal(t, "A1", first.PID)
	assert.Equal(t, []string{"First"}, first.Metadata["title"])
	assert.Contains(t, first.Markup, "<meta>")

	contents, ok := first.Field("contents")
	require.True(t, ok)
	require.Len(t, contents.Tokens, 3)

	tok := contents.Tokens[1]
	assert.Equal(t, 1, tok.Position)
	assert.Contains(t, tok.Markup, "Cats")

	tests := []struct {
		key  string
		want []string
	}{
		{"word", []string{"Cats"}},
		{"lemma", []string{"cat"}},
		{"pos", []string{"NOU"}},
		{"pos#head", []string{"N"}},
		{"pos#num", []string{"pl"}},
		{"pos#gen", []string{"m"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			values, ok := tok.Annotation(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, values)
		})
	}

	keys := make([]string, len(tok.Values))
	for i := range tok.Values {
		keys[i] = tok.Values[i].Key()
	}
	assert.Equal(t, []string{"word", "lemma", "pos", "pos#head", "pos#num", "pos#gen"}, keys, "declaration order")
	assert.True(t, tok.Values[4].Dynamic)
	assert.False(t, tok.Values[3].Dynamic)
}

func TestForEachExpansion(t *testing.T) {
	ex, err := New(richFormat(), newEvaluator(t))
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)

	dynamicCount := func(tok *model.Token) int {
		n := 0
		for _, v := range tok.Values {
			if v.Dynamic {
				n++
			}
		}
		return n
	}

	tokens := docs[0].Fields[0].Tokens
	assert.Equal(t, 0, dynamicCount(tokens[0]), "zero matches give zero instances")
	assert.Equal(t, 2, dynamicCount(tokens[1]), "one instance per match")
	assert.Equal(t, 0, dynamicCount(tokens[2]))
}

func TestZeroMatchesGiveEmptyValue(t *testing.T) {
	ex, err := New(richFormat(), newEvaluator(t))
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)

	second := docs[1]
	assert.Empty(t, second.PID)
	assert.Empty(t, second.Metadata)

	tok := second.Fields[0].Tokens[0]
	for _, key := range []string{"lemma", "pos", "pos#head"} {
		values, ok := tok.Annotation(key)
		require.True(t, ok, key)
		assert.Equal(t, []string{""}, values, key)
	}
}

func TestCaptureSubstitution(t *testing.T) {
	f := wordFormat()
	annot := config.NewAnnotation("pair", "$1-$2")
	annot.CaptureValuePaths = []string{"@a", "@b"}
	f.AnnotatedFields[0].AddAnnotation(annot)

	ex, err := New(f, newEvaluator(t))
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)

	values, _ := docs[0].Fields[0].Tokens[0].Annotation("pair")
	assert.Equal(t, []string{"x-y"}, values)
	values, _ = docs[0].Fields[0].Tokens[1].Annotation("pair")
	assert.Equal(t, []string{"-"}, values, "missing captures substitute empty strings")
}

func TestSubstituteCaptures(t *testing.T) {
	tests := []struct {
		template string
		captures []string
		want     string
	}{
		{"$1-$2", []string{"x", "y"}, "x-y"},
		{"$2$1", []string{"a", "b"}, "ba"},
		{"$3", []string{"a"}, "$3"},
		{"$0 and $$1", []string{"a"}, "$0 and $a"},
		{"plain", nil, "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubstituteCaptures(tt.template, tt.captures), tt.template)
	}
}

// recordingEvaluator answers one path itself and delegates everything else
type recordingEvaluator struct {
	inner *xmlpath.Evaluator
	paths []string
}

func (r *recordingEvaluator) Parse(rd io.Reader) (services.Node, error) { return r.inner.Parse(rd) }

func (r *recordingEvaluator) Select(ctx services.Node, path string, ns map[string]string) ([]services.Node, error) {
	return r.inner.Select(ctx, path, ns)
}

func (r *recordingEvaluator) EvaluateStrings(ctx services.Node, path string, ns map[string]string) ([]string, error) {
	r.paths = append(r.paths, path)
	if path == "42a" {
		return []string{"looked-up"}, nil
	}
	return r.inner.EvaluateStrings(ctx, path, ns)
}

func (r *recordingEvaluator) Text(n services.Node) string   { return r.inner.Text(n) }
func (r *recordingEvaluator) Markup(n services.Node) string { return r.inner.Markup(n) }

func TestIntegerValuePath(t *testing.T) {
	f := wordFormat()
	f.AnnotatedFields[0].AddAnnotation(config.NewAnnotation("literal", "42"))
	f.AnnotatedFields[0].AddAnnotation(config.NewAnnotation("path", "42a"))

	eval := &recordingEvaluator{inner: newEvaluator(t)}
	ex, err := New(f, eval)
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)

	for _, tok := range docs[0].Fields[0].Tokens {
		literal, _ := tok.Annotation("literal")
		assert.Equal(t, []string{"42"}, literal)
		path, _ := tok.Annotation("path")
		assert.Equal(t, []string{"looked-up"}, path)
	}
	assert.NotContains(t, eval.paths, "42", "literals are never evaluated")
	assert.Contains(t, eval.paths, "42a")
}

func TestMultipleValues(t *testing.T) {
	strict := richFormat()
	strict.AnnotatedFields[0].AddAnnotation(config.NewAnnotation("features", "f/@v"))

	ex, err := New(strict, newEvaluator(t))
	require.NoError(t, err)
	_, err = ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExtraction)
	var extErr *errors.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "features", extErr.Annotation)
	assert.Equal(t, 1, extErr.Position)
	assert.Equal(t, 0, extErr.Document)

	lenient := richFormat()
	annot := config.NewAnnotation("features", "f/@v")
	annot.MultipleValues = true
	lenient.AnnotatedFields[0].AddAnnotation(annot)
	ex, err = New(lenient, newEvaluator(t))
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)
	values, _ := docs[0].Fields[0].Tokens[1].Annotation("features")
	assert.Equal(t, []string{"pl", "m"}, values)
}

func TestProcessPipeline(t *testing.T) {
	f := wordFormat()
	annot := config.NewAnnotation("lower", ".")
	annot.Process = []config.ProcessStep{{Method: "lowercase"}, {Method: "append", Params: map[string]string{"suffix": "!"}}}
	f.AnnotatedFields[0].AddAnnotation(annot)

	ex, err := New(f, newEvaluator(t))
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)
	values, _ := docs[0].Fields[0].Tokens[1].Annotation("lower")
	assert.Equal(t, []string{"cats!"}, values)
}

func TestNewRejectsInvalidFormats(t *testing.T) {
	badPath := wordFormat()
	badPath.AnnotatedFields[0].WordPath = "//w["
	_, err := New(badPath, newEvaluator(t))
	require.Error(t, err)
	var cfgErr *errors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "wordPath", cfgErr.Attribute)

	badStep := wordFormat()
	badStep.AnnotatedFields[0].Annotations[0].Process = []config.ProcessStep{{Method: "explode"}}
	_, err = New(badStep, newEvaluator(t))
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestExtractorOwnsFormatCopy(t *testing.T) {
	f := wordFormat()
	ex, err := New(f, newEvaluator(t))
	require.NoError(t, err)

	f.AnnotatedFields[0].WordPath = "//nothing"
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)
	assert.Len(t, docs[0].Fields[0].Tokens, 3)
}

type fixedTagger struct{}

func (fixedTagger) Tag(_ context.Context, in []byte) ([]byte, error) {
	return []byte(`<corpus><doc><w>tagged</w></doc></corpus>`), nil
}

func TestTagger(t *testing.T) {
	ex, err := New(wordFormat(), newEvaluator(t), WithTagger(fixedTagger{}))
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte("not even xml"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	values, _ := docs[0].Fields[0].Tokens[0].Annotation("word")
	assert.Equal(t, []string{"tagged"}, values)
}

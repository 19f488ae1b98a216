package model

// TokenValues holds the values of one annotation (or sub-annotation) at one token position.
type TokenValues struct {
	Annotation    string   `json:"annotation"`               // Top-level annotation name
	SubAnnotation string   `json:"sub_annotation,omitempty"` // Static or forEach instance name
	Dynamic       bool     `json:"dynamic,omitempty"`        // Produced by forEach expansion
	Template      string   `json:"template,omitempty"`       // forEach path of the producing template
	ForwardIndex  bool     `json:"forward_index"`            // Persist for concordances
	Values        []string `json:"values"`
}

// Key returns the query-level annotation name: "pos" or "pos#head"
func (tv *TokenValues) Key() string {
	if tv.SubAnnotation == "" {
		return tv.Annotation
	}
	return tv.Annotation + "#" + tv.SubAnnotation
}

// ResolvedAnnotation is one instance of a forEach template at one token.
type ResolvedAnnotation struct {
	Name   string
	Values []string
}

// Token is one position of an annotated field with the values of all its annotations,
// in annotation declaration order.
type Token struct {
	Position int           `json:"position"`
	Markup   string        `json:"markup,omitempty"` // Serialized source node, kept for the content store
	Values   []TokenValues `json:"values"`
}

// Annotation returns the values of the annotation with the given key at this token
func (t *Token) Annotation(key string) ([]string, bool) {
	for i := range t.Values {
		if t.Values[i].Key() == key {
			return t.Values[i].Values, true
		}
	}
	return nil, false
}

// ExtractedField is the token stream of one annotated field.
type ExtractedField struct {
	Name   string   `json:"name"`
	Tokens []*Token `json:"tokens"`
}

// ExtractedDocument is the result of running an input format over one document node.
type ExtractedDocument struct {
	PID      string              `json:"pid,omitempty"` // Persistent identifier, from the "pid" metadata field when present
	Metadata map[string][]string `json:"metadata"`
	Fields   []*ExtractedField   `json:"fields"`
	Markup   string              `json:"-"` // Serialized document node
}

// Field returns the extracted field with the given name
func (d *ExtractedDocument) Field(name string) (*ExtractedField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Record is one (field, annotation, position, value) tuple handed to the index.
type Record struct {
	Field      string
	Annotation string // Annotation key
	Position   int
	Value      string
}

// Records flattens the document into index records in field, token and annotation order.
func (d *ExtractedDocument) Records() []Record {
	var records []Record
	for _, f := range d.Fields {
		for _, tok := range f.Tokens {
			for i := range tok.Values {
				tv := &tok.Values[i]
				for _, v := range tv.Values {
					records = append(records, Record{Field: f.Name, Annotation: tv.Key(), Position: tok.Position, Value: v})
				}
			}
		}
	}
	return records
}

// TokenCounts returns the number of token positions per field
func (d *ExtractedDocument) TokenCounts() map[string]int {
	counts := make(map[string]int, len(d.Fields))
	for _, f := range d.Fields {
		counts[f.Name] = len(f.Tokens)
	}
	return counts
}

// DocumentInfo is what the document store keeps about an indexed document.
type DocumentInfo struct {
	DocID       uint32              `json:"doc_id"`
	PID         string              `json:"pid"`
	Metadata    map[string][]string `json:"metadata"`
	TokenCounts map[string]int      `json:"token_counts"`
}

// MetadataValue returns the first value of a metadata field, or "" when absent
func (d *DocumentInfo) MetadataValue(name string) string {
	if vs := d.Metadata[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

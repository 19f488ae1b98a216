package index

import (
	"bytes"
	"encoding/gob"
	"sort"
	"sync"
)

// InvertedIndex maps a physical field and a term to the documents and token positions
// where the term occurs. Terms are stored exactly as given; desensitizing them for the
// field's sensitivity variant is the caller's job.
type InvertedIndex struct {
	Mu     sync.RWMutex
	Fields map[string]map[string]PostingList // physical field -> term -> postings
	Docs   map[uint32]int                    // doc id -> token count of the main field
}

// gobInvertedIndexData is a helper struct for Gob encoding/decoding InvertedIndex data.
// It excludes the mutex.
type gobInvertedIndexData struct {
	Fields map[string]map[string]PostingList
	Docs   map[uint32]int
}

// NewInvertedIndex creates an empty index
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		Fields: make(map[string]map[string]PostingList),
		Docs:   make(map[uint32]int),
	}
}

// Add records that term occurs at position in docID. The caller must hold the write lock.
func (ii *InvertedIndex) Add(field string, docID uint32, position int, term string) {
	terms, ok := ii.Fields[field]
	if !ok {
		terms = make(map[string]PostingList)
		ii.Fields[field] = terms
	}
	terms[term] = terms[term].add(docID, position)
}

// SetDocumentLength records the number of token positions of a document. The caller must hold the write lock.
func (ii *InvertedIndex) SetDocumentLength(docID uint32, length int) {
	ii.Docs[docID] = length
}

// RemoveDocument deletes all postings of docID. The caller must hold the write lock.
func (ii *InvertedIndex) RemoveDocument(docID uint32) {
	for field, terms := range ii.Fields {
		for term, pl := range terms {
			pl = pl.remove(docID)
			if len(pl) == 0 {
				delete(terms, term)
			} else {
				terms[term] = pl
			}
		}
		if len(terms) == 0 {
			delete(ii.Fields, field)
		}
	}
	delete(ii.Docs, docID)
}

// Postings returns the posting list of term in field. The caller must hold at least the read lock.
func (ii *InvertedIndex) Postings(field, term string) PostingList {
	return ii.Fields[field][term]
}

// Terms returns the sorted terms of a field. The caller must hold at least the read lock.
func (ii *InvertedIndex) Terms(field string) []string {
	terms := ii.Fields[field]
	out := make([]string, 0, len(terms))
	for t := range terms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasField reports whether any value was indexed into field. The caller must hold at least the read lock.
func (ii *InvertedIndex) HasField(field string) bool {
	_, ok := ii.Fields[field]
	return ok
}

// DocumentIDs returns the ids of all indexed documents in ascending order. The caller must hold at least the read lock.
func (ii *InvertedIndex) DocumentIDs() []uint32 {
	ids := make([]uint32, 0, len(ii.Docs))
	for id := range ii.Docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Search returns the hits of q ordered by document and position.
func (ii *InvertedIndex) Search(q SpanQuery) []Hit {
	ii.Mu.RLock()
	defer ii.Mu.RUnlock()
	return collectHits(q.spans(ii))
}

// GobEncode implements the gob.GobEncoder interface for InvertedIndex.
func (ii *InvertedIndex) GobEncode() ([]byte, error) {
	ii.Mu.RLock() // Ensure consistent data during encoding
	defer ii.Mu.RUnlock()

	dataToEncode := gobInvertedIndexData{
		Fields: ii.Fields,
		Docs:   ii.Docs,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for InvertedIndex.
func (ii *InvertedIndex) GobDecode(data []byte) error {
	decodedData := gobInvertedIndexData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return err
	}

	ii.Mu.Lock() // Ensure exclusive access during decoding
	defer ii.Mu.Unlock()

	ii.Fields = decodedData.Fields
	ii.Docs = decodedData.Docs

	// Ensure maps are initialized if they were nil after decoding (e.g. from an empty file)
	if ii.Fields == nil {
		ii.Fields = make(map[string]map[string]PostingList)
	}
	if ii.Docs == nil {
		ii.Docs = make(map[uint32]int)
	}
	return nil
}

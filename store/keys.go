package store

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	forwardIndexPrefix = "fwd"
	tokenMarkupPrefix  = "tok"
	documentPrefix     = "doc"
)

// makeDocPrefix generates the prefix shared by all keys of one document.
// Format: prefix:docID (docID as 4 BigEndian bytes)
func makeDocPrefix(prefix string, docID uint32) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+4)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint32(buf[offset:], docID)
	return buf
}

// makeDocFieldKey generates a composite key for one field of one document.
// Format: prefix:docID:field
func makeDocFieldKey(prefix string, docID uint32, field string) []byte {
	docPrefix := makeDocPrefix(prefix, docID)
	buf := make([]byte, 0, len(docPrefix)+1+len(field))
	buf = append(buf, docPrefix...)
	buf = append(buf, ':')
	return append(buf, field...)
}

// makeDocumentKey generates the key of a stored document.
func makeDocumentKey(docID uint32) []byte {
	return makeDocPrefix(documentPrefix, docID)
}

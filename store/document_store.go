package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/gcbaptista/go-corpus-engine/model"
)

// DocumentStore keeps document metadata and the mapping from persistent identifiers to
// internal document ids.
type DocumentStore struct {
	Mu                     sync.RWMutex
	Docs                   map[uint32]*model.DocumentInfo // Internal ID to document info
	ExternalIDtoInternalID map[string]uint32              // PID to internal uint32 ID
	NextID                 uint32
}

// gobDocumentStoreData is a helper struct for Gob encoding/decoding DocumentStore data.
// It excludes the mutex.
type gobDocumentStoreData struct {
	Docs                   map[uint32]*model.DocumentInfo
	ExternalIDtoInternalID map[string]uint32
	NextID                 uint32
}

// NewDocumentStore creates an empty document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		Docs:                   make(map[uint32]*model.DocumentInfo),
		ExternalIDtoInternalID: make(map[string]uint32),
	}
}

// Add assigns a new internal id to a document. When a document with the same PID exists,
// its old id is returned as replaced so the caller can remove its postings.
func (ds *DocumentStore) Add(info *model.DocumentInfo) (docID uint32, replaced uint32, hadPrevious bool) {
	ds.Mu.Lock()
	defer ds.Mu.Unlock()

	if info.PID != "" {
		if old, ok := ds.ExternalIDtoInternalID[info.PID]; ok {
			delete(ds.Docs, old)
			replaced, hadPrevious = old, true
		}
	}
	docID = ds.NextID
	ds.NextID++
	info.DocID = docID
	if info.PID == "" {
		info.PID = fmt.Sprintf("doc-%d", docID)
	}
	ds.Docs[docID] = info
	ds.ExternalIDtoInternalID[info.PID] = docID
	return docID, replaced, hadPrevious
}

// Get returns the info of an internal document id
func (ds *DocumentStore) Get(docID uint32) (*model.DocumentInfo, bool) {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	info, ok := ds.Docs[docID]
	return info, ok
}

// ByPID returns the info of the document with the given persistent identifier
func (ds *DocumentStore) ByPID(pid string) (*model.DocumentInfo, bool) {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	id, ok := ds.ExternalIDtoInternalID[pid]
	if !ok {
		return nil, false
	}
	info, ok := ds.Docs[id]
	return info, ok
}

// Delete removes a document by PID and returns its internal id
func (ds *DocumentStore) Delete(pid string) (uint32, bool) {
	ds.Mu.Lock()
	defer ds.Mu.Unlock()
	id, ok := ds.ExternalIDtoInternalID[pid]
	if !ok {
		return 0, false
	}
	delete(ds.ExternalIDtoInternalID, pid)
	delete(ds.Docs, id)
	return id, true
}

// Count returns the number of stored documents
func (ds *DocumentStore) Count() int {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	return len(ds.Docs)
}

// All returns the stored documents ordered by internal id
func (ds *DocumentStore) All() []*model.DocumentInfo {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()
	out := make([]*model.DocumentInfo, 0, len(ds.Docs))
	for _, info := range ds.Docs {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}

// GobEncode implements the gob.GobEncoder interface for DocumentStore.
func (ds *DocumentStore) GobEncode() ([]byte, error) {
	ds.Mu.RLock()
	defer ds.Mu.RUnlock()

	dataToEncode := gobDocumentStoreData{
		Docs:                   ds.Docs,
		ExternalIDtoInternalID: ds.ExternalIDtoInternalID,
		NextID:                 ds.NextID,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, fmt.Errorf("failed to gob encode document store data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for DocumentStore.
func (ds *DocumentStore) GobDecode(data []byte) error {
	decodedData := gobDocumentStoreData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return fmt.Errorf("failed to gob decode document store data: %w", err)
	}

	ds.Mu.Lock()
	defer ds.Mu.Unlock()

	ds.Docs = decodedData.Docs
	ds.ExternalIDtoInternalID = decodedData.ExternalIDtoInternalID
	ds.NextID = decodedData.NextID

	// Ensure maps are initialized if they were nil after decoding
	if ds.Docs == nil {
		ds.Docs = make(map[uint32]*model.DocumentInfo)
	}
	if ds.ExternalIDtoInternalID == nil {
		ds.ExternalIDtoInternalID = make(map[string]uint32)
	}

	return nil
}

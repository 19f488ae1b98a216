package index

import "sort"

// PostingEntry records the token positions at which a term occurs in one document.
type PostingEntry struct {
	DocID     uint32 // Internal numeric ID for efficiency
	Positions []int  // Ascending token positions
}

// PostingList is a slice of PostingEntry sorted by DocID.
type PostingList []PostingEntry

// add records position for docID, keeping the list sorted by document and positions ascending.
// The same position is stored once even when a token has several equal values.
func (pl PostingList) add(docID uint32, position int) PostingList {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= docID })
	if i < len(pl) && pl[i].DocID == docID {
		positions := pl[i].Positions
		j := sort.SearchInts(positions, position)
		if j < len(positions) && positions[j] == position {
			return pl
		}
		positions = append(positions, 0)
		copy(positions[j+1:], positions[j:])
		positions[j] = position
		pl[i].Positions = positions
		return pl
	}
	pl = append(pl, PostingEntry{})
	copy(pl[i+1:], pl[i:])
	pl[i] = PostingEntry{DocID: docID, Positions: []int{position}}
	return pl
}

// remove drops docID from the list
func (pl PostingList) remove(docID uint32) PostingList {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= docID })
	if i < len(pl) && pl[i].DocID == docID {
		return append(pl[:i], pl[i+1:]...)
	}
	return pl
}

// Frequency returns the total number of occurrences in the list
func (pl PostingList) Frequency() int {
	n := 0
	for _, e := range pl {
		n += len(e.Positions)
	}
	return n
}

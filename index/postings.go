package index

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Posting records the positions of one word within one document's field.
type Posting struct {
	DocID     uint32
	Positions []uint32
}

// PostingList is a doc-id ordered list of postings for one (field, word)
// entry. The whole list is stored as a single value so that a batch touches
// each entry with exactly one read-modify-write.
type PostingList []Posting

// Find returns the posting for id, if present.
func (pl PostingList) Find(id uint32) (Posting, bool) {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= id })
	if i < len(pl) && pl[i].DocID == id {
		return pl[i], true
	}
	return Posting{}, false
}

// Upsert inserts or replaces the posting for id, keeping doc-id order.
func (pl PostingList) Upsert(id uint32, positions []uint32) PostingList {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= id })
	if i < len(pl) && pl[i].DocID == id {
		pl[i].Positions = positions
		return pl
	}
	pl = append(pl, Posting{})
	copy(pl[i+1:], pl[i:])
	pl[i] = Posting{DocID: id, Positions: positions}
	return pl
}

// Remove deletes the posting for id, if present.
func (pl PostingList) Remove(id uint32) PostingList {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= id })
	if i < len(pl) && pl[i].DocID == id {
		return append(pl[:i], pl[i+1:]...)
	}
	return pl
}

// DocIDs returns the document ids of the list.
func (pl PostingList) DocIDs() []uint32 {
	ids := make([]uint32, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

// EncodePostings serializes a posting list: a uvarint posting count, then per
// posting a delta-encoded doc id, a position count, and delta-encoded
// positions.
func EncodePostings(pl PostingList) []byte {
	buf := make([]byte, 0, 8+len(pl)*6)
	buf = binary.AppendUvarint(buf, uint64(len(pl)))
	prevID := uint32(0)
	for _, p := range pl {
		buf = binary.AppendUvarint(buf, uint64(p.DocID-prevID))
		prevID = p.DocID
		buf = binary.AppendUvarint(buf, uint64(len(p.Positions)))
		prevPos := uint32(0)
		for _, pos := range p.Positions {
			buf = binary.AppendUvarint(buf, uint64(pos-prevPos))
			prevPos = pos
		}
	}
	return buf
}

// DecodePostings parses a value written by EncodePostings.
func DecodePostings(data []byte) (PostingList, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("index: corrupt posting list header")
	}
	data = data[n:]
	pl := make(PostingList, 0, count)
	prevID := uint32(0)
	for i := uint64(0); i < count; i++ {
		delta, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, fmt.Errorf("index: corrupt posting %d", i)
		}
		data = data[n:]
		id := prevID + uint32(delta)
		prevID = id

		npos, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, fmt.Errorf("index: corrupt position count for doc %d", id)
		}
		data = data[n:]
		positions := make([]uint32, 0, npos)
		prevPos := uint32(0)
		for j := uint64(0); j < npos; j++ {
			pd, n := binary.Uvarint(data)
			if n <= 0 {
				return nil, fmt.Errorf("index: corrupt position for doc %d", id)
			}
			data = data[n:]
			pos := prevPos + uint32(pd)
			prevPos = pos
			positions = append(positions, pos)
		}
		pl = append(pl, Posting{DocID: id, Positions: positions})
	}
	return pl, nil
}

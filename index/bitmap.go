package index

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is a set of document ids backed by a 32-bit roaring bitmap. It is
// the value type of prefix and facet index entries.
type Bitmap struct {
	rb *roaring.Bitmap
}

// NewBitmap creates an empty bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// BitmapOf creates a bitmap holding the given ids.
func BitmapOf(ids ...uint32) *Bitmap {
	return &Bitmap{rb: roaring.BitmapOf(ids...)}
}

// DecodeBitmap parses a serialized bitmap.
func DecodeBitmap(data []byte) (*Bitmap, error) {
	rb := roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &Bitmap{rb: rb}, nil
}

// Encode serializes the bitmap.
func (b *Bitmap) Encode() ([]byte, error) {
	return b.rb.MarshalBinary()
}

// Add inserts id into the set.
func (b *Bitmap) Add(id uint32) { b.rb.Add(id) }

// Remove deletes id from the set.
func (b *Bitmap) Remove(id uint32) { b.rb.Remove(id) }

// Contains reports membership of id.
func (b *Bitmap) Contains(id uint32) bool { return b.rb.Contains(id) }

// IsEmpty reports whether the set is empty.
func (b *Bitmap) IsEmpty() bool { return b.rb.IsEmpty() }

// Cardinality returns the number of ids in the set.
func (b *Bitmap) Cardinality() uint64 { return b.rb.GetCardinality() }

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap { return &Bitmap{rb: b.rb.Clone()} }

// And intersects the set with other in place.
func (b *Bitmap) And(other *Bitmap) { b.rb.And(other.rb) }

// Or unions the set with other in place.
func (b *Bitmap) Or(other *Bitmap) { b.rb.Or(other.rb) }

// AndNot removes other's ids from the set in place.
func (b *Bitmap) AndNot(other *Bitmap) { b.rb.AndNot(other.rb) }

// Intersects reports whether the sets share any id.
func (b *Bitmap) Intersects(other *Bitmap) bool { return b.rb.Intersects(other.rb) }

// ToArray returns the ids in ascending order.
func (b *Bitmap) ToArray() []uint32 { return b.rb.ToArray() }

// All iterates the ids in ascending order.
func (b *Bitmap) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

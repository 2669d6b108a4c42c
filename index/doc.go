// Package index owns the on-disk layout of lexgo's derived indexes: bucket
// naming, key construction, the varint postings codec, roaring doc-id sets
// and the order-preserving numeric key encoding used for range scans.
//
// The layout is private to the engine and may change between versions; only
// the snapshot export/import hooks are required to round-trip it.
package index

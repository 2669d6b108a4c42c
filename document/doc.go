// Package document defines the typed field values, documents, field schemas
// and index settings used throughout lexgo.
//
// A Document maps field names to Value, a small tagged variant covering the
// supported field types (null, string, number, bool, array). All tokenization,
// facet extraction and serialization switch exhaustively over Value.Kind;
// there is no implicit coercion.
package document

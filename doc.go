// Package bson encodes and decodes the BSON wire format: a length-prefixed,
// self-describing binary tree of typed key/value pairs.
//
// The package exposes three layers:
//
//   - A zero-copy raw layer: RawDocument and RawArray are borrowing views
//     over caller-owned bytes, validated lazily one element at a time, and
//     DocumentBuilder/ArrayBuilder are owned buffers that remain valid
//     documents after every append.
//   - A typed value model: native Go types (float64, string, bool, int32,
//     int64) plus BSON's extended types (ObjectID, DateTime, Timestamp,
//     Binary, Regex, Decimal128, ...) and the ordered Document/Array
//     containers.
//   - A reflection bridge: Marshal and Unmarshal map arbitrary Go structs,
//     maps, and slices onto the format, with field-level control through the
//     Marshaler/ValueMarshaler interfaces, the HumanReadable and UTF8Lossy
//     wrappers, and the named conversion helpers.
//
// The BSON to Go mapping used throughout:
//
//	double              float64
//	string              string
//	document            *bson.Document or bson.RawDocument
//	array               *bson.Array    or bson.RawArray
//	binary              bson.Binary
//	objectId            bson.ObjectID
//	boolean             bool
//	dateTime            bson.DateTime
//	null                bson.Null
//	regex               bson.Regex
//	dbPointer           bson.DBPointer
//	javascript          bson.JavaScript
//	symbol              bson.Symbol
//	javascriptWithScope bson.CodeWithScope
//	int32               int32
//	timestamp           bson.Timestamp
//	int64               int64
//	decimal128          bson.Decimal128
//	minKey/maxKey       bson.MinKey / bson.MaxKey
//	undefined           bson.Undefined
//
// All operations are synchronous and perform no I/O. Raw views are safe for
// concurrent readers; a builder is a single-writer resource.
package bson

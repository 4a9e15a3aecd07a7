package bson

import "unicode/utf8"

// RawIter walks the elements of a raw document one at a time. Each call to
// Next validates exactly one element: the type tag, the key up to its null
// terminator, and the value payload according to the tag. Nothing beyond
// the current element is pre-scanned. After the first error the iterator
// stays exhausted; there is no resynchronization.
//
//	it := doc.Iter()
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type RawIter struct {
	r    *rawReader
	key  string
	val  RawValue
	done bool
}

func newRawIter(d RawDocument, utf8Lossy bool) *RawIter {
	r := newRawReader(d)
	r.utf8Lossy = utf8Lossy
	// Skip the already-validated length prefix; iteration stops at the
	// terminator byte.
	r.off = 4
	return &RawIter{r: r}
}

// Next advances to the next element. It returns false at the document
// terminator or on the first malformed element; Err distinguishes the two.
func (it *RawIter) Next() bool {
	if it.done || it.r.err != nil {
		return false
	}

	tag := it.r.readByte()
	if it.r.err != nil {
		return false
	}
	if tag == 0x00 {
		// Terminator. Anything after it inside the declared length is a
		// format error, not padding.
		if it.r.remaining() != 0 {
			it.r.setError(offsetError(ErrTrailingBytes, it.r.off))
			return false
		}
		it.done = true
		return false
	}

	t := Type(tag)
	if !t.valid() {
		it.r.setError(offsetError(ErrInvalidType, it.r.off-1))
		return false
	}

	keyBytes := it.r.readCString()
	if it.r.err != nil {
		return false
	}
	it.key = it.decodeKey(keyBytes)

	it.val = it.r.readValue(t)
	return it.r.err == nil
}

// Key returns the key of the current element.
func (it *RawIter) Key() string { return it.key }

// Value returns the current element's value, borrowing from the underlying
// buffer.
func (it *RawIter) Value() RawValue { return it.val }

// Err returns the first error encountered, if any. A nil error after Next
// returns false means the document ended cleanly.
func (it *RawIter) Err() error {
	if it.done {
		return nil
	}
	return it.r.err
}

func (it *RawIter) decodeKey(b []byte) string {
	if it.r.utf8Lossy && !utf8.Valid(b) {
		return lossyString(b)
	}
	return string(b)
}

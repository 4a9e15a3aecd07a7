package bson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Typed Value Model Test Suite ---

type ValueTestSuite struct {
	suite.Suite
}

// fullDocument exercises every type the typed model can hold.
func (s *ValueTestSuite) fullDocument() *Document {
	oid, err := ObjectIDFromHex("64f0aa11bb22cc33dd44ee55")
	s.Require().NoError(err)

	return NewDocument().
		Append("double", 3.25).
		Append("string", "hello").
		Append("doc", NewDocument().Append("nested", int32(1))).
		Append("array", NewArray().Push(int32(1)).Push("two")).
		Append("binary", Binary{Subtype: SubtypeGeneric, Data: []byte{1, 2, 3}}).
		Append("binaryOld", Binary{Subtype: SubtypeBinaryOld, Data: []byte{4, 5}}).
		Append("undefined", Undefined{}).
		Append("objectID", oid).
		Append("bool", true).
		Append("datetime", DateTime(1700000000000)).
		Append("null", Null{}).
		Append("regex", Regex{Pattern: "^a.*z$", Options: "im"}).
		Append("dbpointer", DBPointer{Namespace: "db.coll", ID: oid}).
		Append("code", JavaScript("function() { return 1; }")).
		Append("symbol", Symbol("sym")).
		Append("codeWithScope", CodeWithScope{
			Code:  "function() { return x; }",
			Scope: NewDocument().Append("x", int32(7)),
		}).
		Append("int32", int32(-5)).
		Append("timestamp", Timestamp{T: 100, I: 2}).
		Append("int64", int64(1<<40)).
		Append("decimal128", NewDecimal128(0x3040000000000000, 42)).
		Append("minKey", MinKey{}).
		Append("maxKey", MaxKey{})
}

func (s *ValueTestSuite) TestEncodeDecodeRoundTrip() {
	doc := s.fullDocument()

	raw, err := doc.Encode()
	s.Require().NoError(err)
	s.Require().NoError(raw.Validate())

	got, err := raw.Decode()
	s.Require().NoError(err)
	s.Assert().Equal(doc, got)
}

func (s *ValueTestSuite) TestDecodeEncodeIsByteIdentical() {
	raw, err := s.fullDocument().Encode()
	s.Require().NoError(err)

	doc, err := raw.Decode()
	s.Require().NoError(err)
	again, err := doc.Encode()
	s.Require().NoError(err)
	s.Assert().Equal(raw, again)
}

func (s *ValueTestSuite) TestDocumentPreservesInsertionOrder() {
	d := NewDocument().
		Append("z", int32(1)).
		Append("a", int32(2)).
		Append("m", int32(3))
	s.Assert().Equal([]string{"z", "a", "m"}, d.Keys())

	raw, err := d.Encode()
	s.Require().NoError(err)
	var keys []string
	it := raw.Iter()
	for it.Next() {
		keys = append(keys, it.Key())
	}
	s.Require().NoError(it.Err())
	s.Assert().Equal([]string{"z", "a", "m"}, keys)
}

func (s *ValueTestSuite) TestDuplicateKeysSurviveRoundTrip() {
	d := NewDocument().
		Append("k", int32(1)).
		Append("k", int32(2))

	raw, err := d.Encode()
	s.Require().NoError(err)
	got, err := raw.Decode()
	s.Require().NoError(err)
	s.Require().Equal(2, got.Len())
	// Get finds the first occurrence.
	v, ok := got.Get("k")
	s.Require().True(ok)
	s.Assert().Equal(int32(1), v)
}

func (s *ValueTestSuite) TestOutOfRangeDateTimeRoundTrips() {
	// Milliseconds far outside the years time.Time can format still move
	// through the binary form untouched.
	d := NewDocument().Append("dt", DateTime(1<<61))
	raw, err := d.Encode()
	s.Require().NoError(err)
	got, err := raw.Decode()
	s.Require().NoError(err)
	v, ok := got.Get("dt")
	s.Require().True(ok)
	s.Assert().Equal(DateTime(1<<61), v)
}

func (s *ValueTestSuite) TestEncodeRejectsExcessiveNesting() {
	d := NewDocument().Append("leaf", int32(1))
	for i := 0; i < maxNestingDepth+1; i++ {
		d = NewDocument().Append("d", d)
	}
	_, err := d.Encode()
	s.Assert().ErrorIs(err, ErrTooDeep)
}

func TestValueSuite(t *testing.T) {
	suite.Run(t, new(ValueTestSuite))
}

// --- Scalar types ---

func TestTimestampCompare(t *testing.T) {
	cases := []struct {
		name string
		a, b Timestamp
		want int
	}{
		{"equal", Timestamp{T: 1, I: 1}, Timestamp{T: 1, I: 1}, 0},
		{"time dominates", Timestamp{T: 2, I: 0}, Timestamp{T: 1, I: 9}, 1},
		{"increment breaks ties", Timestamp{T: 1, I: 1}, Timestamp{T: 1, I: 2}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Compare(tc.b))
			assert.Equal(t, -tc.want, tc.b.Compare(tc.a))
		})
	}
}

func TestTimestampWireOrder(t *testing.T) {
	// The increment occupies the low four bytes on the wire.
	d := mustDoc(t, "ts", Timestamp{T: 0x01020304, I: 0x0A0B0C0D})
	v, found, err := d.Get("ts")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte{0x0D, 0x0C, 0x0B, 0x0A, 0x04, 0x03, 0x02, 0x01}, v.Data)

	ts, err := v.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, Timestamp{T: 0x01020304, I: 0x0A0B0C0D}, ts)
}

func TestDateTimeTruncatesToMilliseconds(t *testing.T) {
	base := time.Date(2023, 11, 14, 22, 13, 20, 123_456_789, time.UTC)
	dt := NewDateTime(base)
	assert.Equal(t, base.Truncate(time.Millisecond), dt.Time().UTC())
}

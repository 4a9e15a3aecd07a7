package bson

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Helpers ---

// mustDoc builds a document from key/value pairs, failing the test on any
// append error.
func mustDoc(t *testing.T, pairs ...any) RawDocument {
	t.Helper()
	b := NewDocumentBuilder()
	for i := 0; i < len(pairs); i += 2 {
		require.NoError(t, b.Append(pairs[i].(string), pairs[i+1]))
	}
	return b.RawDocument()
}

// --- RawDocument Test Suite ---

type RawDocumentTestSuite struct {
	suite.Suite
}

func (s *RawDocumentTestSuite) TestEmptyDocument() {
	d, err := NewRawDocument([]byte{5, 0, 0, 0, 0})
	s.Require().NoError(err)

	it := d.Iter()
	s.Assert().False(it.Next())
	s.Assert().NoError(it.Err())
}

func (s *RawDocumentTestSuite) TestConstructorRejectsBadFrames() {
	cases := map[string][]byte{
		"nil":              nil,
		"too short":        {4, 0, 0, 0},
		"length mismatch":  {6, 0, 0, 0, 0},
		"no terminator":    {5, 0, 0, 0, 1},
		"length over data": {227, 0, 35, 4, 2, 0, 255, 255, 255, 127, 255, 255, 255, 47},
	}
	for name, src := range cases {
		s.T().Run(name, func(t *testing.T) {
			_, err := NewRawDocument(src)
			assert.Error(t, err)
		})
	}
}

func (s *RawDocumentTestSuite) TestIterReadsElementsInOrder() {
	d := mustDoc(s.T(), "a", int32(1), "b", "two", "c", true)

	var keys []string
	var types []Type
	it := d.Iter()
	for it.Next() {
		keys = append(keys, it.Key())
		types = append(types, it.Value().Type)
	}
	s.Require().NoError(it.Err())
	s.Assert().Equal([]string{"a", "b", "c"}, keys)
	s.Assert().Equal([]Type{TypeInt32, TypeString, TypeBoolean}, types)
}

func (s *RawDocumentTestSuite) TestIterYieldsValidPrefixBeforeFailing() {
	// Two good elements followed by a string whose declared length runs
	// past the end of the document.
	d := mustDoc(s.T(), "ok1", int32(1), "ok2", int32(2), "bad", "hello")
	corrupt := append([]byte(nil), d...)
	// The last element's string length field sits 4 bytes after its key.
	idx := bytes.Index(corrupt, []byte("bad\x00"))
	s.Require().Positive(idx)
	binary.LittleEndian.PutUint32(corrupt[idx+4:], 1000)

	it := RawDocument(corrupt).Iter()
	s.Require().True(it.Next())
	s.Assert().Equal("ok1", it.Key())
	s.Require().True(it.Next())
	s.Assert().Equal("ok2", it.Key())

	s.Assert().False(it.Next())
	s.Assert().ErrorIs(it.Err(), ErrInvalidLength)
}

func (s *RawDocumentTestSuite) TestIterRejectsUnknownTag() {
	d := mustDoc(s.T(), "x", int32(1))
	corrupt := append([]byte(nil), d...)
	corrupt[4] = 0x42 // not a BSON type tag

	it := RawDocument(corrupt).Iter()
	s.Assert().False(it.Next())
	s.Assert().ErrorIs(it.Err(), ErrInvalidType)
}

func (s *RawDocumentTestSuite) TestIterRejectsTrailingBytes() {
	// A document whose length field covers bytes after the terminator.
	inner := mustDoc(s.T(), "x", int32(1))
	padded := append([]byte(nil), inner...)
	padded = append(padded, 0xAA, 0xBB)
	binary.LittleEndian.PutUint32(padded[0:4], uint32(len(padded)))
	padded[len(padded)-1] = 0x00

	it := RawDocument(padded).Iter()
	s.Require().True(it.Next())
	s.Assert().False(it.Next())
	s.Assert().ErrorIs(it.Err(), ErrTrailingBytes)
}

func (s *RawDocumentTestSuite) TestGet() {
	d := mustDoc(s.T(), "one", int32(1), "two", "second")

	v, found, err := d.Get("two")
	s.Require().NoError(err)
	s.Require().True(found)
	got, err := v.StringValue()
	s.Require().NoError(err)
	s.Assert().Equal("second", got)

	_, found, err = d.Get("three")
	s.Require().NoError(err)
	s.Assert().False(found)
}

func (s *RawDocumentTestSuite) TestValidateDescendsIntoChildren() {
	child := mustDoc(s.T(), "inner", "text")
	parent := mustDoc(s.T(), "child", RawDocument(child))
	s.Require().NoError(parent.Validate())

	// Corrupt the nested string's length; only a deep walk can see it.
	corrupt := append([]byte(nil), parent...)
	idx := bytes.Index(corrupt, []byte("inner\x00"))
	s.Require().Positive(idx)
	binary.LittleEndian.PutUint32(corrupt[idx+6:], 500)
	s.Assert().Error(RawDocument(corrupt).Validate())
}

func (s *RawDocumentTestSuite) TestValidateRejectsExcessiveNesting() {
	doc := mustDoc(s.T(), "leaf", int32(1))
	for i := 0; i < maxNestingDepth+1; i++ {
		doc = mustDoc(s.T(), "d", RawDocument(doc))
	}
	s.Assert().ErrorIs(doc.Validate(), ErrTooDeep)
}

func (s *RawDocumentTestSuite) TestWriteTo() {
	d := mustDoc(s.T(), "x", int32(7))
	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	s.Require().NoError(err)
	s.Assert().EqualValues(len(d), n)
	s.Assert().Equal([]byte(d), buf.Bytes())
}

// --- RawArray Test Suite ---

type RawArrayTestSuite struct {
	suite.Suite
}

func (s *RawArrayTestSuite) buildArray(values ...any) RawArray {
	b := NewArrayBuilder()
	for _, v := range values {
		s.Require().NoError(b.Push(v))
	}
	return b.RawArray()
}

func (s *RawArrayTestSuite) TestIndexAndCount() {
	a := s.buildArray(int32(10), "mid", int32(30))

	n, err := a.Count()
	s.Require().NoError(err)
	s.Assert().Equal(3, n)

	v, found, err := a.Index(1)
	s.Require().NoError(err)
	s.Require().True(found)
	got, err := v.StringValue()
	s.Require().NoError(err)
	s.Assert().Equal("mid", got)

	_, found, err = a.Index(3)
	s.Require().NoError(err)
	s.Assert().False(found)
}

func (s *RawArrayTestSuite) TestDecode() {
	a := s.buildArray(int32(1), int32(2))
	arr, err := a.Decode()
	s.Require().NoError(err)
	s.Require().Equal(2, arr.Len())
	v, ok := arr.Get(0)
	s.Require().True(ok)
	s.Assert().Equal(int32(1), v)
}

// --- RawValue accessors ---

func TestRawValueTypeMismatch(t *testing.T) {
	d := mustDoc(t, "s", "text")
	v, found, err := d.Get("s")
	require.NoError(t, err)
	require.True(t, found)

	_, err = v.Double()
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = v.Int32()
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestRawValueBinaryOldSubtype(t *testing.T) {
	// Subtype 0x02 carries a redundant inner length that accessors strip.
	d := mustDoc(t, "b", Binary{Subtype: SubtypeBinaryOld, Data: []byte{1, 2, 3}})
	v, found, err := d.Get("b")
	require.NoError(t, err)
	require.True(t, found)

	b, err := v.Binary()
	require.NoError(t, err)
	assert.Equal(t, byte(SubtypeBinaryOld), b.Subtype)
	assert.Equal(t, []byte{1, 2, 3}, b.Data)
}

func TestRawValueShortDataReturnsError(t *testing.T) {
	// A hand-built RawValue may carry fewer bytes than its type declares;
	// accessors must fail with a truncation error instead of panicking.
	cases := []struct {
		name string
		typ  Type
		read func(RawValue) error
	}{
		{"double", TypeDouble, func(v RawValue) error { _, err := v.Double(); return err }},
		{"string", TypeString, func(v RawValue) error { _, err := v.StringValue(); return err }},
		{"binary", TypeBinary, func(v RawValue) error { _, err := v.Binary(); return err }},
		{"objectID", TypeObjectID, func(v RawValue) error { _, err := v.ObjectID(); return err }},
		{"boolean", TypeBoolean, func(v RawValue) error { _, err := v.Boolean(); return err }},
		{"dateTime", TypeDateTime, func(v RawValue) error { _, err := v.DateTime(); return err }},
		{"int32", TypeInt32, func(v RawValue) error { _, err := v.Int32(); return err }},
		{"timestamp", TypeTimestamp, func(v RawValue) error { _, err := v.Timestamp(); return err }},
		{"int64", TypeInt64, func(v RawValue) error { _, err := v.Int64(); return err }},
		{"decimal128", TypeDecimal128, func(v RawValue) error { _, err := v.Decimal128(); return err }},
		{"dbPointer", TypeDBPointer, func(v RawValue) error { _, err := v.DBPointer(); return err }},
		{"regex", TypeRegex, func(v RawValue) error { _, err := v.Regex(); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(RawValue{Type: tc.typ, Data: nil})
			assert.Error(t, err)
		})
	}

	// A declared length pointing past the end of Data is a length error,
	// not an index panic.
	_, err := RawValue{Type: TypeString, Data: []byte{100, 0, 0, 0, 'x'}}.StringValue()
	assert.ErrorIs(t, err, ErrInvalidLength)
	_, err = RawValue{Type: TypeBinary, Data: []byte{100, 0, 0, 0, 0x00, 'x'}}.Binary()
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestLossyStringReplacesEachInvalidByte(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"two standalone bytes", []byte{0xFF, 0xFE}, "��"},
		{"invalid between runs", []byte{'a', 0xFF, 'b'}, "a�b"},
		{"truncated sequence bytes", []byte{0xE2, 0x82}, "��"},
		{"valid input untouched", []byte("héllo"), "héllo"},
		{"literal replacement kept", []byte("�"), "�"},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, lossyString(tc.in))
		})
	}
}

func TestRawDocumentSuite(t *testing.T) {
	suite.Run(t, new(RawDocumentTestSuite))
}

func TestRawArraySuite(t *testing.T) {
	suite.Run(t, new(RawArrayTestSuite))
}

package bson

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUUID = uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")

func TestUUIDRepresentationByteOrders(t *testing.T) {
	cases := []struct {
		name    string
		rep     UUIDRepresentation
		subtype byte
		data    []byte
	}{
		{
			"standard", UUIDStandard, SubtypeUUID,
			[]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		},
		{
			"java legacy", UUIDJavaLegacy, SubtypeUUIDOld,
			[]byte{0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0x00, 0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA, 0x99, 0x88},
		},
		{
			"python legacy", UUIDPythonLegacy, SubtypeUUIDOld,
			[]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		},
		{
			"csharp legacy", UUIDCSharpLegacy, SubtypeUUIDOld,
			[]byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBinaryFromUUID(testUUID, tc.rep)
			assert.Equal(t, tc.subtype, b.Subtype)
			assert.Equal(t, tc.data, b.Data)

			got, err := b.UUIDWithRepresentation(tc.rep)
			require.NoError(t, err)
			assert.Equal(t, testUUID, got)
		})
	}
}

func TestUUIDRepresentationRejectsWrongSubtype(t *testing.T) {
	standard := NewBinaryFromUUID(testUUID, UUIDStandard)
	_, err := standard.UUIDWithRepresentation(UUIDJavaLegacy)
	assert.ErrorIs(t, err, ErrSubtypeMismatch)

	legacy := NewBinaryFromUUID(testUUID, UUIDPythonLegacy)
	_, err = legacy.UUID()
	assert.ErrorIs(t, err, ErrSubtypeMismatch)
}

func TestUUIDRejectsBadLength(t *testing.T) {
	_, err := Binary{Subtype: SubtypeUUID, Data: []byte{1, 2, 3}}.UUID()
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestLegacyUUIDWrappersRoundTrip(t *testing.T) {
	type doc struct {
		Java   JavaLegacyUUID   `bson:"java"`
		Python PythonLegacyUUID `bson:"python"`
		CSharp CSharpLegacyUUID `bson:"csharp"`
	}
	in := doc{
		Java:   JavaLegacyUUID{UUID: testUUID},
		Python: PythonLegacyUUID{UUID: testUUID},
		CSharp: CSharpLegacyUUID{UUID: testUUID},
	}

	b, err := Marshal(in)
	require.NoError(t, err)

	// Every wrapper uses the legacy subtype on the wire.
	for _, key := range []string{"java", "python", "csharp"} {
		v, found, err := RawDocument(b).Get(key)
		require.NoError(t, err)
		require.True(t, found)
		bin, err := v.Binary()
		require.NoError(t, err)
		assert.Equal(t, byte(SubtypeUUIDOld), bin.Subtype)
	}

	var out doc
	require.NoError(t, Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestPlainUUIDUsesStandardSubtype(t *testing.T) {
	type doc struct {
		ID uuid.UUID `bson:"id"`
	}
	b, err := Marshal(doc{ID: testUUID})
	require.NoError(t, err)

	v, found, err := RawDocument(b).Get("id")
	require.NoError(t, err)
	require.True(t, found)
	bin, err := v.Binary()
	require.NoError(t, err)
	assert.Equal(t, byte(SubtypeUUID), bin.Subtype)
	assert.Equal(t, testUUID[:], bin.Data)

	var out doc
	require.NoError(t, Unmarshal(b, &out))
	assert.Equal(t, testUUID, out.ID)
}

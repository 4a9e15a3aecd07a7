package bson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDHexRoundTrip(t *testing.T) {
	id := NewObjectID()
	parsed, err := ObjectIDFromHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestObjectIDFromHexRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"too short": "64f0aa11bb22",
		"too long":  "64f0aa11bb22cc33dd44ee5500",
		"not hex":   "64f0aa11bb22cc33dd44eezz",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ObjectIDFromHex(in)
			assert.Error(t, err)
		})
	}
}

func TestObjectIDEmbedsTimestamp(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	id := NewObjectID()
	after := time.Now().Add(time.Second)

	ts := id.Timestamp()
	assert.False(t, ts.Before(before))
	assert.False(t, ts.After(after))
}

func TestObjectIDsAreDistinct(t *testing.T) {
	seen := make(map[ObjectID]bool)
	for i := 0; i < 1000; i++ {
		id := NewObjectID()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestObjectIDIsZero(t *testing.T) {
	assert.True(t, ObjectID{}.IsZero())
	assert.False(t, NewObjectID().IsZero())
}

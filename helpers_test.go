package bson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedFromUnsignedBounds(t *testing.T) {
	n, err := Int32FromUint32(math.MaxInt32)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), n)

	_, err = Int32FromUint32(math.MaxInt32 + 1)
	assert.ErrorIs(t, err, ErrLossyConversion)

	_, err = Int32FromUint64(math.MaxUint64)
	assert.ErrorIs(t, err, ErrLossyConversion)

	w, err := Int64FromUint64(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), w)

	_, err = Int64FromUint64(math.MaxInt64 + 1)
	assert.ErrorIs(t, err, ErrLossyConversion)

	assert.Equal(t, int64(math.MaxUint32), Int64FromUint32(math.MaxUint32))
}

func TestFloat64FromUint64Exactness(t *testing.T) {
	cases := []struct {
		name string
		v    uint64
		ok   bool
	}{
		{"small", 42, true},
		{"2^53", 1 << 53, true},
		{"2^53+1", 1<<53 + 1, false},
		{"2^63 (low bits zero)", 1 << 63, true},
		{"max uint64", math.MaxUint64, false},
		{"max uint64 minus one", math.MaxUint64 - 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Float64FromUint64(tc.v)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrLossyConversion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.v, uint64(f))
		})
	}
}

func TestUint64FromFloat64(t *testing.T) {
	u, err := Uint64FromFloat64(float64(1 << 53))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<53), u)

	_, err = Uint64FromFloat64(-1)
	assert.ErrorIs(t, err, ErrLossyConversion)

	_, err = Uint64FromFloat64(0.5)
	assert.ErrorIs(t, err, ErrLossyConversion)

	// 2^64 itself is representable as a float but unreachable as a uint64.
	_, err = Uint64FromFloat64(math.Ldexp(1, 64))
	assert.ErrorIs(t, err, ErrLossyConversion)
}

func TestUint32Float64RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, math.MaxUint32} {
		f := Float64FromUint32(v)
		u, err := Uint32FromFloat64(f)
		require.NoError(t, err)
		assert.Equal(t, v, u)
	}

	_, err := Uint32FromFloat64(3.5)
	assert.ErrorIs(t, err, ErrLossyConversion)
	_, err = Uint32FromFloat64(math.MaxUint32 + 1.0)
	assert.ErrorIs(t, err, ErrLossyConversion)
}

func TestTimestampCounterConversions(t *testing.T) {
	ts := TimestampFromUint32(77)
	assert.Equal(t, Timestamp{T: 77}, ts)

	v, err := Uint32FromTimestamp(ts)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), v)

	_, err = Uint32FromTimestamp(Timestamp{T: 77, I: 1})
	assert.ErrorIs(t, err, ErrLossyConversion)
}

func TestRFC3339RoundTrip(t *testing.T) {
	dt := DateTimeFromMillis(1700000000123)
	s, err := FormatRFC3339(dt)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14T22:13:20.123Z", s)

	back, err := DateTimeFromRFC3339(s)
	require.NoError(t, err)
	assert.Equal(t, dt, back)

	_, err = DateTimeFromRFC3339("not a date")
	assert.Error(t, err)

	_, err = FormatRFC3339(DateTime(1 << 48))
	assert.ErrorIs(t, err, ErrLossyConversion)
}

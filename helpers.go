package bson

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// The conversion helpers here bridge Go types BSON has no wire tag for
// (unsigned integers, timestamps as counters) onto the closed set of BSON
// numeric types. Every helper is exact-or-error: a conversion that would
// change the value returns ErrLossyConversion instead of rounding.

func signedFromUnsigned[S constraints.Signed, U constraints.Unsigned](v U) (S, error) {
	s := S(v)
	if s < 0 || U(s) != v {
		return 0, errors.Wrapf(ErrLossyConversion, "%d out of range", v)
	}
	return s, nil
}

// Int32FromUint32 converts v to an int32, failing if v exceeds
// math.MaxInt32.
func Int32FromUint32(v uint32) (int32, error) {
	return signedFromUnsigned[int32](v)
}

// Int32FromUint64 converts v to an int32, failing if v exceeds
// math.MaxInt32.
func Int32FromUint64(v uint64) (int32, error) {
	return signedFromUnsigned[int32](v)
}

// Int64FromUint64 converts v to an int64, failing if v exceeds
// math.MaxInt64.
func Int64FromUint64(v uint64) (int64, error) {
	return signedFromUnsigned[int64](v)
}

// Int64FromUint32 converts v to an int64. The conversion is always exact.
func Int64FromUint32(v uint32) int64 {
	return int64(v)
}

// Float64FromUint32 converts v to a float64. Every uint32 is exactly
// representable, so the conversion cannot fail.
func Float64FromUint32(v uint32) float64 {
	return float64(v)
}

// Uint32FromFloat64 converts f back to a uint32, failing if f is negative,
// too large, or not an integer.
func Uint32FromFloat64(f float64) (uint32, error) {
	if f < 0 || f > math.MaxUint32 {
		return 0, errors.Wrapf(ErrLossyConversion, "%v out of uint32 range", f)
	}
	u := uint32(f)
	if math.Abs(f-float64(u)) > math.SmallestNonzeroFloat64 {
		return 0, errors.Wrapf(ErrLossyConversion, "%v is not an integer", f)
	}
	return u, nil
}

// maxUint64AsFloat is 2^64, the smallest float64 no uint64 can reach.
const maxUint64AsFloat = float64(1<<63) * 2

// Float64FromUint64 converts v to a float64, failing unless the value
// survives the round trip exactly. Values above 2^53 are representable
// only when their low bits are zero.
func Float64FromUint64(v uint64) (float64, error) {
	if v == math.MaxUint64 {
		return 0, errors.Wrapf(ErrLossyConversion, "%d is not exactly representable as float64", v)
	}
	f := float64(v)
	if f >= maxUint64AsFloat || uint64(f) != v {
		return 0, errors.Wrapf(ErrLossyConversion, "%d is not exactly representable as float64", v)
	}
	return f, nil
}

// Uint64FromFloat64 converts f back to a uint64, failing if f is negative,
// too large, or not an integer.
func Uint64FromFloat64(f float64) (uint64, error) {
	if f < 0 || f >= maxUint64AsFloat {
		return 0, errors.Wrapf(ErrLossyConversion, "%v out of uint64 range", f)
	}
	u := uint64(f)
	if float64(u) != f {
		return 0, errors.Wrapf(ErrLossyConversion, "%v is not an integer", f)
	}
	return u, nil
}

// TimestampFromUint32 builds a Timestamp whose time field is v and whose
// increment is zero.
func TimestampFromUint32(v uint32) Timestamp {
	return Timestamp{T: v}
}

// Uint32FromTimestamp extracts the time field of ts, failing if the
// increment carries information that a bare uint32 would drop.
func Uint32FromTimestamp(ts Timestamp) (uint32, error) {
	if ts.I != 0 {
		return 0, errors.Wrapf(ErrLossyConversion, "timestamp increment %d would be lost", ts.I)
	}
	return ts.T, nil
}

// DateTimeFromMillis builds a DateTime from milliseconds since the Unix
// epoch.
func DateTimeFromMillis(ms int64) DateTime {
	return DateTime(ms)
}

// DateTimeFromRFC3339 parses an RFC 3339 string, as produced by the
// human-readable encoding mode.
func DateTimeFromRFC3339(s string) (DateTime, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, errors.Wrap(err, "bson: invalid RFC 3339 datetime")
	}
	return NewDateTime(t), nil
}

// FormatRFC3339 renders dt as an RFC 3339 string. Years outside 0-9999
// cannot be expressed in that grammar and return an error.
func FormatRFC3339(dt DateTime) (string, error) {
	t := dt.Time().UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return "", errors.Wrapf(ErrLossyConversion, "year %d outside RFC 3339 range", y)
	}
	return t.Format(time.RFC3339Nano), nil
}

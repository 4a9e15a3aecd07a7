package bson

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ObjectID is the 12-byte BSON object identifier: a 4-byte big-endian
// seconds-since-epoch timestamp, 5 bytes of process-unique salt, and a
// 3-byte big-endian counter.
type ObjectID [12]byte

var (
	// processSalt is generated once per process so that identifiers from
	// different processes cannot collide even within the same second.
	processSalt = newProcessSalt()
	oidCounter  = newOIDCounter()
)

func newProcessSalt() [5]byte {
	var salt [5]byte
	if _, err := rand.Read(salt[:]); err != nil {
		panic(errors.Wrap(err, "bson: reading random process salt"))
	}
	return salt
}

func newOIDCounter() *atomic.Uint32 {
	var b [4]byte
	if _, err := rand.Read(b[1:]); err != nil {
		panic(errors.Wrap(err, "bson: seeding objectid counter"))
	}
	c := new(atomic.Uint32)
	c.Store(binary.BigEndian.Uint32(b[:]))
	return c
}

// NewObjectID generates a new unique ObjectID for the current time.
func NewObjectID() ObjectID {
	return newObjectIDAt(time.Now())
}

func newObjectIDAt(t time.Time) ObjectID {
	var oid ObjectID
	binary.BigEndian.PutUint32(oid[0:4], uint32(t.Unix()))
	copy(oid[4:9], processSalt[:])

	n := oidCounter.Add(1)
	oid[9] = byte(n >> 16)
	oid[10] = byte(n >> 8)
	oid[11] = byte(n)
	return oid
}

// ObjectIDFromHex parses the 24-character hexadecimal form of an ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var oid ObjectID
	if len(s) != 24 {
		return oid, errors.Errorf("bson: objectid hex must be 24 characters, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return oid, errors.Wrap(err, "bson: invalid objectid hex")
	}
	copy(oid[:], b)
	return oid, nil
}

// Hex returns the 24-character lowercase hexadecimal form.
func (oid ObjectID) Hex() string {
	return hex.EncodeToString(oid[:])
}

func (oid ObjectID) String() string { return oid.Hex() }

// Timestamp returns the creation time embedded in the identifier, at
// second precision.
func (oid ObjectID) Timestamp() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(oid[0:4])), 0).UTC()
}

// IsZero reports whether the identifier is the all-zero value.
func (oid ObjectID) IsZero() bool { return oid == ObjectID{} }

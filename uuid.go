package bson

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UUIDRepresentation selects the byte order and binary subtype used when a
// UUID crosses the wire. Old drivers serialized UUIDs with subtype 0x03 in
// driver-specific byte orders; the standard representation uses subtype
// 0x04 with the bytes unchanged.
type UUIDRepresentation byte

const (
	// UUIDStandard stores the RFC 4122 bytes as-is under subtype 0x04.
	UUIDStandard UUIDRepresentation = iota
	// UUIDJavaLegacy stores each 8-byte half reversed under subtype 0x03.
	UUIDJavaLegacy
	// UUIDPythonLegacy stores the RFC 4122 bytes as-is under subtype 0x03.
	UUIDPythonLegacy
	// UUIDCSharpLegacy stores the first three fields little-endian under
	// subtype 0x03.
	UUIDCSharpLegacy
)

// NewBinaryFromUUID encodes u as a Binary in the given representation.
func NewBinaryFromUUID(u uuid.UUID, rep UUIDRepresentation) Binary {
	if rep == UUIDStandard {
		return Binary{Subtype: SubtypeUUID, Data: append([]byte(nil), u[:]...)}
	}
	return Binary{Subtype: SubtypeUUIDOld, Data: legacyUUIDBytes(u, rep)}
}

// UUID interprets b as a standard (subtype 0x04) UUID.
func (b Binary) UUID() (uuid.UUID, error) {
	return b.UUIDWithRepresentation(UUIDStandard)
}

// UUIDWithRepresentation interprets b as a UUID stored in the given
// representation. The binary subtype must match the representation: a
// legacy representation never reads subtype 0x04 bytes and vice versa.
func (b Binary) UUIDWithRepresentation(rep UUIDRepresentation) (uuid.UUID, error) {
	var u uuid.UUID
	want := byte(SubtypeUUID)
	if rep != UUIDStandard {
		want = SubtypeUUIDOld
	}
	if b.Subtype != want {
		return u, errors.Wrapf(ErrSubtypeMismatch, "want subtype %#x, got %#x", want, b.Subtype)
	}
	if len(b.Data) != 16 {
		return u, errors.Wrapf(ErrInvalidLength, "UUID binary has %d bytes", len(b.Data))
	}
	copy(u[:], b.Data)
	if rep == UUIDStandard || rep == UUIDPythonLegacy {
		return u, nil
	}
	// The legacy orders are involutions, so decoding reapplies them.
	var out uuid.UUID
	copy(out[:], legacyUUIDBytes(u, rep))
	return out, nil
}

// legacyUUIDBytes reorders the RFC 4122 bytes into the given legacy
// driver's order. Applying the same reorder twice restores the input.
func legacyUUIDBytes(u uuid.UUID, rep UUIDRepresentation) []byte {
	out := make([]byte, 16)
	switch rep {
	case UUIDJavaLegacy:
		for i := 0; i < 8; i++ {
			out[i] = u[7-i]
			out[8+i] = u[15-i]
		}
	case UUIDCSharpLegacy:
		out[0], out[1], out[2], out[3] = u[3], u[2], u[1], u[0]
		out[4], out[5] = u[5], u[4]
		out[6], out[7] = u[7], u[6]
		copy(out[8:], u[8:])
	default:
		copy(out, u[:])
	}
	return out
}

// JavaLegacyUUID marshals its UUID in the Java driver's legacy byte order.
type JavaLegacyUUID struct {
	UUID uuid.UUID
}

// PythonLegacyUUID marshals its UUID with legacy subtype 0x03 but
// unchanged bytes, matching the PyMongo default of old.
type PythonLegacyUUID struct {
	UUID uuid.UUID
}

// CSharpLegacyUUID marshals its UUID in the .NET driver's legacy byte
// order.
type CSharpLegacyUUID struct {
	UUID uuid.UUID
}

func (u JavaLegacyUUID) MarshalBSONValue() (Type, []byte, error) {
	return marshalUUIDValue(u.UUID, UUIDJavaLegacy)
}

func (u *JavaLegacyUUID) UnmarshalBSONValue(t Type, data []byte) error {
	got, err := unmarshalUUIDValue(t, data, UUIDJavaLegacy)
	if err != nil {
		return err
	}
	u.UUID = got
	return nil
}

func (u PythonLegacyUUID) MarshalBSONValue() (Type, []byte, error) {
	return marshalUUIDValue(u.UUID, UUIDPythonLegacy)
}

func (u *PythonLegacyUUID) UnmarshalBSONValue(t Type, data []byte) error {
	got, err := unmarshalUUIDValue(t, data, UUIDPythonLegacy)
	if err != nil {
		return err
	}
	u.UUID = got
	return nil
}

func (u CSharpLegacyUUID) MarshalBSONValue() (Type, []byte, error) {
	return marshalUUIDValue(u.UUID, UUIDCSharpLegacy)
}

func (u *CSharpLegacyUUID) UnmarshalBSONValue(t Type, data []byte) error {
	got, err := unmarshalUUIDValue(t, data, UUIDCSharpLegacy)
	if err != nil {
		return err
	}
	u.UUID = got
	return nil
}

var (
	_ ValueMarshaler   = JavaLegacyUUID{}
	_ ValueUnmarshaler = (*JavaLegacyUUID)(nil)
	_ ValueMarshaler   = PythonLegacyUUID{}
	_ ValueUnmarshaler = (*PythonLegacyUUID)(nil)
	_ ValueMarshaler   = CSharpLegacyUUID{}
	_ ValueUnmarshaler = (*CSharpLegacyUUID)(nil)
)

func marshalUUIDValue(u uuid.UUID, rep UUIDRepresentation) (Type, []byte, error) {
	return TypeBinary, appendBinary(nil, NewBinaryFromUUID(u, rep)), nil
}

func unmarshalUUIDValue(t Type, data []byte, rep UUIDRepresentation) (uuid.UUID, error) {
	if t != TypeBinary {
		return uuid.UUID{}, errTypeMismatch(TypeBinary, t)
	}
	b, err := RawValue{Type: TypeBinary, Data: data}.Binary()
	if err != nil {
		return uuid.UUID{}, err
	}
	return b.UUIDWithRepresentation(rep)
}

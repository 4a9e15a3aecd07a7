package bson

// Type is the one-byte tag that prefixes every element and selects the
// encoding of its value payload.
type Type byte

// The wire-format type tags. BSON is little-endian throughout; the numeric
// values below are fixed by the format and must never change.
const (
	TypeDouble        Type = 0x01
	TypeString        Type = 0x02
	TypeDocument      Type = 0x03
	TypeArray         Type = 0x04
	TypeBinary        Type = 0x05
	TypeUndefined     Type = 0x06
	TypeObjectID      Type = 0x07
	TypeBoolean       Type = 0x08
	TypeDateTime      Type = 0x09
	TypeNull          Type = 0x0A
	TypeRegex         Type = 0x0B
	TypeDBPointer     Type = 0x0C
	TypeJavaScript    Type = 0x0D
	TypeSymbol        Type = 0x0E
	TypeCodeWithScope Type = 0x0F
	TypeInt32         Type = 0x10
	TypeTimestamp     Type = 0x11
	TypeInt64         Type = 0x12
	TypeDecimal128    Type = 0x13
	TypeMinKey        Type = 0xFF
	TypeMaxKey        Type = 0x7F
)

// String returns the name of the type as used by the BSON specification.
func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeDocument:
		return "document"
	case TypeArray:
		return "array"
	case TypeBinary:
		return "binary"
	case TypeUndefined:
		return "undefined"
	case TypeObjectID:
		return "objectId"
	case TypeBoolean:
		return "boolean"
	case TypeDateTime:
		return "dateTime"
	case TypeNull:
		return "null"
	case TypeRegex:
		return "regex"
	case TypeDBPointer:
		return "dbPointer"
	case TypeJavaScript:
		return "javascript"
	case TypeSymbol:
		return "symbol"
	case TypeCodeWithScope:
		return "javascriptWithScope"
	case TypeInt32:
		return "int32"
	case TypeTimestamp:
		return "timestamp"
	case TypeInt64:
		return "int64"
	case TypeDecimal128:
		return "decimal128"
	case TypeMinKey:
		return "minKey"
	case TypeMaxKey:
		return "maxKey"
	default:
		return "invalid"
	}
}

// valid reports whether t is one of the tags defined by the format.
func (t Type) valid() bool {
	switch t {
	case TypeDouble, TypeString, TypeDocument, TypeArray, TypeBinary,
		TypeUndefined, TypeObjectID, TypeBoolean, TypeDateTime, TypeNull,
		TypeRegex, TypeDBPointer, TypeJavaScript, TypeSymbol,
		TypeCodeWithScope, TypeInt32, TypeTimestamp, TypeInt64,
		TypeDecimal128, TypeMinKey, TypeMaxKey:
		return true
	}
	return false
}

// Binary subtypes. The subtype byte determines how a binary payload is
// interpreted; it does not change the wire encoding except for
// SubtypeBinaryOld, which carries a redundant inner length prefix.
const (
	SubtypeGeneric     byte = 0x00
	SubtypeFunction    byte = 0x01
	SubtypeBinaryOld   byte = 0x02
	SubtypeUUIDOld     byte = 0x03
	SubtypeUUID        byte = 0x04
	SubtypeMD5         byte = 0x05
	SubtypeEncrypted   byte = 0x06
	SubtypeColumn      byte = 0x07
	SubtypeSensitive   byte = 0x08
	SubtypeVector      byte = 0x09
	SubtypeUserDefined byte = 0x80
)

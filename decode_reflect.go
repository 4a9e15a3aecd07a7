package bson

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// decodeContext carries the cross-cutting decoding state. The path records
// the chain of keys and array indices leading to the value currently being
// decoded, so a failure deep inside a document names its exact location.
type decodeContext struct {
	humanReadable bool
	utf8Lossy     bool
	depth         int
	path          []string
}

// push returns a copy of the context descended by one path segment. The
// path slice is re-sliced with a hard cap so sibling branches never share
// backing storage.
func (dc decodeContext) push(seg string) decodeContext {
	dc.path = append(dc.path[:len(dc.path):len(dc.path)], seg)
	return dc
}

// wrap attaches the current path to err. An error that already carries a
// path passes through untouched so the innermost location wins.
func (dc decodeContext) wrap(err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Path: append([]string(nil), dc.path...), Err: err}
}

var (
	unmarshalerType      = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
	valueUnmarshalerType = reflect.TypeOf((*ValueUnmarshaler)(nil)).Elem()
)

// reflectDecodeDocument decodes raw into rv, which must be a settable
// struct, map, *Document, or compatible raw view.
func reflectDecodeDocument(raw RawDocument, rv reflect.Value, dc decodeContext) error {
	if dc.depth > maxNestingDepth {
		return dc.wrap(ErrTooDeep)
	}
	rv, dc = unwrapDecode(rv, dc)

	switch t := rv.Addr().Interface().(type) {
	case *RawDocument:
		d, err := NewRawDocument(raw)
		if err != nil {
			return dc.wrap(err)
		}
		*t = d
		return nil
	case **Document:
		d, err := decodeTypedDocument(raw, dc)
		if err != nil {
			return err
		}
		*t = d
		return nil
	case *Document:
		d, err := decodeTypedDocument(raw, dc)
		if err != nil {
			return err
		}
		*t = *d
		return nil
	case *any:
		d, err := decodeTypedDocument(raw, dc)
		if err != nil {
			return err
		}
		*t = d
		return nil
	}
	if rv.Addr().Type().Implements(unmarshalerType) {
		return dc.wrap(rv.Addr().Interface().(Unmarshaler).UnmarshalBSON(raw))
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return reflectDecodeDocument(raw, rv.Elem(), dc)
	case reflect.Struct:
		si := cachedStructInfo(rv.Type())
		it := newRawIter(raw, dc.utf8Lossy)
		for it.Next() {
			idx, ok := si.byName[it.Key()]
			if !ok {
				continue
			}
			fdc := dc.push(it.Key())
			if err := reflectDecodeValue(it.Value(), rv.Field(si.fields[idx].index), fdc); err != nil {
				return fdc.wrap(err)
			}
		}
		return dc.wrap(it.Err())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return dc.wrap(fmt.Errorf("%w: map key type %s", ErrUnsupportedValue, rv.Type().Key()))
		}
		if rv.IsNil() {
			rv.Set(reflect.MakeMap(rv.Type()))
		}
		elemType := rv.Type().Elem()
		it := newRawIter(raw, dc.utf8Lossy)
		for it.Next() {
			edc := dc.push(it.Key())
			ev := reflect.New(elemType).Elem()
			if err := reflectDecodeValue(it.Value(), ev, edc); err != nil {
				return edc.wrap(err)
			}
			rv.SetMapIndex(reflect.ValueOf(it.Key()).Convert(rv.Type().Key()), ev)
		}
		return dc.wrap(it.Err())
	default:
		return dc.wrap(fmt.Errorf("%w: cannot decode document into %s", ErrUnsupportedValue, rv.Type()))
	}
}

// decodeTypedDocument materializes raw as a *Document, honoring the lossy
// flag and the depth limit.
func decodeTypedDocument(raw RawDocument, dc decodeContext) (*Document, error) {
	d := &Document{}
	it := newRawIter(raw, dc.utf8Lossy)
	for it.Next() {
		edc := dc.push(it.Key())
		v := it.Value()
		v.utf8Lossy = dc.utf8Lossy
		got, err := decodeValue(v, dc.depth+1)
		if err != nil {
			return nil, edc.wrap(err)
		}
		d.Append(it.Key(), got)
	}
	if err := it.Err(); err != nil {
		return nil, dc.wrap(err)
	}
	return d, nil
}

// unwrapDecode strips wrapper types from the target, folding their flags
// into the context.
func unwrapDecode(rv reflect.Value, dc decodeContext) (reflect.Value, decodeContext) {
	for rv.Kind() == reflect.Struct {
		switch {
		case rv.Type().Implements(humanReadableFlagType):
			dc.humanReadable = true
			rv = rv.Field(0)
		case rv.Type().Implements(utf8LossyFlagType):
			dc.utf8Lossy = true
			rv = rv.Field(0)
		default:
			return rv, dc
		}
	}
	return rv, dc
}

// reflectDecodeValue decodes a single raw value into rv, which must be
// settable.
func reflectDecodeValue(v RawValue, rv reflect.Value, dc decodeContext) error {
	if dc.depth > maxNestingDepth {
		return ErrTooDeep
	}
	rv, dc = unwrapDecode(rv, dc)
	v.utf8Lossy = v.utf8Lossy || dc.utf8Lossy

	if rv.Kind() == reflect.Pointer {
		if v.Type == TypeNull || v.Type == TypeUndefined {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		if u, ok := rv.Interface().(ValueUnmarshaler); ok {
			return u.UnmarshalBSONValue(v.Type, v.Data)
		}
		return reflectDecodeValue(v, rv.Elem(), dc)
	}
	if rv.CanAddr() && rv.Addr().Type().Implements(valueUnmarshalerType) {
		return rv.Addr().Interface().(ValueUnmarshaler).UnmarshalBSONValue(v.Type, v.Data)
	}

	// Concrete closed-set targets.
	if rv.CanAddr() {
		switch t := rv.Addr().Interface().(type) {
		case *any:
			got, err := decodeValue(v, dc.depth+1)
			if err != nil {
				return err
			}
			*t = got
			return nil
		case *RawValue:
			*t = v
			return nil
		case *DateTime:
			return decodeDateTimeInto(t, v, dc)
		case *time.Time:
			var d DateTime
			if err := decodeDateTimeInto(&d, v, dc); err != nil {
				return err
			}
			*t = d.Time()
			return nil
		case *ObjectID:
			if dc.humanReadable && v.Type == TypeString {
				s, err := v.StringValue()
				if err != nil {
					return err
				}
				id, err := ObjectIDFromHex(s)
				if err != nil {
					return err
				}
				*t = id
				return nil
			}
			id, err := v.ObjectID()
			if err != nil {
				return err
			}
			*t = id
			return nil
		case *Timestamp:
			ts, err := v.Timestamp()
			if err != nil {
				return err
			}
			*t = ts
			return nil
		case *Binary:
			b, err := v.Binary()
			if err != nil {
				return err
			}
			*t = Binary{Subtype: b.Subtype, Data: append([]byte(nil), b.Data...)}
			return nil
		case *Regex:
			r, err := v.Regex()
			if err != nil {
				return err
			}
			*t = r
			return nil
		case *JavaScript:
			js, err := v.JavaScript()
			if err != nil {
				return err
			}
			*t = js
			return nil
		case *Symbol:
			s, err := v.Symbol()
			if err != nil {
				return err
			}
			*t = s
			return nil
		case *CodeWithScope:
			code, scope, err := v.CodeWithScope()
			if err != nil {
				return err
			}
			sd, err := decodeTypedDocument(scope, dc)
			if err != nil {
				return err
			}
			*t = CodeWithScope{Code: code, Scope: sd}
			return nil
		case *DBPointer:
			p, err := v.DBPointer()
			if err != nil {
				return err
			}
			*t = p
			return nil
		case *Decimal128:
			d, err := v.Decimal128()
			if err != nil {
				return err
			}
			*t = d
			return nil
		case *Null:
			if v.Type != TypeNull {
				return errTypeMismatch(TypeNull, v.Type)
			}
			*t = Null{}
			return nil
		case *Undefined:
			if v.Type != TypeUndefined {
				return errTypeMismatch(TypeUndefined, v.Type)
			}
			*t = Undefined{}
			return nil
		case *MinKey:
			if v.Type != TypeMinKey {
				return errTypeMismatch(TypeMinKey, v.Type)
			}
			*t = MinKey{}
			return nil
		case *MaxKey:
			if v.Type != TypeMaxKey {
				return errTypeMismatch(TypeMaxKey, v.Type)
			}
			*t = MaxKey{}
			return nil
		case *RawDocument, **Document, *Document:
			doc, err := v.Document()
			if err != nil {
				return err
			}
			return reflectDecodeDocument(doc, rv, decodeContext{
				humanReadable: dc.humanReadable,
				utf8Lossy:     dc.utf8Lossy,
				depth:         dc.depth + 1,
				path:          dc.path,
			})
		case *RawArray:
			a, err := v.Array()
			if err != nil {
				return err
			}
			*t = a
			return nil
		case **Array, *Array:
			a, err := v.Array()
			if err != nil {
				return err
			}
			arr, err := decodeTypedArray(a, dc)
			if err != nil {
				return err
			}
			if p, ok := t.(**Array); ok {
				*p = arr
			} else {
				*t.(*Array) = *arr
			}
			return nil
		}
	}

	switch rv.Kind() {
	case reflect.String:
		s, err := v.StringValue()
		if err != nil {
			return err
		}
		rv.SetString(s)
		return nil
	case reflect.Bool:
		b, err := v.Boolean()
		if err != nil {
			return err
		}
		rv.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := rawAsInt64(v)
		if err != nil {
			return err
		}
		if rv.OverflowInt(i) {
			return errors.Wrapf(ErrLossyConversion, "%d overflows %s", i, rv.Type())
		}
		rv.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := rawAsUint64(v)
		if err != nil {
			return err
		}
		if rv.OverflowUint(u) {
			return errors.Wrapf(ErrLossyConversion, "%d overflows %s", u, rv.Type())
		}
		rv.SetUint(u)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := rawAsFloat64(v)
		if err != nil {
			return err
		}
		if rv.Kind() == reflect.Float32 && float64(float32(f)) != f {
			return errors.Wrapf(ErrLossyConversion, "%v does not fit float32", f)
		}
		rv.SetFloat(f)
		return nil
	case reflect.Struct, reflect.Map:
		doc, err := v.Document()
		if err != nil {
			return err
		}
		return reflectDecodeDocument(doc, rv, decodeContext{
			humanReadable: dc.humanReadable,
			utf8Lossy:     dc.utf8Lossy,
			depth:         dc.depth + 1,
			path:          dc.path,
		})
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b, err := v.Binary()
			if err != nil {
				return err
			}
			rv.SetBytes(append([]byte(nil), b.Data...))
			return nil
		}
		return reflectDecodeSlice(v, rv, dc)
	case reflect.Array:
		// Sixteen-byte arrays (uuid.UUID and equivalents) decode from a
		// standard UUID binary.
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Type().Len() == 16 && v.Type == TypeBinary {
			b, err := v.Binary()
			if err != nil {
				return err
			}
			if b.Subtype != SubtypeUUID {
				return errors.Wrapf(ErrSubtypeMismatch, "want subtype %#x, got %#x", SubtypeUUID, b.Subtype)
			}
			if len(b.Data) != 16 {
				return errors.Wrapf(ErrInvalidLength, "UUID binary has %d bytes", len(b.Data))
			}
			reflect.Copy(rv, reflect.ValueOf(b.Data))
			return nil
		}
		return reflectDecodeFixedArray(v, rv, dc)
	default:
		return fmt.Errorf("%w: cannot decode %s into %s", ErrUnsupportedValue, v.Type, rv.Type())
	}
}

// decodeDateTimeInto handles both wire forms of a datetime: the int64
// milliseconds element, and the RFC 3339 string emitted in human-readable
// mode.
func decodeDateTimeInto(t *DateTime, v RawValue, dc decodeContext) error {
	if dc.humanReadable && v.Type == TypeString {
		s, err := v.StringValue()
		if err != nil {
			return err
		}
		d, err := DateTimeFromRFC3339(s)
		if err != nil {
			return err
		}
		*t = d
		return nil
	}
	d, err := v.DateTime()
	if err != nil {
		return err
	}
	*t = d
	return nil
}

// decodeTypedArray materializes a raw array as an *Array.
func decodeTypedArray(raw RawArray, dc decodeContext) (*Array, error) {
	a := &Array{}
	i := 0
	it := newRawIter(RawDocument(raw), dc.utf8Lossy)
	for it.Next() {
		edc := dc.push(fmt.Sprintf("[%d]", i))
		v := it.Value()
		v.utf8Lossy = dc.utf8Lossy
		got, err := decodeValue(v, dc.depth+1)
		if err != nil {
			return nil, edc.wrap(err)
		}
		a.Push(got)
		i++
	}
	if err := it.Err(); err != nil {
		return nil, dc.wrap(err)
	}
	return a, nil
}

func reflectDecodeSlice(v RawValue, rv reflect.Value, dc decodeContext) error {
	raw, err := v.Array()
	if err != nil {
		return err
	}
	sub := decodeContext{humanReadable: dc.humanReadable, utf8Lossy: dc.utf8Lossy, depth: dc.depth + 1, path: dc.path}
	if sub.depth > maxNestingDepth {
		return ErrTooDeep
	}
	out := reflect.MakeSlice(rv.Type(), 0, 8)
	i := 0
	it := newRawIter(RawDocument(raw), dc.utf8Lossy)
	for it.Next() {
		edc := sub.push(fmt.Sprintf("[%d]", i))
		ev := reflect.New(rv.Type().Elem()).Elem()
		if err := reflectDecodeValue(it.Value(), ev, edc); err != nil {
			return edc.wrap(err)
		}
		out = reflect.Append(out, ev)
		i++
	}
	if err := it.Err(); err != nil {
		return dc.wrap(err)
	}
	rv.Set(out)
	return nil
}

func reflectDecodeFixedArray(v RawValue, rv reflect.Value, dc decodeContext) error {
	raw, err := v.Array()
	if err != nil {
		return err
	}
	sub := decodeContext{humanReadable: dc.humanReadable, utf8Lossy: dc.utf8Lossy, depth: dc.depth + 1, path: dc.path}
	if sub.depth > maxNestingDepth {
		return ErrTooDeep
	}
	i := 0
	it := newRawIter(RawDocument(raw), dc.utf8Lossy)
	for it.Next() {
		if i >= rv.Len() {
			return errors.Wrapf(ErrInvalidLength, "array has more than %d elements", rv.Len())
		}
		edc := sub.push(fmt.Sprintf("[%d]", i))
		if err := reflectDecodeValue(it.Value(), rv.Index(i), edc); err != nil {
			return edc.wrap(err)
		}
		i++
	}
	if err := it.Err(); err != nil {
		return dc.wrap(err)
	}
	if i != rv.Len() {
		return errors.Wrapf(ErrInvalidLength, "array has %d elements, want %d", i, rv.Len())
	}
	return nil
}

// rawAsInt64 reads any integral wire form as an int64, rejecting lossy
// double conversions.
func rawAsInt64(v RawValue) (int64, error) {
	switch v.Type {
	case TypeInt32:
		i, err := v.Int32()
		return int64(i), err
	case TypeInt64:
		return v.Int64()
	case TypeDouble:
		f, err := v.Double()
		if err != nil {
			return 0, err
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, errors.Wrapf(ErrLossyConversion, "%v out of int64 range", f)
		}
		i := int64(f)
		if float64(i) != f {
			return 0, errors.Wrapf(ErrLossyConversion, "%v is not an integer", f)
		}
		return i, nil
	default:
		return 0, errTypeMismatch(TypeInt64, v.Type)
	}
}

// rawAsUint64 reads any integral wire form as a uint64, rejecting negative
// values and lossy double conversions.
func rawAsUint64(v RawValue) (uint64, error) {
	switch v.Type {
	case TypeInt32, TypeInt64:
		i, err := rawAsInt64(v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, errors.Wrapf(ErrLossyConversion, "%d is negative", i)
		}
		return uint64(i), nil
	case TypeDouble:
		f, err := v.Double()
		if err != nil {
			return 0, err
		}
		return Uint64FromFloat64(f)
	default:
		return 0, errTypeMismatch(TypeInt64, v.Type)
	}
}

// rawAsFloat64 reads any numeric wire form as a float64, rejecting int64
// values the double cannot represent exactly.
func rawAsFloat64(v RawValue) (float64, error) {
	switch v.Type {
	case TypeDouble:
		return v.Double()
	case TypeInt32:
		i, err := v.Int32()
		return float64(i), err
	case TypeInt64:
		i, err := v.Int64()
		if err != nil {
			return 0, err
		}
		f := float64(i)
		if f >= math.MaxInt64 || int64(f) != i {
			return 0, errors.Wrapf(ErrLossyConversion, "%d is not exactly representable as float64", i)
		}
		return f, nil
	default:
		return 0, errTypeMismatch(TypeDouble, v.Type)
	}
}

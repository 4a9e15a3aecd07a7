package bson

// decodeValue materializes a raw value into the typed model. Composite
// values are decoded recursively with the depth cap applied; raw errors
// propagate unchanged.
func decodeValue(v RawValue, depth int) (any, error) {
	if depth > maxNestingDepth {
		return nil, ErrTooDeep
	}
	switch v.Type {
	case TypeDouble:
		return v.Double()
	case TypeString:
		return v.StringValue()
	case TypeDocument:
		sub, err := v.Document()
		if err != nil {
			return nil, err
		}
		return decodeDocument(sub, depth+1)
	case TypeArray:
		sub, err := v.Array()
		if err != nil {
			return nil, err
		}
		return decodeArray(sub, depth+1)
	case TypeBinary:
		b, err := v.Binary()
		if err != nil {
			return nil, err
		}
		// Copy out of the borrowed buffer; typed values own their bytes.
		b.Data = append([]byte(nil), b.Data...)
		return b, nil
	case TypeUndefined:
		return Undefined{}, nil
	case TypeObjectID:
		return v.ObjectID()
	case TypeBoolean:
		return v.Boolean()
	case TypeDateTime:
		return v.DateTime()
	case TypeNull:
		return Null{}, nil
	case TypeRegex:
		return v.Regex()
	case TypeDBPointer:
		return v.DBPointer()
	case TypeJavaScript:
		return v.JavaScript()
	case TypeSymbol:
		return v.Symbol()
	case TypeCodeWithScope:
		code, rawScope, err := v.CodeWithScope()
		if err != nil {
			return nil, err
		}
		scope, err := decodeDocument(rawScope, depth+1)
		if err != nil {
			return nil, err
		}
		return CodeWithScope{Code: code, Scope: scope}, nil
	case TypeInt32:
		return v.Int32()
	case TypeTimestamp:
		return v.Timestamp()
	case TypeInt64:
		return v.Int64()
	case TypeDecimal128:
		return v.Decimal128()
	case TypeMinKey:
		return MinKey{}, nil
	case TypeMaxKey:
		return MaxKey{}, nil
	default:
		return nil, ErrInvalidType
	}
}

func decodeDocument(raw RawDocument, depth int) (*Document, error) {
	if depth > maxNestingDepth {
		return nil, ErrTooDeep
	}
	doc := NewDocument()
	it := raw.Iter()
	for it.Next() {
		v, err := decodeValue(it.Value(), depth)
		if err != nil {
			return nil, err
		}
		doc.Append(it.Key(), v)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeArray(raw RawArray, depth int) (*Array, error) {
	if depth > maxNestingDepth {
		return nil, ErrTooDeep
	}
	arr := NewArray()
	it := raw.Iter()
	for it.Next() {
		v, err := decodeValue(it.Value(), depth)
		if err != nil {
			return nil, err
		}
		arr.Push(v)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return arr, nil
}

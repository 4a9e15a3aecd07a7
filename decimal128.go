package bson

import "fmt"

// Decimal128 is an IEEE 754-2008 128-bit decimal floating point value,
// carried as an opaque pair of 64-bit halves. The codec round-trips the 16
// wire bytes losslessly; it performs no decimal arithmetic.
type Decimal128 struct {
	h, l uint64
}

// NewDecimal128 builds a value from its high and low 64-bit halves.
func NewDecimal128(h, l uint64) Decimal128 {
	return Decimal128{h: h, l: l}
}

// GetBytes returns the high and low 64-bit halves.
func (d Decimal128) GetBytes() (h, l uint64) {
	return d.h, d.l
}

func (d Decimal128) String() string {
	return fmt.Sprintf("Decimal128(%d,%d)", d.h, d.l)
}

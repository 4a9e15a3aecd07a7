package bson

import (
	"testing"
)

type benchDoc struct {
	Name   string   `bson:"name"`
	Count  int64    `bson:"count"`
	Score  float64  `bson:"score"`
	Active bool     `bson:"active"`
	Tags   []string `bson:"tags"`
}

var benchValue = benchDoc{
	Name:   "benchmark",
	Count:  123456789,
	Score:  0.875,
	Active: true,
	Tags:   []string{"a", "b", "c"},
}

func BenchmarkMarshalStruct(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(benchValue); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshalStruct(b *testing.B) {
	data, err := Marshal(benchValue)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out benchDoc
		if err := Unmarshal(data, &out); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRawIter(b *testing.B) {
	data, err := Marshal(benchValue)
	if err != nil {
		b.Fatal(err)
	}
	raw := RawDocument(data)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := raw.Iter()
		for it.Next() {
		}
		if err := it.Err(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDocumentBuilderAppend(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		db := NewDocumentBuilder()
		_ = db.Append("name", "benchmark")
		_ = db.Append("count", int64(123456789))
		_ = db.Append("score", 0.875)
	}
}

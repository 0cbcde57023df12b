package ml

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeRecordsReindexOnly(t *testing.T) {
	schema := MustSchema("price", "cost", "gender_male", "year")
	records := []Record{
		{"price": "100", "cost": "80", "gender_male": "1", "Predicted_Sales": "12", "notes": "x"},
		{"price": "200", "gender_male": "False"},
		{"cost": "", "year": "2023"},
	}

	vectors, err := EncodeRecords(records, schema, date(2024, time.March, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != len(records) {
		t.Fatalf("expected %d vectors, got %d", len(records), len(vectors))
	}

	want := [][]float64{
		{100, 80, 1, 0},
		{200, 0, 0, 0},
		{0, 0, 0, 2023},
	}
	for i, v := range vectors {
		got := v.Values()
		for j := range want[i] {
			if got[j] != want[i][j] {
				t.Fatalf("row %d: expected %v, got %v", i, want[i], got)
			}
		}
		for _, name := range v.Names() {
			if name == "notes" || name == "Predicted_Sales" {
				t.Fatalf("row %d: upload-only column %s leaked into vector", i, name)
			}
		}
	}
}

func TestEncodeRecordsRawColumns(t *testing.T) {
	records := []Record{{
		"price":      "450",
		"cost":       "300",
		"gender":     "male",
		"category":   "t-shirt",
		"brand":      "brand_3",
		"collection": "P",
		"price_tier": "low",
		"style":      "casual",
		"date":       "2024-03-15",
	}}

	vectors, err := EncodeRecords(records, DefaultSchema(), date(2030, time.January, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := Encode(sampleAttrs(), DefaultSchema(), date(2024, time.March, 15)).Values()
	got := vectors[0].Values()
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("feature %s: expected %v, got %v", DefaultSchema().Names()[i], expected[i], got[i])
		}
	}
}

func TestEncodeRecordsEncodedColumnOverridesRaw(t *testing.T) {
	records := []Record{{"gender": "female", "gender_male": "1"}}
	vectors, err := EncodeRecords(records, DefaultSchema(), date(2024, time.March, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := vectors[0].Get("gender_male"); got != 1 {
		t.Fatalf("expected explicit column to win, got %v", got)
	}
	if got, _ := vectors[0].Get("year"); got != 2024 {
		t.Fatalf("expected reference year for raw row, got %v", got)
	}
}

func TestEncodeRecordsAbortsOnBadValue(t *testing.T) {
	records := []Record{
		{"price": "10"},
		{"price": "ten"},
		{"price": "30"},
	}
	vectors, err := EncodeRecords(records, DefaultSchema(), date(2024, time.March, 15))
	if err == nil {
		t.Fatal("expected error")
	}
	if vectors != nil {
		t.Fatal("expected no partial result")
	}
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %T", err)
	}
	if rowErr.Row != 1 || rowErr.Column != "price" {
		t.Fatalf("unexpected location: %+v", rowErr)
	}
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEncodeRecordsBadDate(t *testing.T) {
	_, err := EncodeRecords([]Record{{"gender": "male", "date": "yesterday"}}, DefaultSchema(), time.Now())
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEncodeRecordsRejectsNonFinite(t *testing.T) {
	for _, cell := range []string{"NaN", "Inf", "-Inf", "+inf"} {
		records := []Record{{"price": "10", "cost": "5"}, {"price": cell, "cost": "10"}}
		_, err := EncodeRecords(records, DefaultSchema(), date(2024, time.March, 15))
		var rowErr *RowError
		if !errors.As(err, &rowErr) {
			t.Fatalf("%s: expected RowError, got %v", cell, err)
		}
		if rowErr.Row != 1 || rowErr.Column != "price" || !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("%s: unexpected error %+v", cell, rowErr)
		}
	}
}

func TestEncodeRecordsNamesPriceBeforeCost(t *testing.T) {
	records := []Record{{"gender": "male", "price": "x", "cost": "y"}}
	for i := 0; i < 20; i++ {
		_, err := EncodeRecords(records, DefaultSchema(), date(2024, time.March, 15))
		var rowErr *RowError
		if !errors.As(err, &rowErr) || rowErr.Column != "price" {
			t.Fatalf("expected price to be reported first, got %v", err)
		}
	}
}

func TestEncodeRecordsReportsFirstSchemaColumn(t *testing.T) {
	records := []Record{{"cost": "bad", "price": "worse"}}
	for i := 0; i < 20; i++ {
		_, err := EncodeRecords(records, DefaultSchema(), date(2024, time.March, 15))
		var rowErr *RowError
		if !errors.As(err, &rowErr) || rowErr.Column != "price" {
			t.Fatalf("expected price to be reported first, got %v", err)
		}
	}
}

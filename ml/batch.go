package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidValue = errors.New("invalid value")

// Date columns recognised in uploads, in lookup order.
var dateColumns = []string{"observation_date", "date"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// Record is one uploaded row keyed by column name.
type Record map[string]string

// RowError locates a value that could not be encoded. Row is zero-based.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d column %q: value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// EncodeRecords encodes uploaded rows independently and in order. Rows that
// carry raw product columns go through Encode first; any column named in the
// schema then overrides the computed value verbatim. Other columns are
// ignored and absent schema columns are 0. The first bad value aborts the
// whole batch.
func EncodeRecords(records []Record, schema Schema, ref time.Time) ([]FeatureVector, error) {
	out := make([]FeatureVector, len(records))
	for i, rec := range records {
		computed, err := recordValues(rec, schema, ref)
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				rowErr.Row = i
			}
			return nil, err
		}
		out[i] = Assemble(computed, schema)
	}
	return out, nil
}

func recordValues(rec Record, schema Schema, ref time.Time) (map[string]float64, error) {
	computed := make(map[string]float64)

	attrs, raw, err := recordAttributes(rec, ref)
	if err != nil {
		return nil, err
	}
	if raw {
		computed = encodeMap(attrs, attrs.ObservationDate)
	}

	for _, column := range schema.Names() {
		value, ok := rec[column]
		if !ok {
			continue
		}
		f, err := parseCell(value)
		if err != nil {
			return nil, &RowError{Column: column, Value: value, Err: err}
		}
		computed[column] = f
	}
	return computed, nil
}

// recordAttributes extracts raw product columns. raw is false when the row
// only holds already-encoded columns.
func recordAttributes(rec Record, ref time.Time) (ProductAttributes, bool, error) {
	attrs := ProductAttributes{ObservationDate: ref}
	raw := false

	for _, enc := range attributeEncodings {
		v, ok := rec[enc.Attribute]
		if !ok {
			continue
		}
		raw = true
		v = strings.TrimSpace(v)
		switch enc.Attribute {
		case AttrGender:
			attrs.Gender = Gender(v)
		case AttrCategory:
			attrs.Category = Category(v)
		case AttrBrand:
			attrs.Brand = Brand(v)
		case AttrCollection:
			attrs.Collection = Collection(v)
		case AttrPriceTier:
			attrs.PriceTier = PriceTier(v)
		case AttrStyle:
			attrs.Style = Style(v)
		}
	}

	for _, column := range dateColumns {
		v, ok := rec[column]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		d, err := ParseDate(v)
		if err != nil {
			return attrs, false, &RowError{Column: column, Value: v, Err: err}
		}
		attrs.ObservationDate = d
		raw = true
		break
	}

	if raw {
		numeric := []struct {
			column string
			dst    *float64
		}{
			{FeaturePrice, &attrs.Price},
			{FeatureCost, &attrs.Cost},
		}
		for _, n := range numeric {
			column, dst := n.column, n.dst
			v, ok := rec[column]
			if !ok {
				continue
			}
			f, err := parseCell(v)
			if err != nil {
				return attrs, false, &RowError{Column: column, Value: v, Err: err}
			}
			*dst = f
		}
	}
	return attrs, raw, nil
}

// ParseDate accepts the date layouts seen in uploads and form input.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrInvalidValue, v)
}

// parseCell reads a numeric cell. Empty cells are 0; true/false (as written
// by dummy-encoding tools) are 1/0. NaN and infinities are rejected.
func parseCell(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	switch strings.ToLower(v) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: not a number", ErrInvalidValue)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: not a finite number", ErrInvalidValue)
	}
	return f, nil
}

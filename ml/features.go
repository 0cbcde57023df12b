package ml

import (
	"bytes"
	"encoding/json"
	"time"
)

// FeatureVector is an encoded row: one value per schema name, in schema order.
type FeatureVector struct {
	names  []string
	values []float64
}

func (v FeatureVector) Len() int { return len(v.values) }

// Names returns the feature names in model order.
func (v FeatureVector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Values returns the feature values positionally, ready for Model.Predict.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Get returns the value of a named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Map returns the vector as an unordered name -> value map.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		m[n] = v.values[i]
	}
	return m
}

// MarshalJSON writes the vector as a JSON object whose keys keep model order.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range v.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Assemble lays computed values out in schema order. Names missing from
// computed are 0; computed names outside the schema are dropped.
func Assemble(computed map[string]float64, schema Schema) FeatureVector {
	v := FeatureVector{
		names:  schema.Names(),
		values: make([]float64, schema.Len()),
	}
	for i, name := range v.names {
		v.values[i] = computed[name]
	}
	return v
}

// Encode turns product attributes into the model's feature vector. Calendar
// features come from ref; the encoder never reads the wall clock.
func Encode(attrs ProductAttributes, schema Schema, ref time.Time) FeatureVector {
	return Assemble(encodeMap(attrs, ref), schema)
}

// EncodeAll encodes each product independently against the same reference
// date, preserving order.
func EncodeAll(products []ProductAttributes, schema Schema, ref time.Time) []FeatureVector {
	out := make([]FeatureVector, len(products))
	for i, attrs := range products {
		out[i] = Encode(attrs, schema, ref)
	}
	return out
}

func encodeMap(attrs ProductAttributes, ref time.Time) map[string]float64 {
	m := make(map[string]float64, 24)
	m[FeaturePrice] = attrs.Price
	m[FeatureCost] = attrs.Cost
	for name, value := range calendarFeatures(ref) {
		m[name] = value
	}
	for name, value := range oneHot(attrs.categoricalValues()) {
		m[name] = value
	}
	return m
}

// DayOfWeek maps time.Weekday onto 0=Monday..6=Sunday.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend is 1 for Saturday and Sunday, else 0.
func IsWeekend(dayOfWeek int) float64 {
	if dayOfWeek == 5 || dayOfWeek == 6 {
		return 1
	}
	return 0
}

func calendarFeatures(ref time.Time) map[string]float64 {
	dow := DayOfWeek(ref)
	return map[string]float64{
		FeatureYear:      float64(ref.Year()),
		FeatureMonth:     float64(ref.Month()),
		FeatureDay:       float64(ref.Day()),
		FeatureDayOfWeek: float64(dow),
		FeatureIsWeekend: IsWeekend(dow),
	}
}

// oneHot sets every indicator of every attribute: 1 for the selected value's
// indicator, 0 for its siblings. A baseline or unknown value leaves all 0.
func oneHot(selected map[string]string) map[string]float64 {
	m := make(map[string]float64)
	for _, enc := range attributeEncodings {
		choice := selected[enc.Attribute]
		for value, name := range enc.Indicators {
			if value == choice {
				m[name] = 1
			} else {
				m[name] = 0
			}
		}
	}
	return m
}

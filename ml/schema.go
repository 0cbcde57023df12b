package ml

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrEmptySchema     = errors.New("feature schema is empty")
	ErrDuplicateColumn = errors.New("duplicate feature name")
)

// Schema is the ordered list of feature names a trained model expects.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema validates names and builds a schema preserving their order.
func NewSchema(names []string) (Schema, error) {
	if len(names) == 0 {
		return Schema{}, ErrEmptySchema
	}
	s := Schema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return Schema{}, fmt.Errorf("feature %d: empty name", i)
		}
		if _, dup := s.index[name]; dup {
			return Schema{}, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		s.names[i] = name
		s.index[name] = i
	}
	return s, nil
}

// MustSchema is NewSchema for fixed name lists known to be valid.
func MustSchema(names ...string) Schema {
	s, err := NewSchema(names)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultSchema is the feature list the pricing model was fit on.
func DefaultSchema() Schema {
	return MustSchema(
		FeaturePrice, FeatureCost,
		FeatureYear, FeatureMonth, FeatureDay, FeatureDayOfWeek, FeatureIsWeekend,
		"gender_male",
		"category_jacket", "category_jeans", "category_shoes",
		"category_t-shirt", "category_top", "category_trainers",
		"brand_brand_2", "brand_brand_3", "brand_brand_4",
		"collection_P", "collection_SS",
		"price_tier_low", "price_tier_middle",
		"style_sport",
	)
}

func (s Schema) Len() int { return len(s.names) }

// Names returns a copy of the feature names in model order.
func (s Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Equal reports whether both schemas list the same names in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i := range s.names {
		if s.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.names)
}

// LoadSchema reads a schema artifact: either a JSON array of strings or a
// text file with one feature name per line (blank lines and # comments
// ignored).
func LoadSchema(path string) (Schema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema: %w", err)
	}
	names, err := parseSchema(payload)
	if err != nil {
		return Schema{}, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return NewSchema(names)
}

func parseSchema(payload []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return nil, err
		}
		return names, nil
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}

package ml

import (
	"fmt"
	"strings"
)

// CheckCompatibility fails when the model records a training feature list
// that differs from schema in names or order. Models without a recorded list
// are accepted as-is.
func CheckCompatibility(m Model, schema Schema) error {
	features := m.Features()
	if features == nil {
		return nil
	}
	modelSchema, err := NewSchema(features)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if modelSchema.Equal(schema) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, describeDrift(modelSchema, schema))
}

func describeDrift(model, schema Schema) string {
	var missing, extra []string
	for _, name := range model.names {
		if !schema.Contains(name) {
			missing = append(missing, name)
		}
	}
	for _, name := range schema.names {
		if !model.Contains(name) {
			extra = append(extra, name)
		}
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing from schema: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unknown to model: "+strings.Join(extra, ", "))
	}
	if len(parts) == 0 {
		for i := range model.names {
			if model.names[i] != schema.names[i] {
				parts = append(parts, fmt.Sprintf("order differs at position %d (model %q, schema %q)", i, model.names[i], schema.names[i]))
				break
			}
		}
	}
	return strings.Join(parts, "; ")
}

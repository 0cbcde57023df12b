package pipeline

import (
	"testing"

	"salesdash/ml"
)

func TestNewDataCleaner(t *testing.T) {
	cleaner := NewDataCleaner()
	if cleaner == nil {
		t.Fatal("NewDataCleaner returned nil")
	}
	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestTrimSpaceRule(t *testing.T) {
	in := ml.Record{"gender": " male ", "price": "10"}
	out, issues := TrimSpaceRule{}.Apply(0, in)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if out["gender"] != "male" || out["price"] != "10" {
		t.Fatalf("unexpected record: %v", out)
	}
	if in["gender"] != " male " {
		t.Fatal("input record was modified")
	}

	if out, _ := (TrimSpaceRule{}).Apply(0, ml.Record{"price": "10"}); out != nil {
		t.Fatalf("expected nil for unchanged record, got %v", out)
	}
}

func TestUnrecognizedValueRule(t *testing.T) {
	tests := []struct {
		name   string
		rec    ml.Record
		issues int
	}{
		{"legal values", ml.Record{"gender": "male", "category": "jeans", "style": "casual"}, 0},
		{"empty value", ml.Record{"gender": ""}, 0},
		{"unknown brand", ml.Record{"brand": "brand_9"}, 1},
		{"two unknowns", ml.Record{"brand": "brand_9", "collection": "AW"}, 2},
		{"encoded columns only", ml.Record{"gender_male": "1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, issues := UnrecognizedValueRule{}.Apply(3, tt.rec)
			if len(issues) != tt.issues {
				t.Fatalf("expected %d issues, got %v", tt.issues, issues)
			}
			for _, issue := range issues {
				if issue.Row != 3 || issue.Severity != SeverityMedium {
					t.Errorf("unexpected issue: %+v", issue)
				}
			}
		})
	}
}

func TestPriceValidationRule(t *testing.T) {
	tests := []struct {
		name   string
		rec    ml.Record
		issues int
	}{
		{"valid", ml.Record{"price": "49.9", "cost": "20"}, 0},
		{"negative price", ml.Record{"price": "-1"}, 1},
		{"cost above price", ml.Record{"price": "10", "cost": "12"}, 1},
		{"not numeric", ml.Record{"price": "abc"}, 0},
		{"missing", ml.Record{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, issues := (PriceValidationRule{}).Apply(0, tt.rec); len(issues) != tt.issues {
				t.Fatalf("expected %d issues, got %v", tt.issues, issues)
			}
		})
	}
}

func TestDataCleanerClean(t *testing.T) {
	cleaner := NewDataCleaner()
	records := []ml.Record{
		{"gender": " male", "price": "10"},
		{"gender": "robot", "price": "5"},
		{"gender": "female", "price": "7"},
	}

	cleaned, issues := cleaner.Clean(records)
	if len(cleaned) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(cleaned))
	}
	if cleaned[0]["gender"] != "male" {
		t.Errorf("row 0 not trimmed: %q", cleaned[0]["gender"])
	}
	if len(issues) != 1 || issues[0].Row != 1 || issues[0].Column != "gender" {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	stats := cleaner.GetStats()
	if stats.TotalProcessed != 3 || stats.Corrected != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Issues["unrecognized_value"] != 1 {
		t.Errorf("unexpected issue counts: %v", stats.Issues)
	}
}

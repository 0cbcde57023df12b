package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"salesdash/ml"
)

// Severity levels of quality issues.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
)

// CleaningRule inspects one uploaded row. Apply may return a normalised
// copy of the row; issues never reject a row, encoding decides that.
type CleaningRule interface {
	Apply(row int, rec ml.Record) (ml.Record, []QualityIssue)
	Name() string
}

// QualityIssue is a non-fatal finding about an uploaded row.
type QualityIssue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Row      int    `json:"row"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
}

// DataCleaner runs cleaning rules over uploads and keeps running totals.
type DataCleaner struct {
	rules []CleaningRule

	stats     CleaningStats
	statsLock sync.RWMutex
}

// CleaningStats counts processed rows and issues per rule.
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Corrected      int64            `json:"corrected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// NewDataCleaner returns a cleaner with the default rules.
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		stats: CleaningStats{Issues: make(map[string]int64)},
	}
	cleaner.AddRule(TrimSpaceRule{})
	cleaner.AddRule(UnrecognizedValueRule{})
	cleaner.AddRule(PriceValidationRule{})
	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Clean applies every rule to every record. The returned records keep the
// input order and length.
func (dc *DataCleaner) Clean(records []ml.Record) ([]ml.Record, []QualityIssue) {
	cleaned := make([]ml.Record, len(records))
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for i, rec := range records {
		dc.stats.TotalProcessed++
		current := rec
		for _, rule := range dc.rules {
			next, found := rule.Apply(i, current)
			for _, issue := range found {
				dc.stats.Issues[issue.Rule]++
			}
			issues = append(issues, found...)
			if next != nil {
				current = next
			}
		}
		if !sameRecord(rec, current) {
			dc.stats.Corrected++
		}
		cleaned[i] = current
	}
	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

func sameRecord(a, b ml.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// TrimSpaceRule strips surrounding whitespace from every cell.
type TrimSpaceRule struct{}

func (TrimSpaceRule) Name() string { return "trim_space" }

func (TrimSpaceRule) Apply(_ int, rec ml.Record) (ml.Record, []QualityIssue) {
	var out ml.Record
	for k, v := range rec {
		t := strings.TrimSpace(v)
		if t == v {
			continue
		}
		if out == nil {
			out = make(ml.Record, len(rec))
			for kk, vv := range rec {
				out[kk] = vv
			}
		}
		out[k] = t
	}
	return out, nil
}

// UnrecognizedValueRule flags categorical cells outside the legal value
// sets. Such values encode as the baseline.
type UnrecognizedValueRule struct{}

func (UnrecognizedValueRule) Name() string { return "unrecognized_value" }

func (r UnrecognizedValueRule) Apply(row int, rec ml.Record) (ml.Record, []QualityIssue) {
	var issues []QualityIssue
	for _, enc := range ml.AttributeEncodings() {
		v, ok := rec[enc.Attribute]
		if !ok || v == "" || enc.IsLegal(v) {
			continue
		}
		issues = append(issues, QualityIssue{
			Rule:     r.Name(),
			Severity: SeverityMedium,
			Row:      row,
			Column:   enc.Attribute,
			Message:  fmt.Sprintf("%q is not a known %s; all %s indicators are 0", v, enc.Attribute, enc.Attribute),
		})
	}
	return nil, issues
}

// PriceValidationRule flags negative prices or costs and rows sold below
// cost.
type PriceValidationRule struct{}

func (PriceValidationRule) Name() string { return "price_validation" }

func (r PriceValidationRule) Apply(row int, rec ml.Record) (ml.Record, []QualityIssue) {
	var issues []QualityIssue
	price, hasPrice := numericCell(rec, ml.FeaturePrice)
	cost, hasCost := numericCell(rec, ml.FeatureCost)

	for _, c := range []struct {
		column string
		value  float64
		ok     bool
	}{{ml.FeaturePrice, price, hasPrice}, {ml.FeatureCost, cost, hasCost}} {
		if c.ok && c.value < 0 {
			issues = append(issues, QualityIssue{
				Rule: r.Name(), Severity: SeverityMedium, Row: row, Column: c.column,
				Message: fmt.Sprintf("%s is negative (%g)", c.column, c.value),
			})
		}
	}
	if hasPrice && hasCost && price >= 0 && cost > price {
		issues = append(issues, QualityIssue{
			Rule: r.Name(), Severity: SeverityLow, Row: row, Column: ml.FeatureCost,
			Message: fmt.Sprintf("cost %g exceeds price %g", cost, price),
		})
	}
	return nil, issues
}

func numericCell(rec ml.Record, column string) (float64, bool) {
	v, ok := rec[column]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

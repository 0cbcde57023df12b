package ml

import (
	"errors"
	"sort"
	"time"
)

// ErrUnrecognizedValue is returned by callers that refuse values outside
// the legal sets instead of encoding them as the baseline.
var ErrUnrecognizedValue = errors.New("unrecognized attribute value")

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Category string

const (
	CategoryJeans    Category = "jeans"
	CategoryJacket   Category = "jacket"
	CategoryShoes    Category = "shoes"
	CategoryTShirt   Category = "t-shirt"
	CategoryTop      Category = "top"
	CategoryTrainers Category = "trainers"
)

type Brand string

const (
	Brand2 Brand = "brand_2"
	Brand3 Brand = "brand_3"
	Brand4 Brand = "brand_4"
)

type Collection string

const (
	CollectionP  Collection = "P"
	CollectionSS Collection = "SS"
)

type PriceTier string

const (
	PriceTierLow    PriceTier = "low"
	PriceTierMiddle PriceTier = "middle"
)

type Style string

const (
	StyleSport  Style = "sport"
	StyleCasual Style = "casual"
)

// ProductAttributes is one hand-entered or uploaded product description.
// A zero ObservationDate means "use the caller's reference date".
type ProductAttributes struct {
	Price           float64    `json:"price"`
	Cost            float64    `json:"cost"`
	Gender          Gender     `json:"gender"`
	Category        Category   `json:"category"`
	Brand           Brand      `json:"brand"`
	Collection      Collection `json:"collection"`
	PriceTier       PriceTier  `json:"price_tier"`
	Style           Style      `json:"style"`
	ObservationDate time.Time  `json:"observation_date,omitempty"`
}

// ReferenceDate returns the observation date when set, otherwise now.
func (a ProductAttributes) ReferenceDate(now time.Time) time.Time {
	if a.ObservationDate.IsZero() {
		return now
	}
	return a.ObservationDate
}

func (a ProductAttributes) categoricalValues() map[string]string {
	return map[string]string{
		AttrGender:     string(a.Gender),
		AttrCategory:   string(a.Category),
		AttrBrand:      string(a.Brand),
		AttrCollection: string(a.Collection),
		AttrPriceTier:  string(a.PriceTier),
		AttrStyle:      string(a.Style),
	}
}

// Unrecognized lists the categorical attributes whose value is outside the
// attribute's legal set, sorted by attribute name. Those attributes encode
// as all-zero indicators, the same as the baseline.
func (a ProductAttributes) Unrecognized() []UnrecognizedValue {
	var out []UnrecognizedValue
	values := a.categoricalValues()
	for _, enc := range AttributeEncodings() {
		v := values[enc.Attribute]
		if !enc.IsLegal(v) {
			out = append(out, UnrecognizedValue{Attribute: enc.Attribute, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attribute < out[j].Attribute })
	return out
}

// UnrecognizedValue names an attribute value that has no entry in the
// attribute's legal value table.
type UnrecognizedValue struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

package ml

// Categorical attribute names as they appear in uploads and API payloads.
const (
	AttrGender     = "gender"
	AttrCategory   = "category"
	AttrBrand      = "brand"
	AttrCollection = "collection"
	AttrPriceTier  = "price_tier"
	AttrStyle      = "style"
)

// Numeric and calendar feature names.
const (
	FeaturePrice     = "price"
	FeatureCost      = "cost"
	FeatureYear      = "year"
	FeatureMonth     = "month"
	FeatureDay       = "day"
	FeatureDayOfWeek = "dayofweek"
	FeatureIsWeekend = "is_weekend"
)

// AttributeEncoding is the one-hot table for one categorical attribute.
// Values lists the legal values in display order. Baseline, when non-empty,
// is the legal value that has no indicator column and encodes as all zeros.
type AttributeEncoding struct {
	Attribute  string
	Values     []string
	Baseline   string
	Indicators map[string]string
}

// IsLegal reports whether v is one of the attribute's legal values.
func (e AttributeEncoding) IsLegal(v string) bool {
	for _, legal := range e.Values {
		if legal == v {
			return true
		}
	}
	return false
}

// IndicatorNames returns every indicator column of the attribute in
// legal-value order.
func (e AttributeEncoding) IndicatorNames() []string {
	names := make([]string, 0, len(e.Indicators))
	for _, v := range e.Values {
		if name, ok := e.Indicators[v]; ok {
			names = append(names, name)
		}
	}
	return names
}

func indicators(prefix string, values ...string) map[string]string {
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[v] = prefix + "_" + v
	}
	return m
}

var attributeEncodings = []AttributeEncoding{
	{
		Attribute:  AttrGender,
		Values:     []string{string(GenderMale), string(GenderFemale)},
		Baseline:   string(GenderFemale),
		Indicators: indicators(AttrGender, string(GenderMale)),
	},
	{
		Attribute: AttrCategory,
		Values: []string{
			string(CategoryJeans), string(CategoryJacket), string(CategoryShoes),
			string(CategoryTShirt), string(CategoryTop), string(CategoryTrainers),
		},
		Indicators: indicators(AttrCategory,
			string(CategoryJacket), string(CategoryJeans), string(CategoryShoes),
			string(CategoryTShirt), string(CategoryTop), string(CategoryTrainers)),
	},
	{
		Attribute:  AttrBrand,
		Values:     []string{string(Brand2), string(Brand3), string(Brand4)},
		Indicators: indicators(AttrBrand, string(Brand2), string(Brand3), string(Brand4)),
	},
	{
		Attribute:  AttrCollection,
		Values:     []string{string(CollectionP), string(CollectionSS)},
		Indicators: indicators(AttrCollection, string(CollectionP), string(CollectionSS)),
	},
	{
		Attribute:  AttrPriceTier,
		Values:     []string{string(PriceTierLow), string(PriceTierMiddle)},
		Indicators: indicators(AttrPriceTier, string(PriceTierLow), string(PriceTierMiddle)),
	},
	{
		Attribute:  AttrStyle,
		Values:     []string{string(StyleSport), string(StyleCasual)},
		Baseline:   string(StyleCasual),
		Indicators: indicators(AttrStyle, string(StyleSport)),
	},
}

// AttributeEncodings returns the one-hot tables for every categorical
// attribute, in the order the default schema lists them.
func AttributeEncodings() []AttributeEncoding {
	out := make([]AttributeEncoding, len(attributeEncodings))
	copy(out, attributeEncodings)
	return out
}

// LookupEncoding returns the table for a categorical attribute.
func LookupEncoding(attribute string) (AttributeEncoding, bool) {
	for _, enc := range attributeEncodings {
		if enc.Attribute == attribute {
			return enc, true
		}
	}
	return AttributeEncoding{}, false
}

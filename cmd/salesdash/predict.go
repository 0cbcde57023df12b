package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"salesdash/ml"
	"salesdash/render"
)

var predictFlags struct {
	price      float64
	cost       float64
	gender     string
	category   string
	brand      string
	collection string
	priceTier  string
	style      string
	date       string
	asJSON     bool
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict sales for a single product",
	Example: `  salesdash predict --price 450 --cost 300 --gender male --category jeans \
    --brand brand_2 --collection SS --price-tier middle --style sport --date 2024-03-16`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.Float64Var(&predictFlags.price, "price", 450, "Selling price")
	f.Float64Var(&predictFlags.cost, "cost", 300, "Unit cost")
	f.StringVar(&predictFlags.gender, "gender", string(ml.GenderMale), "Gender (male, female)")
	f.StringVar(&predictFlags.category, "category", string(ml.CategoryJeans), "Category (jeans, jacket, shoes, t-shirt, top, trainers)")
	f.StringVar(&predictFlags.brand, "brand", string(ml.Brand2), "Brand (brand_2, brand_3, brand_4)")
	f.StringVar(&predictFlags.collection, "collection", string(ml.CollectionP), "Collection (P, SS)")
	f.StringVar(&predictFlags.priceTier, "price-tier", string(ml.PriceTierLow), "Price tier (low, middle)")
	f.StringVar(&predictFlags.style, "style", string(ml.StyleSport), "Style (sport, casual)")
	f.StringVar(&predictFlags.date, "date", "", "Observation date, YYYY-MM-DD (default today)")
	f.BoolVar(&predictFlags.asJSON, "json", false, "Print the prediction as JSON")
	rootCmd.AddCommand(predictCmd)
}

func predictAttributes() (ml.ProductAttributes, error) {
	attrs := ml.ProductAttributes{
		Price:      predictFlags.price,
		Cost:       predictFlags.cost,
		Gender:     ml.Gender(predictFlags.gender),
		Category:   ml.Category(predictFlags.category),
		Brand:      ml.Brand(predictFlags.brand),
		Collection: ml.Collection(predictFlags.collection),
		PriceTier:  ml.PriceTier(predictFlags.priceTier),
		Style:      ml.Style(predictFlags.style),
	}
	if strings.TrimSpace(predictFlags.date) != "" {
		d, err := ml.ParseDate(predictFlags.date)
		if err != nil {
			return attrs, err
		}
		attrs.ObservationDate = d
	}
	return attrs, nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	attrs, err := predictAttributes()
	if err != nil {
		return err
	}
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.logger.Sync()

	service, err := c.newService(nil, nil)
	if err != nil {
		return err
	}
	pred, err := service.PredictOne(cmd.Context(), attrs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if predictFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pred)
	}
	for _, u := range pred.Unrecognized {
		printWarning(os.Stderr, "%s %q is not recognised; encoded as the baseline", u.Attribute, u.Value)
	}
	printHeader(out, "Predicted Sales: %s", render.FormatSales(pred.PredictedSales))
	printField(out, "reference date", pred.ReferenceDate.Format("2006-01-02"))
	printField(out, "margin", render.FormatNumber(attrs.Price-attrs.Cost))
	return nil
}

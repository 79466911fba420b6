package extract

import (
	"strings"

	"github.com/taperedplus/design-intake/internal/model"
)

// insulationCategory pairs a catalogue heading with the product names
// and trade shorthand that fold into it. Order matters: the first match
// wins, so the PIR families are checked before the broader materials.
type insulationCategory struct {
	name     string
	products []string
}

var insulationCategories = []insulationCategory{
	{"TissueFaced PIR", []string{"TT47", "TR27", "Glass Tissue PIR", "Powerdeck F", "Adhered", "MG", "TR/MG", "FR/MG", "BauderPIR FA-TE", "Evatherm A", "Hytherm ADH"}},
	{"TorchOn PIR", []string{"TT44", "TR24", "Torched", "Powerdeck U", "BGM", "TR/BGM", "FR/BGM", "BauderPIR FA"}},
	{"FoilFaced PIR", []string{"TT46", "TR26", "Foil", "Powerdeck Eurodeck", "Mech Fixed", "ALU", "TR/ALU", "FR/ALU", "Aluminium Faced"}},
	{"ROCKWOOL HardRock MultiFix DD", []string{"Mineral wool", "Hardrock", "stonewool", "stone wool", "rock wool", "bauderrock"}},
	{"Foamglas T3+", []string{"Cellular Glass", "foamed glass", "Bauderglas"}},
	{"EPS", []string{"Expanded Polystrene"}},
	{"XPS", []string{"Extruded Polystyrene"}},
}

// MapInsulation folds a free-text insulation product into its catalogue
// category. Matching is case-insensitive and bidirectional: the product
// may appear inside the value or the value inside the product name.
// Unrecognised values pass through untouched.
func MapInsulation(value string) string {
	if value == "" || value == model.NotFound {
		return value
	}
	lower := strings.ToLower(value)
	for _, cat := range insulationCategories {
		for _, product := range cat.products {
			p := strings.ToLower(product)
			if strings.Contains(lower, p) || strings.Contains(p, lower) {
				return cat.name
			}
		}
	}
	return value
}

package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ColumnMap describes how board columns relate to parameter names. Monday.com
// column IDs are board-specific opaque strings, so the mapping is data, not
// code: the built-in default matches the Tapered Enquiry Maintenance board
// and can be overridden from a YAML file for other boards.
type ColumnMap struct {
	// Item holds item-level column IDs on the main board.
	Item ItemColumns `yaml:"item"`
	// Subitem maps subitem (revision) column IDs to parameter names.
	Subitem map[string]string `yaml:"subitem"`
	// Create maps parameter names to the column IDs used when creating
	// a new board item.
	Create map[string]string `yaml:"create"`
}

// ItemColumns are the item-level columns read from the main board.
type ItemColumns struct {
	PostCode    string `yaml:"post_code"`
	ProjectName string `yaml:"project_name"`
	CreatedDate string `yaml:"created_date"`
}

// DefaultColumnMap returns the mapping for the Tapered Enquiry Maintenance
// board. Subitem entries are mirror columns surfacing revision detail.
func DefaultColumnMap() *ColumnMap {
	return &ColumnMap{
		Item: ItemColumns{
			PostCode:    "dropdown_mknfpjbt",
			ProjectName: "text3__1",
			CreatedDate: "date9__1",
		},
		Subitem: map[string]string{
			"mirror_12__1": "Company",
			"mirror_11__1": "Contact",
			"mirror92__1":  "Surveyor",
			"mirror0__1":   "Target U-Value",
			"mirror12__1":  "Target Min U-Value",
			"mirror22__1":  "Fall of Tapered",
			"mirror875__1": "Tapered Insulation",
			"mirror75__1":  "Decking",
			"mirror95__1":  "Date Received",
			"mirror03__1":  "Reason for Change",
			"mirror_1__1":  "Revision",
		},
		Create: map[string]string{
			"Date Received":     "date4",
			"Hour Received":     "hour0__1",
			"Post Code":         "dropdown_mknfpjbt",
			"Reason for Change": "status_1__1",
			"Drawing Reference": "text_1__1",
		},
	}
}

// LoadColumnMap reads a column mapping from a YAML file. Sections left empty
// in the file fall back to the built-in default.
func LoadColumnMap(path string) (*ColumnMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read column map %s", path)
	}

	var cm ColumnMap
	if err := yaml.Unmarshal(data, &cm); err != nil {
		return nil, eris.Wrap(err, "model: parse column map")
	}

	def := DefaultColumnMap()
	if cm.Item == (ItemColumns{}) {
		cm.Item = def.Item
	}
	if len(cm.Subitem) == 0 {
		cm.Subitem = def.Subitem
	}
	if len(cm.Create) == 0 {
		cm.Create = def.Create
	}
	return &cm, nil
}

package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed catalogue.json
var defaultCatalogue []byte

// Item is one orderable catalogue entry.
type Item struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPricePence int    `json:"unit_price_pence"`
}

// Catalog maps canonical (upper-case) SKUs to items. It is immutable after
// load and safe for concurrent reads.
type Catalog struct {
	items map[string]Item
}

type catalogueFile struct {
	Items []Item `json:"items"`
}

// Load reads a catalogue JSON file. An empty path loads the embedded default.
func Load(path string) (*Catalog, error) {
	data := defaultCatalogue
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalogue: %w", err)
		}
	}

	var file catalogueFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	items := make(map[string]Item, len(file.Items))
	for _, item := range file.Items {
		sku := strings.ToUpper(item.SKU)
		if sku == "" || item.UnitPricePence < 0 {
			return nil, fmt.Errorf("invalid catalogue item %q", item.SKU)
		}
		item.SKU = sku
		items[sku] = item
	}
	return &Catalog{items: items}, nil
}

// Get looks up an item by SKU, case-insensitively.
func (c *Catalog) Get(sku string) (Item, bool) {
	item, ok := c.items[strings.ToUpper(sku)]
	return item, ok
}

func (c *Catalog) Has(sku string) bool {
	_, ok := c.Get(sku)
	return ok
}

func (c *Catalog) Len() int {
	return len(c.items)
}

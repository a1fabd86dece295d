// Package pricing implements item extraction, volume inference, route
// classification and the base + complexity-guarded estimate. Apart from
// LoadCatalog, which reads the config file, every function here is pure: no
// I/O, no clock reads beyond what callers pass in.
package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ItemDef is one catalog entry: a canonical key with a price range and a
// three-language label used by the crew view.
type ItemDef struct {
	Key      string            `json:"key"`
	PriceMin int               `json:"price_min"`
	PriceMax int               `json:"price_max"`
	Heavy    bool              `json:"heavy"`
	Value    float64           `json:"volume_value"` // contribution to the volume-inference sum
	Aliases  map[string]string `json:"-"`             // not populated; aliases are indexed in Catalog.aliasesByLength
	Labels   map[string]string `json:"labels"`        // lang -> label
}

type aliasEntry struct {
	Alias string `json:"alias"`
	Key   string `json:"key"`
}

type rawCatalog struct {
	Items          []ItemDef              `json:"items"`
	Aliases        []aliasEntry           `json:"aliases"`
	RoomDescriptors map[string]string     `json:"room_descriptors"` // phrase -> volume_category
	Volume         VolumeConfig           `json:"volume"`
	Route          RouteConfig            `json:"route"`
	Guards         GuardConfig            `json:"complexity_guards"`
	Currency       string                 `json:"currency"`
}

// VolumeConfig holds the per-category base price and the item-value sum
// thresholds used to infer a category from extracted items.
type VolumeConfig struct {
	Base map[string]int `json:"base"`
	// Thresholds: sum(item values) >= threshold selects that category,
	// evaluated from largest to smallest.
	Thresholds map[string]float64 `json:"thresholds"`
	// HeavyItemOverrideCount: this many heavy items forces at least "xl".
	HeavyItemOverrideCount int `json:"heavy_item_override_count"`
}

// RouteConfig holds per-band fees, minimums, and the locality distance table.
type RouteConfig struct {
	Fees          map[string]int     `json:"fees"`
	Minimums      map[string]int     `json:"minimums"`
	PerFloorRate  int                `json:"per_floor_rate"`
	Localities    map[string]Locality `json:"localities"`
	SameMetroKM   float64            `json:"same_metro_km"`
	ShortRegionKM float64            `json:"short_region_km"`
	LongRegionKM  float64            `json:"long_region_km"`
}

// Locality is one entry of the locality table: canonical name plus rough
// coordinates good enough for band classification.
type Locality struct {
	CanonicalName string   `json:"canonical_name"`
	Lat           float64  `json:"lat"`
	Lng           float64  `json:"lng"`
	Aliases       []string `json:"aliases"`
}

// GuardConfig holds the complexity-guard multipliers and hard floor.
type GuardConfig struct {
	ComplexMultiplier float64 `json:"complex_multiplier"` // default 1.18
	RiskBuffer        float64 `json:"risk_buffer"`        // default 1.08
	ComplexMinFloor   int     `json:"complex_min_floor"`  // default 7800
	ExtrasFee         map[string]int `json:"extras_fee"`
}

// localityAlias is one locality name/alias entry, indexed for
// longest-match-first substring lookup the same way item aliases are.
type localityAlias struct {
	alias string
	key   string
}

// Catalog is the loaded, indexed pricing configuration.
type Catalog struct {
	itemsByKey         map[string]ItemDef
	aliasesByLength    []aliasEntry // sorted longest-alias-first
	roomDescriptors    map[string]string
	localitiesByLength []localityAlias // sorted longest-alias-first
	Volume             VolumeConfig
	Route              RouteConfig
	Guards             GuardConfig
	Currency           string
}

// LoadCatalog reads a pricing config JSON file (see configs/pricing.json)
// and builds an indexed Catalog.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing config: %w", err)
	}
	var rc rawCatalog
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("parse pricing config: %w", err)
	}
	return buildCatalog(rc)
}

func buildCatalog(rc rawCatalog) (*Catalog, error) {
	c := &Catalog{
		itemsByKey:      make(map[string]ItemDef, len(rc.Items)),
		roomDescriptors: make(map[string]string, len(rc.RoomDescriptors)),
		Volume:          rc.Volume,
		Route:           rc.Route,
		Guards:          rc.Guards,
		Currency:        rc.Currency,
	}
	if c.Currency == "" {
		c.Currency = "ILS"
	}

	for _, it := range rc.Items {
		c.itemsByKey[it.Key] = it
	}
	for phrase, cat := range rc.RoomDescriptors {
		c.roomDescriptors[strings.ToLower(phrase)] = cat
	}
	for key, loc := range rc.Route.Localities {
		c.localitiesByLength = append(c.localitiesByLength, localityAlias{alias: strings.ToLower(loc.CanonicalName), key: key})
		for _, alias := range loc.Aliases {
			c.localitiesByLength = append(c.localitiesByLength, localityAlias{alias: strings.ToLower(alias), key: key})
		}
	}
	// Longest alias first so "Тель-Авив-Яффо" matches before a shorter
	// substring alias of the same locality table.
	sort.Slice(c.localitiesByLength, func(i, j int) bool {
		return len([]rune(c.localitiesByLength[i].alias)) > len([]rune(c.localitiesByLength[j].alias))
	})

	c.aliasesByLength = make([]aliasEntry, len(rc.Aliases))
	copy(c.aliasesByLength, rc.Aliases)
	for i := range c.aliasesByLength {
		c.aliasesByLength[i].Alias = strings.ToLower(c.aliasesByLength[i].Alias)
	}
	// Longest alias first so "детская кровать" matches before "кровать".
	sort.Slice(c.aliasesByLength, func(i, j int) bool {
		return len([]rune(c.aliasesByLength[i].Alias)) > len([]rune(c.aliasesByLength[j].Alias))
	})

	if c.Guards.ComplexMultiplier == 0 {
		c.Guards.ComplexMultiplier = 1.18
	}
	if c.Guards.RiskBuffer == 0 {
		c.Guards.RiskBuffer = 1.08
	}
	if c.Guards.ComplexMinFloor == 0 {
		c.Guards.ComplexMinFloor = 7800
	}
	if c.Route.PerFloorRate == 0 {
		c.Route.PerFloorRate = 80
	}
	return c, nil
}

// ItemByKey returns the catalog definition for key, if present.
func (c *Catalog) ItemByKey(key string) (ItemDef, bool) {
	it, ok := c.itemsByKey[key]
	return it, ok
}

// LocalityKey resolves free text to a canonical locality key, matching the
// longest known locality name or alias contained anywhere in the text (the
// same longest-alias-first substring policy ExtractItems uses), so a full
// street address like "Хайфа, ул. Герцль 10, этаж 3" still resolves via its
// embedded city name. ok is false when no known locality appears at all.
func (c *Catalog) LocalityKey(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, la := range c.localitiesByLength {
		if strings.Contains(lower, la.alias) {
			return la.key, true
		}
	}
	return "", false
}

// ItemLabel returns the localized crew-facing label for a catalog key,
// falling back to Russian then the bare key when a translation is missing.
func (c *Catalog) ItemLabel(key, lang string) string {
	def, ok := c.itemsByKey[key]
	if !ok {
		return ""
	}
	if label, ok := def.Labels[lang]; ok && label != "" {
		return label
	}
	if label, ok := def.Labels["ru"]; ok && label != "" {
		return label
	}
	return key
}
